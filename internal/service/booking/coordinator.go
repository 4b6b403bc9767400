// Package booking keeps the slot ledger and the appointment records
// consistent across book, cancel and complete.
package booking

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
	"github.com/jwalitptl/clinic-booking-api/internal/service/notification"
	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
	"github.com/jwalitptl/clinic-booking-api/pkg/logger"
	"github.com/jwalitptl/clinic-booking-api/pkg/metrics"
)

var tracer = otel.Tracer("clinic.internal.service.booking")

// Invalidator drops cached views that include ledger state.
type Invalidator interface {
	Invalidate()
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate() {}

// BookRequest is a patient's request for one slot.
type BookRequest struct {
	DoctorID string
	SlotDate string
	SlotTime string
}

type Coordinator struct {
	doctors      repository.DoctorRepository
	users        repository.UserRepository
	slots        repository.SlotRepository
	appointments repository.AppointmentRepository
	notifier     notification.Notifier
	cache        Invalidator
	metrics      *metrics.Metrics
	logger       *logger.Logger
	now          func() time.Time
}

func NewCoordinator(store repository.Store, notifier notification.Notifier, cache Invalidator, m *metrics.Metrics, log *logger.Logger) *Coordinator {
	if cache == nil {
		cache = nopInvalidator{}
	}
	return &Coordinator{
		doctors:      store.Doctors,
		users:        store.Users,
		slots:        store.Slots,
		appointments: store.Appointments,
		notifier:     notifier,
		cache:        cache,
		metrics:      m,
		logger:       log,
		now:          time.Now,
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Book reserves the slot and records the appointment. The reservation is a
// single atomic conditional write, so of any number of concurrent requests
// for one free slot exactly one succeeds.
func (c *Coordinator) Book(ctx context.Context, patientID uuid.UUID, req BookRequest) (apt *model.Appointment, err error) {
	ctx, span := tracer.Start(ctx, "booking.book")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("clinic.doctor_id", req.DoctorID),
		attribute.String("clinic.slot_date", req.SlotDate),
		attribute.String("clinic.slot_time", req.SlotTime),
	)

	key, err := parseBookRequest(req)
	if err != nil {
		c.metrics.Bookings.WithLabelValues(metrics.ResultInvalid).Inc()
		return nil, err
	}

	doctor, err := c.doctors.Get(ctx, key.DoctorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.metrics.Bookings.WithLabelValues(metrics.ResultNotAvailable).Inc()
			return nil, apperrors.NotAvailable()
		}
		c.metrics.Bookings.WithLabelValues(metrics.ResultError).Inc()
		return nil, apperrors.Internal(err)
	}
	if !doctor.Available {
		c.metrics.Bookings.WithLabelValues(metrics.ResultNotAvailable).Inc()
		return nil, apperrors.NotAvailable()
	}

	free, err := c.slots.IsFree(ctx, key)
	if err != nil {
		c.metrics.Bookings.WithLabelValues(metrics.ResultError).Inc()
		return nil, apperrors.Internal(err)
	}
	if !free {
		c.metrics.Bookings.WithLabelValues(metrics.ResultSlotTaken).Inc()
		return nil, apperrors.SlotTaken()
	}

	user, err := c.users.Get(ctx, patientID)
	if err != nil {
		c.metrics.Bookings.WithLabelValues(metrics.ResultError).Inc()
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("User", err)
		}
		return nil, apperrors.Internal(err)
	}

	apt = &model.Appointment{
		ID:       uuid.New(),
		UserID:   user.ID,
		DocID:    doctor.ID,
		SlotDate: key.Date,
		SlotTime: key.Time,
		UserData: user.Snapshot(),
		DocData:  doctor.Snapshot(),
		Amount:   doctor.Fees,
		Date:     c.now().UnixMilli(),
	}

	reserved, err := c.slots.Reserve(ctx, key, apt.ID)
	if err != nil {
		c.metrics.Bookings.WithLabelValues(metrics.ResultError).Inc()
		return nil, apperrors.Internal(err)
	}
	if !reserved {
		c.metrics.Bookings.WithLabelValues(metrics.ResultSlotTaken).Inc()
		return nil, apperrors.SlotTaken()
	}

	if err := c.appointments.Create(ctx, apt); err != nil {
		c.compensate(ctx, key, apt.ID, err)
		c.metrics.Bookings.WithLabelValues(metrics.ResultError).Inc()
		return nil, apperrors.Internal(err)
	}

	c.metrics.Bookings.WithLabelValues(metrics.ResultBooked).Inc()
	c.cache.Invalidate()
	if c.notifier != nil {
		c.notifier.AppointmentBooked(ctx, apt)
	}

	c.logger.WithContext(ctx).Info("Appointment booked",
		"appointment_id", apt.ID.String(),
		"doctor_id", apt.DocID.String(),
		"slot", key.String(),
	)
	return apt, nil
}

// compensate frees a reservation whose appointment could not be stored. It
// runs even if the request context is already done.
func (c *Coordinator) compensate(ctx context.Context, key model.SlotKey, appointmentID uuid.UUID, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	c.metrics.SlotCompensations.Inc()
	if err := c.slots.Release(ctx, key, appointmentID); err != nil {
		c.logger.WithContext(ctx).Error(err, "Failed to release slot after appointment write failure",
			"slot", key.String(),
			"cause", cause.Error(),
		)
	}
	c.cache.Invalidate()
}

// Cancel marks the appointment cancelled and frees its slot. Patients may
// cancel their own, doctors their own, admins any. Repeating it is harmless.
func (c *Coordinator) Cancel(ctx context.Context, actor model.Actor, appointmentID string) (err error) {
	ctx, span := tracer.Start(ctx, "booking.cancel")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(
		attribute.String("clinic.appointment_id", appointmentID),
		attribute.String("clinic.actor_role", string(actor.Role)),
	)

	apt, err := c.load(ctx, appointmentID)
	if err != nil {
		return err
	}
	if !canCancel(actor, apt) {
		return apperrors.Unauthorized(nil)
	}

	if err := c.appointments.MarkCancelled(ctx, apt.ID); err != nil {
		return apperrors.Internal(err)
	}
	if err := c.slots.Release(ctx, apt.Slot(), apt.ID); err != nil {
		return apperrors.Internal(err)
	}

	c.metrics.Cancellations.WithLabelValues(string(actor.Role)).Inc()
	c.cache.Invalidate()
	return nil
}

func canCancel(actor model.Actor, apt *model.Appointment) bool {
	switch actor.Role {
	case model.RoleAdmin:
		return true
	case model.RoleUser:
		return apt.UserID == actor.ID
	case model.RoleDoctor:
		return apt.DocID == actor.ID
	default:
		return false
	}
}

// Complete marks the doctor's appointment completed. The ledger is not touched.
func (c *Coordinator) Complete(ctx context.Context, doctorID uuid.UUID, appointmentID string) (err error) {
	ctx, span := tracer.Start(ctx, "booking.complete")
	defer func() { endSpan(span, err) }()
	span.SetAttributes(attribute.String("clinic.appointment_id", appointmentID))

	apt, err := c.load(ctx, appointmentID)
	if err != nil {
		return err
	}
	if apt.DocID != doctorID {
		return apperrors.Unauthorized(nil)
	}

	if err := c.appointments.MarkCompleted(ctx, apt.ID); err != nil {
		return apperrors.Internal(err)
	}
	apt.IsCompleted = true

	c.metrics.Completions.Inc()
	if c.notifier != nil {
		c.notifier.AppointmentCompleted(ctx, apt)
	}
	return nil
}

// DeleteHistory removes a patient's appointment record. The ledger is not touched.
func (c *Coordinator) DeleteHistory(ctx context.Context, patientID uuid.UUID, appointmentID string) error {
	apt, err := c.load(ctx, appointmentID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrNotFound) {
			return apperrors.Unauthorized(err)
		}
		return err
	}
	if apt.UserID != patientID {
		return apperrors.Unauthorized(nil)
	}
	if err := c.appointments.Delete(ctx, apt.ID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// List returns the appointments visible to actor, oldest first.
func (c *Coordinator) List(ctx context.Context, actor model.Actor) ([]*model.Appointment, error) {
	filters := &model.AppointmentFilters{}
	switch actor.Role {
	case model.RoleUser:
		filters.UserID = actor.ID
	case model.RoleDoctor:
		filters.DocID = actor.ID
	case model.RoleAdmin:
	default:
		return nil, apperrors.Unauthorized(nil)
	}

	list, err := c.appointments.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if list == nil {
		list = []*model.Appointment{}
	}
	return list, nil
}

// IsSlotFree reports whether the doctor's slot is open.
func (c *Coordinator) IsSlotFree(ctx context.Context, key model.SlotKey) (bool, error) {
	free, err := c.slots.IsFree(ctx, key)
	if err != nil {
		return false, apperrors.Internal(err)
	}
	return free, nil
}

func (c *Coordinator) load(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	id, err := uuid.Parse(strings.TrimSpace(appointmentID))
	if err != nil {
		return nil, apperrors.NotFound("Appointment", err)
	}
	apt, err := c.appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}

func parseBookRequest(req BookRequest) (model.SlotKey, error) {
	date := strings.TrimSpace(req.SlotDate)
	tm := strings.TrimSpace(req.SlotTime)
	if req.DoctorID == "" || date == "" || tm == "" {
		return model.SlotKey{}, apperrors.Validation("Missing Details", nil)
	}
	doctorID, err := uuid.Parse(strings.TrimSpace(req.DoctorID))
	if err != nil {
		return model.SlotKey{}, apperrors.Validation("Invalid doctor id", err)
	}
	if err := model.ValidateSlot(date, tm); err != nil {
		return model.SlotKey{}, apperrors.Validation("Invalid slot", err)
	}
	return model.SlotKey{DoctorID: doctorID, Date: date, Time: tm}, nil
}
