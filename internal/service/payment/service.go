// Package payment bridges appointments to a hosted checkout and flips the
// payment flag once the gateway confirms.
package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
	"github.com/jwalitptl/clinic-booking-api/internal/service/notification"
	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
	"github.com/jwalitptl/clinic-booking-api/pkg/logger"
	"github.com/jwalitptl/clinic-booking-api/pkg/metrics"
)

type Config struct {
	Currency string
	// RejectCancelled refuses to mark a cancelled appointment as paid.
	RejectCancelled bool
}

type Service struct {
	appointments repository.AppointmentRepository
	gateway      Gateway
	notifier     notification.Notifier
	cfg          Config
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewService(appointments repository.AppointmentRepository, gateway Gateway, notifier notification.Notifier, cfg Config, m *metrics.Metrics, log *logger.Logger) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	return &Service{
		appointments: appointments,
		gateway:      gateway,
		notifier:     notifier,
		cfg:          cfg,
		metrics:      m,
		logger:       log,
	}
}

// AmountCents converts a fee to minor units.
func AmountCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Initiate opens a checkout session for the patient's appointment. origin is
// the client base URL the gateway redirects back to.
func (s *Service) Initiate(ctx context.Context, patientID uuid.UUID, appointmentID, origin string) (*model.CheckoutHandle, error) {
	apt, err := s.load(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.Cancelled {
		return nil, apperrors.InvalidAppointment()
	}
	if apt.UserID != patientID {
		return nil, apperrors.Unauthorized(nil)
	}

	description := fmt.Sprintf("Appointment with %s", apt.DocData.Name)
	base := strings.TrimRight(origin, "/")
	params := SessionParams{
		AppointmentID: apt.ID.String(),
		AmountCents:   AmountCents(apt.Amount),
		Currency:      s.cfg.Currency,
		Description:   description,
		SuccessURL:    redirectURL(base, true, apt.ID),
		CancelURL:     redirectURL(base, false, apt.ID),
	}

	session, err := s.gateway.CreateSession(ctx, params)
	if err != nil {
		return nil, apperrors.ExternalService("payment gateway", err)
	}
	if err := s.appointments.SetPaymentRef(ctx, apt.ID, session.ID); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.WithContext(ctx).Info("Checkout session created",
		"appointment_id", apt.ID.String(),
		"session_id", session.ID,
	)
	return &model.CheckoutHandle{
		URL:         session.URL,
		SessionID:   session.ID,
		Amount:      params.AmountCents,
		Description: description,
	}, nil
}

func redirectURL(base string, success bool, id uuid.UUID) string {
	q := url.Values{}
	q.Set("success", fmt.Sprintf("%t", success))
	q.Set("appointmentId", id.String())
	return base + "/my-appointments?" + q.Encode()
}

// Verify records the checkout outcome. A failed outcome never reads or
// writes anything, so client retries are harmless.
func (s *Service) Verify(ctx context.Context, patientID uuid.UUID, appointmentID string, success bool) error {
	if !success {
		s.metrics.PaymentsVerified.WithLabelValues("failed").Inc()
		return apperrors.PaymentFailed(nil)
	}

	apt, err := s.load(ctx, appointmentID)
	if err != nil {
		return err
	}
	if apt.UserID != patientID {
		return apperrors.Unauthorized(nil)
	}
	if apt.Cancelled && s.cfg.RejectCancelled {
		return apperrors.InvalidAppointment()
	}
	if apt.Payment {
		return nil
	}

	if apt.PaymentRef != "" && s.gateway != nil && s.gateway.Live() {
		session, err := s.gateway.GetSession(ctx, apt.PaymentRef)
		if err != nil {
			return apperrors.ExternalService("payment gateway", err)
		}
		if !session.Paid() {
			s.metrics.PaymentsVerified.WithLabelValues("unpaid").Inc()
			return apperrors.PaymentFailed(nil)
		}
	}

	if err := s.appointments.MarkPaid(ctx, apt.ID); err != nil {
		return apperrors.Internal(err)
	}
	apt.Payment = true

	s.metrics.PaymentsVerified.WithLabelValues("paid").Inc()
	if s.notifier != nil {
		s.notifier.AppointmentPaid(ctx, apt)
	}
	return nil
}

func (s *Service) load(ctx context.Context, appointmentID string) (*model.Appointment, error) {
	id, err := uuid.Parse(strings.TrimSpace(appointmentID))
	if err != nil {
		return nil, apperrors.InvalidAppointment()
	}
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.InvalidAppointment()
		}
		return nil, apperrors.Internal(err)
	}
	return apt, nil
}
