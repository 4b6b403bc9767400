package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
)

// ErrNotFound is returned (possibly wrapped) when a row does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a unique email is reused.
var ErrDuplicate = errors.New("record already exists")

// All repository interfaces in one file
type (
	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
		Count(ctx context.Context) (int, error)
	}

	// DoctorRepository returns doctors without SlotsBooked; callers join the
	// ledger from SlotRepository.
	DoctorRepository interface {
		Create(ctx context.Context, doctor *model.Doctor) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByEmail(ctx context.Context, email string) (*model.Doctor, error)
		// UpdateProfile writes only the fields set in req.
		UpdateProfile(ctx context.Context, id uuid.UUID, req model.UpdateDoctorProfileRequest) error
		List(ctx context.Context) ([]*model.Doctor, error)
		// ToggleAvailability flips available in a single statement and returns the new value.
		ToggleAvailability(ctx context.Context, id uuid.UUID) (bool, error)
	}

	// SlotRepository is the persistent slot ledger. Every mutation is keyed by
	// (doctor, date, time); there is no read-modify-write of a whole ledger.
	SlotRepository interface {
		// Reserve claims the slot for appointmentID. It returns false when the
		// slot is already held, without writing anything.
		Reserve(ctx context.Context, key model.SlotKey, appointmentID uuid.UUID) (bool, error)
		// Release frees the slot only if appointmentID holds it. Releasing a
		// free slot, or one held by another appointment, is a no-op.
		Release(ctx context.Context, key model.SlotKey, appointmentID uuid.UUID) error
		IsFree(ctx context.Context, key model.SlotKey) (bool, error)
		Ledger(ctx context.Context, doctorID uuid.UUID) (model.SlotLedger, error)
		// Ledgers returns the ledger of every doctor with at least one booking.
		Ledgers(ctx context.Context) (map[uuid.UUID]model.SlotLedger, error)
	}

	// AppointmentRepository lists in creation order, oldest first.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		MarkCancelled(ctx context.Context, id uuid.UUID) error
		MarkCompleted(ctx context.Context, id uuid.UUID) error
		MarkPaid(ctx context.Context, id uuid.UUID) error
		SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error
	}
)

// Store bundles the repositories a running server needs.
type Store struct {
	Users        UserRepository
	Doctors      DoctorRepository
	Slots        SlotRepository
	Appointments AppointmentRepository
}
