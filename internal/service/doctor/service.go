// Package doctor manages doctor accounts and the public doctor listing.
package doctor

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
	"github.com/jwalitptl/clinic-booking-api/pkg/logger"
	"github.com/jwalitptl/clinic-booking-api/pkg/metrics"
	"github.com/jwalitptl/clinic-booking-api/pkg/security"
	"github.com/jwalitptl/clinic-booking-api/pkg/storage"
	"github.com/jwalitptl/clinic-booking-api/pkg/validator"
)

const (
	publicListKey = "doctors:public"
	cacheName     = "doctor_list"
	imageFolder   = "doctors"
)

type Service struct {
	doctors repository.DoctorRepository
	slots   repository.SlotRepository
	images  storage.ImageStore
	hasher  security.PasswordHasher
	cache   *cache.Cache
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

func NewService(doctors repository.DoctorRepository, slots repository.SlotRepository, images storage.ImageStore,
	hasher security.PasswordHasher, listTTL time.Duration, m *metrics.Metrics, log *logger.Logger) *Service {
	if listTTL <= 0 {
		listTTL = time.Minute
	}
	return &Service{
		doctors: doctors,
		slots:   slots,
		images:  images,
		hasher:  hasher,
		cache:   cache.New(listTTL, 2*listTTL),
		metrics: m,
		logger:  log,
		now:     time.Now,
	}
}

// Invalidate drops the cached public list. Called after any doctor or ledger change.
func (s *Service) Invalidate() {
	s.cache.Delete(publicListKey)
}

// AddDoctor creates a doctor account from the admin form.
func (s *Service) AddDoctor(ctx context.Context, req model.AddDoctorRequest, image *storage.File) (*model.Doctor, error) {
	fields := []string{req.Name, req.Email, req.Password, req.Speciality, req.Degree, req.Experience, req.About, req.Fees, req.Address}
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return nil, apperrors.Validation("Missing Data", nil)
		}
	}
	if image == nil || image.Body == nil {
		return nil, apperrors.Validation("Missing Data", nil)
	}

	email := strings.TrimSpace(req.Email)
	if !validator.IsEmail(email) {
		return nil, apperrors.Validation("Invalid email format", nil)
	}
	if _, err := s.doctors.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.Validation("Doctor already exists", nil)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Internal(err)
	}
	if len(req.Password) < security.MinPasswordLen {
		return nil, apperrors.Validation("Password must be at least 8 characters long", nil)
	}

	fees, err := strconv.ParseFloat(strings.TrimSpace(req.Fees), 64)
	if err != nil || fees < 0 {
		return nil, apperrors.Validation("Invalid fees", err)
	}
	address, err := model.ParseAddress(req.Address)
	if err != nil {
		return nil, apperrors.Validation("Invalid address", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	imageURL, err := s.images.Upload(ctx, imageFolder, image.Filename, image.Body)
	if err != nil {
		return nil, apperrors.ExternalService("image storage", err)
	}

	doctor := &model.Doctor{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		Image:        imageURL,
		Speciality:   strings.TrimSpace(req.Speciality),
		Degree:       strings.TrimSpace(req.Degree),
		Experience:   strings.TrimSpace(req.Experience),
		About:        req.About,
		Available:    true,
		Fees:         fees,
		Address:      address,
		Date:         s.now().UnixMilli(),
	}
	if err := s.doctors.Create(ctx, doctor); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Validation("Doctor already exists", err)
		}
		return nil, apperrors.Internal(err)
	}

	s.Invalidate()
	s.logger.WithContext(ctx).Info("Doctor added", "doctor_id", doctor.ID.String())
	return doctor, nil
}

// ListPublic returns every doctor with its booked slots, without email or
// password. The result is cached until the next invalidation or TTL expiry.
func (s *Service) ListPublic(ctx context.Context) ([]model.Doctor, error) {
	if cached, ok := s.cache.Get(publicListKey); ok {
		s.metrics.CacheLookups.WithLabelValues(cacheName, "hit").Inc()
		return cached.([]model.Doctor), nil
	}
	s.metrics.CacheLookups.WithLabelValues(cacheName, "miss").Inc()

	list, err := s.withLedgers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Doctor, len(list))
	for i, d := range list {
		out[i] = d.Public()
	}
	s.cache.SetDefault(publicListKey, out)
	return out, nil
}

// ListAll is the admin view. Only the password hash is withheld.
func (s *Service) ListAll(ctx context.Context) ([]model.Doctor, error) {
	return s.withLedgers(ctx)
}

func (s *Service) withLedgers(ctx context.Context) ([]model.Doctor, error) {
	doctors, err := s.doctors.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	ledgers, err := s.slots.Ledgers(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	out := make([]model.Doctor, 0, len(doctors))
	for _, d := range doctors {
		doc := *d
		doc.PasswordHash = ""
		doc.SlotsBooked = ledgers[d.ID]
		if doc.SlotsBooked == nil {
			doc.SlotsBooked = model.SlotLedger{}
		}
		out = append(out, doc)
	}
	return out, nil
}

// ChangeAvailability flips the doctor's available flag.
func (s *Service) ChangeAvailability(ctx context.Context, doctorID string) (bool, error) {
	id, err := uuid.Parse(strings.TrimSpace(doctorID))
	if err != nil {
		return false, apperrors.NotFound("Doctor", err)
	}
	available, err := s.doctors.ToggleAvailability(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, apperrors.NotFound("Doctor", err)
		}
		return false, apperrors.Internal(err)
	}
	s.Invalidate()
	return available, nil
}

// Profile returns the signed-in doctor with its ledger, without password.
func (s *Service) Profile(ctx context.Context, doctorID uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.slots.Ledger(ctx, doctorID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	doctor.PasswordHash = ""
	doctor.SlotsBooked = ledger
	return doctor, nil
}

// UpdateProfile applies the doctor's own edits. Only the fields present in
// req are written, so a concurrent availability toggle is kept. The ledger is
// never written here.
func (s *Service) UpdateProfile(ctx context.Context, doctorID uuid.UUID, req model.UpdateDoctorProfileRequest) error {
	if req.Fees != nil && *req.Fees < 0 {
		return apperrors.Validation("Invalid fees", nil)
	}
	if err := s.doctors.UpdateProfile(ctx, doctorID, req); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Doctor", err)
		}
		return apperrors.Internal(err)
	}
	s.Invalidate()
	return nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Doctor", err)
		}
		return nil, apperrors.Internal(err)
	}
	return doctor, nil
}
