package user

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
	"github.com/jwalitptl/clinic-booking-api/pkg/logger"
	"github.com/jwalitptl/clinic-booking-api/pkg/storage"
)

const imageFolder = "users"

type Service struct {
	repo   repository.UserRepository
	images storage.ImageStore
	logger *logger.Logger
}

func NewService(repo repository.UserRepository, images storage.ImageStore, log *logger.Logger) *Service {
	return &Service{repo: repo, images: images, logger: log}
}

// Profile returns the patient without the password hash.
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("User", err)
		}
		return nil, apperrors.Internal(err)
	}
	user.PasswordHash = ""
	return user, nil
}

// UpdateProfile replaces the editable fields. image is optional. Existing
// appointment snapshots are not refreshed.
func (s *Service) UpdateProfile(ctx context.Context, userID uuid.UUID, req model.UpdateUserProfileRequest, image *storage.File) error {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	dob := strings.TrimSpace(req.DOB)
	gender := strings.TrimSpace(req.Gender)
	if name == "" || phone == "" || dob == "" || gender == "" {
		return apperrors.Validation("Missing Details", nil)
	}

	address, err := model.ParseAddress(req.Address)
	if err != nil {
		return apperrors.Validation("Invalid address", err)
	}

	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("User", err)
		}
		return apperrors.Internal(err)
	}

	user.Name = name
	user.Phone = phone
	user.DOB = dob
	user.Gender = gender
	user.Address = address

	if image != nil && image.Body != nil {
		url, err := s.images.Upload(ctx, imageFolder, image.Filename, image.Body)
		if err != nil {
			return apperrors.ExternalService("image storage", err)
		}
		user.Image = url
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return apperrors.Internal(err)
	}
	s.logger.WithContext(ctx).Debug("User profile updated", "user_id", user.ID.String())
	return nil
}
