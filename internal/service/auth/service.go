package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
	"github.com/jwalitptl/clinic-booking-api/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
	"github.com/jwalitptl/clinic-booking-api/pkg/logger"
	"github.com/jwalitptl/clinic-booking-api/pkg/security"
	"github.com/jwalitptl/clinic-booking-api/pkg/validator"
)

// GoogleVerifier checks a Google ID token and returns the signed-in profile.
type GoogleVerifier interface {
	Verify(ctx context.Context, idToken string) (*model.GoogleProfile, error)
}

type googleVerifier struct {
	clientID string
}

// NewGoogleVerifier validates tokens issued for clientID.
func NewGoogleVerifier(clientID string) GoogleVerifier {
	return &googleVerifier{clientID: clientID}
}

func (g *googleVerifier) Verify(ctx context.Context, idToken string) (*model.GoogleProfile, error) {
	if g.clientID == "" {
		return nil, errors.New("google client id not configured")
	}
	payload, err := idtoken.Validate(ctx, idToken, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to validate google token: %w", err)
	}
	profile := &model.GoogleProfile{}
	profile.Email, _ = payload.Claims["email"].(string)
	profile.Name, _ = payload.Claims["name"].(string)
	profile.Picture, _ = payload.Claims["picture"].(string)
	if profile.Email == "" {
		return nil, errors.New("google token has no email")
	}
	return profile, nil
}

// AdminCredentials is the single configured admin account.
type AdminCredentials struct {
	Email    string
	Password string
}

type Service struct {
	users   repository.UserRepository
	doctors repository.DoctorRepository
	jwtSvc  auth.JWTService
	hasher  security.PasswordHasher
	google  GoogleVerifier
	admin   AdminCredentials
	logger  *logger.Logger
}

func NewService(users repository.UserRepository, doctors repository.DoctorRepository, jwtSvc auth.JWTService,
	hasher security.PasswordHasher, google GoogleVerifier, admin AdminCredentials, log *logger.Logger) *Service {
	return &Service{
		users:   users,
		doctors: doctors,
		jwtSvc:  jwtSvc,
		hasher:  hasher,
		google:  google,
		admin:   admin,
		logger:  log,
	}
}

// RegisterUser creates a patient account and returns its token.
func (s *Service) RegisterUser(ctx context.Context, req model.RegisterRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return "", apperrors.Validation("Missing Details", nil)
	}
	if !validator.IsEmail(email) {
		return "", apperrors.Validation("Valid email required", nil)
	}
	if len(req.Password) < security.MinPasswordLen {
		return "", apperrors.Validation("Password too short", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return "", apperrors.Internal(err)
	}

	user := model.NewUser(name, email, hash)
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return "", apperrors.Validation("User already exists", err)
		}
		return "", apperrors.Internal(err)
	}

	s.logger.WithContext(ctx).Info("User registered", "user_id", user.ID.String())
	return s.token(model.RoleUser, user.ID, "")
}

func (s *Service) LoginUser(ctx context.Context, req model.LoginRequest) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.Validation("User does not exist", nil)
		}
		return "", apperrors.Internal(err)
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return "", apperrors.Validation("Invalid credentials", nil)
	}
	return s.token(model.RoleUser, user.ID, "")
}

// GoogleLogin signs in with a Google ID token, creating the patient on first use.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (string, error) {
	failed := func(err error) error {
		return &apperrors.AppError{Code: apperrors.ErrUnauthorized, Message: "Google Auth Failed", Err: err}
	}
	if s.google == nil || strings.TrimSpace(idToken) == "" {
		return "", failed(nil)
	}

	profile, err := s.google.Verify(ctx, idToken)
	if err != nil {
		s.logger.WithContext(ctx).Warn("Google token rejected", "error", err.Error())
		return "", failed(err)
	}

	user, err := s.users.GetByEmail(ctx, profile.Email)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.createGoogleUser(ctx, profile)
		if err != nil {
			return "", failed(err)
		}
	default:
		return "", failed(err)
	}
	return s.token(model.RoleUser, user.ID, "")
}

func (s *Service) createGoogleUser(ctx context.Context, profile *model.GoogleProfile) (*model.User, error) {
	secret, err := security.RandomPassword()
	if err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(secret)
	if err != nil {
		return nil, err
	}
	name := profile.Name
	if name == "" {
		name = strings.Split(profile.Email, "@")[0]
	}
	user := model.NewUser(name, profile.Email, hash)
	if profile.Picture != "" {
		user.Image = profile.Picture
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) LoginDoctor(ctx context.Context, req model.LoginRequest) (string, error) {
	doctor, err := s.doctors.GetByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", apperrors.Validation("Invalid credentials", nil)
		}
		return "", apperrors.Internal(err)
	}
	if err := s.hasher.Compare(doctor.PasswordHash, req.Password); err != nil {
		return "", apperrors.Validation("Invalid credentials", nil)
	}
	return s.token(model.RoleDoctor, doctor.ID, "")
}

func (s *Service) LoginAdmin(ctx context.Context, req model.LoginRequest) (string, error) {
	if s.admin.Email == "" || s.admin.Password == "" {
		return "", apperrors.Validation("Invalid credentials", nil)
	}
	emailOK := security.ConstantTimeEqual(strings.ToLower(strings.TrimSpace(req.Email)), strings.ToLower(s.admin.Email))
	passOK := security.ConstantTimeEqual(req.Password, s.admin.Password)
	if !emailOK || !passOK {
		return "", apperrors.Validation("Invalid credentials", nil)
	}
	return s.token(model.RoleAdmin, uuid.Nil, s.admin.Email)
}

func (s *Service) token(role model.Role, id uuid.UUID, email string) (string, error) {
	token, err := s.jwtSvc.Generate(role, id, email)
	if err != nil {
		return "", apperrors.Internal(err)
	}
	return token, nil
}
