package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrWrongRole    = errors.New("token role mismatch")
)

// Claims carried by every access token. AccountID is empty on admin tokens.
type Claims struct {
	AccountID string     `json:"id,omitempty"`
	Role      model.Role `json:"role"`
	Email     string     `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type JWTService interface {
	Generate(role model.Role, id uuid.UUID, email string) (string, error)
	// Validate parses the token and checks it was issued for role.
	Validate(token string, role model.Role) (*Claims, error)
}

type jwtService struct {
	secret []byte
	expiry map[model.Role]time.Duration
	now    func() time.Time
}

// NewJWTService signs HS256 tokens. A non-positive expiry means the role's
// tokens do not expire.
func NewJWTService(secret string, expiry map[model.Role]time.Duration) JWTService {
	return &jwtService{secret: []byte(secret), expiry: expiry, now: time.Now}
}

func (s *jwtService) Generate(role model.Role, id uuid.UUID, email string) (string, error) {
	now := s.now()
	claims := Claims{
		Role:  role,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if id != uuid.Nil {
		claims.AccountID = id.String()
		claims.Subject = id.String()
	}
	if ttl := s.expiry[role]; ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) Validate(tokenString string, role model.Role) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Role != role {
		return nil, ErrWrongRole
	}
	if role != model.RoleAdmin {
		if _, err := uuid.Parse(claims.AccountID); err != nil {
			return nil, fmt.Errorf("%w: bad subject", ErrInvalidToken)
		}
	}
	return claims, nil
}

// UserID returns the parsed id claim.
func (c *Claims) UserID() uuid.UUID {
	id, _ := uuid.Parse(c.AccountID)
	return id
}
