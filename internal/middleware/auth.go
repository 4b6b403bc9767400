package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/pkg/auth"
	"github.com/jwalitptl/clinic-booking-api/pkg/httputil"
	"github.com/jwalitptl/clinic-booking-api/pkg/security"
)

// Token headers, one per role.
const (
	HeaderUserToken   = "token"
	HeaderDoctorToken = "dtoken"
	HeaderAdminToken  = "atoken"
)

const (
	ContextActorID   = "actor_id"
	ContextActorRole = "actor_role"
)

type AuthMiddleware struct {
	jwt        auth.JWTService
	adminEmail string
}

func NewAuthMiddleware(jwt auth.JWTService, adminEmail string) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, adminEmail: adminEmail}
}

func (m *AuthMiddleware) RequireUser() gin.HandlerFunc {
	return m.require(model.RoleUser, HeaderUserToken)
}

func (m *AuthMiddleware) RequireDoctor() gin.HandlerFunc {
	return m.require(model.RoleDoctor, HeaderDoctorToken)
}

// RequireAdmin also checks the email claim against the configured admin.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return m.require(model.RoleAdmin, HeaderAdminToken)
}

func (m *AuthMiddleware) require(role model.Role, header string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(header))
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			httputil.RespondUnauthorized(c, "Not Authorized. Login Again")
			return
		}

		claims, err := m.jwt.Validate(token, role)
		if err != nil {
			httputil.RespondUnauthorized(c, "Token Invalid or Expired")
			return
		}
		if role == model.RoleAdmin {
			if m.adminEmail == "" || !security.ConstantTimeEqual(strings.ToLower(claims.Email), strings.ToLower(m.adminEmail)) {
				httputil.RespondUnauthorized(c, "Not Authorized. Login Again")
				return
			}
		}

		c.Set(ContextActorID, claims.UserID())
		c.Set(ContextActorRole, role)
		c.Next()
	}
}

// Actor returns the principal set by the auth middleware.
func Actor(c *gin.Context) model.Actor {
	actor := model.Actor{}
	if id, ok := c.Get(ContextActorID); ok {
		actor.ID, _ = id.(uuid.UUID)
	}
	if role, ok := c.Get(ContextActorRole); ok {
		actor.Role, _ = role.(model.Role)
	}
	return actor
}
