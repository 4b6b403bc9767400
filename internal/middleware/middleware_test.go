package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/pkg/auth"
	"github.com/jwalitptl/clinic-booking-api/pkg/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(jwtSvc auth.JWTService) *gin.Engine {
	m := NewAuthMiddleware(jwtSvc, "admin@clinic.test")
	r := gin.New()
	echo := func(c *gin.Context) {
		actor := Actor(c)
		c.JSON(http.StatusOK, gin.H{"id": actor.ID.String(), "role": string(actor.Role)})
	}
	r.GET("/user", m.RequireUser(), echo)
	r.GET("/doctor", m.RequireDoctor(), echo)
	r.GET("/admin", m.RequireAdmin(), echo)
	return r
}

func do(r http.Handler, path, header, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(header, token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRoleHeaders(t *testing.T) {
	jwtSvc := auth.NewJWTService("secret", nil)
	r := newAuthRouter(jwtSvc)

	userID := uuid.New()
	userToken, err := jwtSvc.Generate(model.RoleUser, userID, "")
	require.NoError(t, err)
	doctorToken, err := jwtSvc.Generate(model.RoleDoctor, uuid.New(), "")
	require.NoError(t, err)
	adminToken, err := jwtSvc.Generate(model.RoleAdmin, uuid.Nil, "admin@clinic.test")
	require.NoError(t, err)
	strangerAdmin, err := jwtSvc.Generate(model.RoleAdmin, uuid.Nil, "other@clinic.test")
	require.NoError(t, err)

	w := do(r, "/user", HeaderUserToken, userToken)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), userID.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, "/user", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/user", HeaderUserToken, doctorToken).Code)
	assert.Equal(t, http.StatusOK, do(r, "/doctor", HeaderDoctorToken, doctorToken).Code)

	// a doctor token never passes the admin check
	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", HeaderAdminToken, doctorToken).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", HeaderAdminToken, strangerAdmin).Code)
	assert.Equal(t, http.StatusOK, do(r, "/admin", HeaderAdminToken, adminToken).Code)

	// the right token in the wrong header is rejected
	assert.Equal(t, http.StatusUnauthorized, do(r, "/admin", HeaderUserToken, adminToken).Code)
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig()
	cfg.AllowOrigins = []string{"http://localhost:5173"}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "dtoken")
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.test")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 2, IdleTTL: time.Minute})
	r := gin.New()
	r.Use(rl.RateLimit())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("10.0.0.1"))
	assert.Equal(t, http.StatusOK, hit("10.0.0.2"))
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(HeaderXRequestID, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "rid-1", w.Header().Get(HeaderXRequestID))
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestMetricsUsesRouteTemplate(t *testing.T) {
	m := metrics.NewNop()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/doctors/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/doctors/42", nil))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues(http.MethodGet, "/doctors/:id", "200")))
}

func TestSizeLimit(t *testing.T) {
	cfg := DefaultSizeLimitConfig()
	cfg.MaxBodySize = 8
	r := gin.New()
	r.Use(SizeLimit(cfg))
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.ContentLength = 100
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
