package router

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	adminHandler "github.com/jwalitptl/clinic-booking-api/internal/handler/admin"
	doctorHandler "github.com/jwalitptl/clinic-booking-api/internal/handler/doctor"
	"github.com/jwalitptl/clinic-booking-api/internal/handler/health"
	promHandler "github.com/jwalitptl/clinic-booking-api/internal/handler/prometheus"
	userHandler "github.com/jwalitptl/clinic-booking-api/internal/handler/user"
	"github.com/jwalitptl/clinic-booking-api/internal/middleware"
	"github.com/jwalitptl/clinic-booking-api/internal/repository/memory"
	authService "github.com/jwalitptl/clinic-booking-api/internal/service/auth"
	"github.com/jwalitptl/clinic-booking-api/internal/service/booking"
	"github.com/jwalitptl/clinic-booking-api/internal/service/dashboard"
	doctorService "github.com/jwalitptl/clinic-booking-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-booking-api/internal/service/payment"
	userService "github.com/jwalitptl/clinic-booking-api/internal/service/user"
	"github.com/jwalitptl/clinic-booking-api/pkg/auth"
	"github.com/jwalitptl/clinic-booking-api/pkg/logger"
	"github.com/jwalitptl/clinic-booking-api/pkg/metrics"
	"github.com/jwalitptl/clinic-booking-api/pkg/security"
	"github.com/jwalitptl/clinic-booking-api/pkg/storage"
)

const (
	adminEmail    = "admin@clinic.test"
	adminPassword = "adminpass"
	slotDate      = "10_1_2024"
	slotTime      = "10:00 AM"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// TestResponse is the decoded envelope.
type TestResponse struct {
	Code int
	Body map[string]interface{}
}

func (r TestResponse) IsSuccess() bool {
	ok, _ := r.Body["success"].(bool)
	return ok
}

func (r TestResponse) Message() string {
	msg, _ := r.Body["message"].(string)
	return msg
}

func (r TestResponse) GetString(key string) string {
	v, _ := r.Body[key].(string)
	return v
}

func (r TestResponse) List(key string) []interface{} {
	v, _ := r.Body[key].([]interface{})
	return v
}

func (r TestResponse) Object(key string) map[string]interface{} {
	v, _ := r.Body[key].(map[string]interface{})
	return v
}

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := memory.New().Store()
	log := logger.Nop()
	registry := prometheus.NewRegistry()
	m := metrics.NewMetrics("clinic", registry)
	jwtSvc := auth.NewJWTService("test-secret", nil)
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	images := storage.DataURLStore{}

	authSvc := authService.NewService(store.Users, store.Doctors, jwtSvc, hasher, nil,
		authService.AdminCredentials{Email: adminEmail, Password: adminPassword}, log)
	doctorSvc := doctorService.NewService(store.Doctors, store.Slots, images, hasher, time.Minute, m, log)
	userSvc := userService.NewService(store.Users, images, log)
	coordinator := booking.NewCoordinator(store, nil, doctorSvc, m, log)
	dashboardSvc := dashboard.NewService(store, dashboard.Config{LatestLimit: 5})
	gateway := payment.NewStripeGateway("", time.Second, log).WithDryRun(true)
	paymentSvc := payment.NewService(store.Appointments, gateway, nil, payment.Config{Currency: "usd", RejectCancelled: true}, m, log)

	r := NewRouter(
		middleware.NewAuthMiddleware(jwtSvc, adminEmail),
		health.NewHandler(nil),
		promHandler.New(registry),
		RouterConfig{CORSConfig: middleware.DefaultCORSConfig(), Metrics: m},
		adminHandler.NewHandler(authSvc, doctorSvc, coordinator, dashboardSvc),
		doctorHandler.NewHandler(authSvc, doctorSvc, coordinator, dashboardSvc),
		userHandler.NewHandler(authSvc, userSvc, coordinator, paymentSvc),
	)
	r.Setup()
	return &testServer{t: t, handler: r.Engine()}
}

func (s *testServer) do(method, path, header, token string, body io.Reader, contentType string) TestResponse {
	s.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if header != "" {
		req.Header.Set(header, token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	resp := TestResponse{Code: w.Code, Body: map[string]interface{}{}}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp.Body))
	}
	return resp
}

func (s *testServer) postJSON(path, header, token string, payload interface{}) TestResponse {
	s.t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(s.t, err)
	return s.do(http.MethodPost, path, header, token, bytes.NewReader(data), "application/json")
}

func (s *testServer) get(path, header, token string) TestResponse {
	s.t.Helper()
	return s.do(http.MethodGet, path, header, token, nil, "")
}

func (s *testServer) adminToken() string {
	s.t.Helper()
	resp := s.postJSON("/api/admin/login", "", "", map[string]string{"email": adminEmail, "password": adminPassword})
	require.True(s.t, resp.IsSuccess(), resp.Message())
	return resp.GetString("token")
}

func (s *testServer) addDoctor(atoken, email string) string {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fields := map[string]string{
		"name":       "Dr. Smith",
		"email":      email,
		"password":   "doctorpass",
		"speciality": "General physician",
		"degree":     "MBBS",
		"experience": "4 Years",
		"about":      "Family medicine",
		"fees":       "50",
		"address":    `{"line1":"1 Main St","line2":"Springfield"}`,
	}
	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("image", "smith.png")
	require.NoError(s.t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	resp := s.do(http.MethodPost, "/api/admin/add-doctor", middleware.HeaderAdminToken, atoken, &buf, mw.FormDataContentType())
	require.True(s.t, resp.IsSuccess(), resp.Message())
	assert.Equal(s.t, "Doctor added successfully", resp.Message())

	list := s.postJSON("/api/admin/all-doctors", middleware.HeaderAdminToken, atoken, map[string]string{})
	for _, d := range list.List("doctors") {
		doc := d.(map[string]interface{})
		if doc["email"] == email {
			return doc["_id"].(string)
		}
	}
	s.t.Fatalf("doctor %s not listed", email)
	return ""
}

func (s *testServer) registerUser(email string) string {
	s.t.Helper()
	resp := s.postJSON("/api/user/register", "", "", map[string]string{"name": "Ann", "email": email, "password": "patientpass"})
	require.True(s.t, resp.IsSuccess(), resp.Message())
	return resp.GetString("token")
}

func (s *testServer) ledger(docID string) map[string]interface{} {
	s.t.Helper()
	resp := s.get("/api/doctor/list", "", "")
	require.True(s.t, resp.IsSuccess())
	for _, d := range resp.List("doctors") {
		doc := d.(map[string]interface{})
		if doc["_id"] == docID {
			_, hasEmail := doc["email"]
			assert.False(s.t, hasEmail, "public list must not expose email")
			ledger, _ := doc["slots_booked"].(map[string]interface{})
			return ledger
		}
	}
	s.t.Fatalf("doctor %s not in public list", docID)
	return nil
}

func TestBookingLifecycle(t *testing.T) {
	s := newTestServer(t)
	atoken := s.adminToken()
	docID := s.addDoctor(atoken, "smith@clinic.test")
	token := s.registerUser("ann@clinic.test")

	assert.Empty(t, s.ledger(docID))

	book := map[string]string{"docId": docID, "slotDate": slotDate, "slotTime": slotTime}
	resp := s.postJSON("/api/user/book-appointment", middleware.HeaderUserToken, token, book)
	require.True(t, resp.IsSuccess(), resp.Message())
	assert.Equal(t, "Appointment Requested Successfully", resp.Message())
	appointmentID := resp.GetString("appointmentId")
	require.NotEmpty(t, appointmentID)

	assert.Equal(t, []interface{}{slotTime}, s.ledger(docID)[slotDate])

	resp = s.postJSON("/api/user/book-appointment", middleware.HeaderUserToken, token, book)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "Slot already booked", resp.Message())

	resp = s.get("/api/user/appointments", middleware.HeaderUserToken, token)
	require.True(t, resp.IsSuccess())
	require.Len(t, resp.List("appointments"), 1)

	resp = s.postJSON("/api/user/cancel-appointment", middleware.HeaderUserToken, token, map[string]string{"appointmentId": appointmentID})
	require.True(t, resp.IsSuccess(), resp.Message())
	assert.Equal(t, "Appointment Cancelled", resp.Message())
	assert.Empty(t, s.ledger(docID)[slotDate])

	// cancelling again leaves the same state
	resp = s.postJSON("/api/user/cancel-appointment", middleware.HeaderUserToken, token, map[string]string{"appointmentId": appointmentID})
	assert.True(t, resp.IsSuccess())
	assert.Empty(t, s.ledger(docID)[slotDate])

	resp = s.postJSON("/api/user/book-appointment", middleware.HeaderUserToken, token, book)
	assert.True(t, resp.IsSuccess(), "slot is bookable again after cancel")

	resp = s.postJSON("/api/user/delete-appointment", middleware.HeaderUserToken, token, map[string]string{"appointmentId": appointmentID})
	require.True(t, resp.IsSuccess(), resp.Message())
	assert.Equal(t, "History Updated", resp.Message())
	resp = s.get("/api/user/appointments", middleware.HeaderUserToken, token)
	assert.Len(t, resp.List("appointments"), 1)
}

func TestBookUnavailableDoctor(t *testing.T) {
	s := newTestServer(t)
	atoken := s.adminToken()
	docID := s.addDoctor(atoken, "smith@clinic.test")
	token := s.registerUser("ann@clinic.test")

	resp := s.postJSON("/api/admin/change-availability", middleware.HeaderAdminToken, atoken, map[string]string{"docId": docID})
	require.True(t, resp.IsSuccess(), resp.Message())
	assert.Equal(t, "Availability Updated", resp.Message())

	resp = s.postJSON("/api/user/book-appointment", middleware.HeaderUserToken, token,
		map[string]string{"docId": docID, "slotDate": slotDate, "slotTime": slotTime})
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "Doctor not available", resp.Message())

	resp = s.get("/api/admin/appointments", middleware.HeaderAdminToken, atoken)
	require.True(t, resp.IsSuccess())
	assert.Empty(t, resp.List("appointments"))
}

func TestBookMissingDetails(t *testing.T) {
	s := newTestServer(t)
	token := s.registerUser("ann@clinic.test")

	resp := s.postJSON("/api/user/book-appointment", middleware.HeaderUserToken, token, map[string]string{"docId": "x"})
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "Missing Details", resp.Message())
}

func TestPaymentAndCompletion(t *testing.T) {
	s := newTestServer(t)
	atoken := s.adminToken()
	docID := s.addDoctor(atoken, "smith@clinic.test")
	token := s.registerUser("ann@clinic.test")

	resp := s.postJSON("/api/user/book-appointment", middleware.HeaderUserToken, token,
		map[string]string{"docId": docID, "slotDate": slotDate, "slotTime": slotTime})
	require.True(t, resp.IsSuccess(), resp.Message())
	appointmentID := resp.GetString("appointmentId")

	resp = s.postJSON("/api/user/payment-stripe", middleware.HeaderUserToken, token, map[string]string{"appointmentId": appointmentID})
	require.True(t, resp.IsSuccess(), resp.Message())
	assert.NotEmpty(t, resp.GetString("session_url"))

	// a failed outcome never marks the appointment paid, no matter how often it is sent
	for i := 0; i < 2; i++ {
		resp = s.postJSON("/api/user/verify-stripe", middleware.HeaderUserToken, token,
			map[string]string{"appointmentId": appointmentID, "success": "false"})
		assert.False(t, resp.IsSuccess())
		assert.Equal(t, "Payment Failed", resp.Message())
	}
	apts := s.get("/api/user/appointments", middleware.HeaderUserToken, token).List("appointments")
	require.Len(t, apts, 1)
	assert.Equal(t, false, apts[0].(map[string]interface{})["payment"])

	resp = s.postJSON("/api/user/verify-stripe", middleware.HeaderUserToken, token,
		map[string]string{"appointmentId": appointmentID, "success": "true"})
	require.True(t, resp.IsSuccess(), resp.Message())
	assert.Equal(t, "Payment Successful", resp.Message())

	login := s.postJSON("/api/doctor/login", "", "", map[string]string{"email": "smith@clinic.test", "password": "doctorpass"})
	require.True(t, login.IsSuccess(), login.Message())
	dtoken := login.GetString("token")

	resp = s.postJSON("/api/doctor/complete-appointment", middleware.HeaderDoctorToken, dtoken, map[string]string{"appointmentId": appointmentID})
	require.True(t, resp.IsSuccess(), resp.Message())
	assert.Equal(t, "Appointment Completed", resp.Message())

	// completion keeps the slot booked
	assert.Equal(t, []interface{}{slotTime}, s.ledger(docID)[slotDate])

	dash := s.get("/api/doctor/dashboard", middleware.HeaderDoctorToken, dtoken).Object("dashData")
	require.NotNil(t, dash)
	assert.Equal(t, float64(50), dash["earnings"])
	assert.Equal(t, float64(1), dash["patients"])

	adminDash := s.get("/api/admin/dashboard", middleware.HeaderAdminToken, atoken).Object("dashData")
	require.NotNil(t, adminDash)
	assert.Equal(t, float64(1), adminDash["doctors"])
	assert.Equal(t, float64(1), adminDash["appointments"])
	assert.Equal(t, float64(1), adminDash["patients"])

	profile := s.get("/api/doctor/profile", middleware.HeaderDoctorToken, dtoken).Object("profileData")
	require.NotNil(t, profile)
	assert.Equal(t, "Dr. Smith", profile["name"])
}

func TestDoctorCannotCompleteOthersAppointment(t *testing.T) {
	s := newTestServer(t)
	atoken := s.adminToken()
	docID := s.addDoctor(atoken, "smith@clinic.test")
	s.addDoctor(atoken, "jones@clinic.test")
	token := s.registerUser("ann@clinic.test")

	resp := s.postJSON("/api/user/book-appointment", middleware.HeaderUserToken, token,
		map[string]string{"docId": docID, "slotDate": slotDate, "slotTime": slotTime})
	require.True(t, resp.IsSuccess(), resp.Message())

	login := s.postJSON("/api/doctor/login", "", "", map[string]string{"email": "jones@clinic.test", "password": "doctorpass"})
	require.True(t, login.IsSuccess())

	resp = s.postJSON("/api/doctor/complete-appointment", middleware.HeaderDoctorToken, login.GetString("token"),
		map[string]string{"appointmentId": resp.GetString("appointmentId")})
	assert.False(t, resp.IsSuccess())
	assert.Empty(t, s.get("/api/doctor/appointments", middleware.HeaderDoctorToken, login.GetString("token")).List("appointments"))
}

func TestAuthHeaders(t *testing.T) {
	s := newTestServer(t)

	resp := s.get("/api/user/get-profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Equal(t, "Not Authorized. Login Again", resp.Message())

	token := s.registerUser("ann@clinic.test")
	resp = s.get("/api/user/get-profile", middleware.HeaderUserToken, token)
	require.True(t, resp.IsSuccess())
	assert.Equal(t, "ann@clinic.test", resp.Object("userData")["email"])

	// a patient token does not open the admin area
	resp = s.get("/api/admin/dashboard", middleware.HeaderAdminToken, token)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = s.postJSON("/api/admin/login", "", "", map[string]string{"email": adminEmail, "password": "wrong"})
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "Invalid credentials", resp.Message())

	resp = s.postJSON("/api/user/google-auth", "", "", map[string]string{"idToken": "abc"})
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, "Google Auth Failed", resp.Message())
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	resp := s.postJSON("/api/user/register", "", "", map[string]string{"name": "Ann", "email": "bad", "password": "patientpass"})
	assert.Equal(t, "Valid email required", resp.Message())

	resp = s.postJSON("/api/user/register", "", "", map[string]string{"name": "Ann", "email": "ann@clinic.test", "password": "short"})
	assert.Equal(t, "Password too short", resp.Message())

	s.registerUser("ann@clinic.test")
	resp = s.postJSON("/api/user/register", "", "", map[string]string{"name": "Ann", "email": "ann@clinic.test", "password": "patientpass"})
	assert.Equal(t, "User already exists", resp.Message())
}

func TestUpdateUserProfile(t *testing.T) {
	s := newTestServer(t)
	token := s.registerUser("ann@clinic.test")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "Ann Lee"))
	require.NoError(t, mw.WriteField("phone", "5550100"))
	require.NoError(t, mw.WriteField("dob", "1990-05-01"))
	require.NoError(t, mw.WriteField("gender", "Female"))
	require.NoError(t, mw.WriteField("address", `{"line1":"2 Oak Ave","line2":""}`))
	require.NoError(t, mw.Close())

	resp := s.do(http.MethodPost, "/api/user/update-profile", middleware.HeaderUserToken, token, &buf, mw.FormDataContentType())
	require.True(t, resp.IsSuccess(), resp.Message())
	assert.Equal(t, "Profile Updated", resp.Message())

	user := s.get("/api/user/get-profile", middleware.HeaderUserToken, token).Object("userData")
	assert.Equal(t, "Ann Lee", user["name"])
	assert.Equal(t, "2 Oak Ave", user["address"].(map[string]interface{})["line1"])
}

func TestOperationalEndpoints(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.String())

	assert.Equal(t, http.StatusOK, s.get("/health/live", "", "").Code)
	assert.Equal(t, http.StatusOK, s.get("/health/ready", "", "").Code)

	s.get("/api/doctor/list", "", "")
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clinic_http_requests_total")
}
