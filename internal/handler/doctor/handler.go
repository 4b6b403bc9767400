// Package doctor serves the practitioner endpoints under /api/doctor.
package doctor

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-booking-api/internal/handler"
	"github.com/jwalitptl/clinic-booking-api/internal/middleware"
	"github.com/jwalitptl/clinic-booking-api/internal/model"
	authService "github.com/jwalitptl/clinic-booking-api/internal/service/auth"
	"github.com/jwalitptl/clinic-booking-api/internal/service/booking"
	"github.com/jwalitptl/clinic-booking-api/internal/service/dashboard"
	doctorService "github.com/jwalitptl/clinic-booking-api/internal/service/doctor"
	"github.com/jwalitptl/clinic-booking-api/pkg/httputil"
)

type Handler struct {
	auth      *authService.Service
	doctors   *doctorService.Service
	booking   *booking.Coordinator
	dashboard *dashboard.Service
}

func NewHandler(auth *authService.Service, doctors *doctorService.Service, booking *booking.Coordinator, dashboard *dashboard.Service) *Handler {
	return &Handler{auth: auth, doctors: doctors, booking: booking, dashboard: dashboard}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	doctors := r.Group("/doctor")
	{
		doctors.GET("/list", h.List)
		doctors.POST("/login", h.Login)

		protected := doctors.Group("", auth.RequireDoctor())
		protected.GET("/appointments", h.ListAppointments)
		protected.POST("/complete-appointment", h.CompleteAppointment)
		protected.POST("/cancel-appointment", h.CancelAppointment)
		protected.GET("/dashboard", h.Dashboard)
		protected.GET("/profile", h.Profile)
		protected.POST("/update-profile", h.UpdateProfile)
	}
}

// List is public. Emails and password hashes are stripped.
func (h *Handler) List(c *gin.Context) {
	doctors, err := h.doctors.ListPublic(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"doctors": doctors})
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	token, err := h.auth.LoginDoctor(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"token": token})
}

func (h *Handler) ListAppointments(c *gin.Context) {
	appointments, err := h.booking.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"appointments": appointments})
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	var req model.AppointmentIDRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	if err := h.booking.Complete(c.Request.Context(), middleware.Actor(c).ID, req.AppointmentID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Appointment Completed", nil)
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	var req model.AppointmentIDRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	if err := h.booking.Cancel(c.Request.Context(), middleware.Actor(c), req.AppointmentID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Appointment Cancelled", nil)
}

func (h *Handler) Dashboard(c *gin.Context) {
	data, err := h.dashboard.Doctor(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"dashData": data})
}

func (h *Handler) Profile(c *gin.Context) {
	profile, err := h.doctors.Profile(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"profileData": profile})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateDoctorProfileRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	if err := h.doctors.UpdateProfile(c.Request.Context(), middleware.Actor(c).ID, req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Profile Updated", nil)
}
