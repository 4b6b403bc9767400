// Package admin serves the back-office endpoints under /api/admin.
package admin

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-booking-api/internal/handler"
	"github.com/jwalitptl/clinic-booking-api/internal/middleware"
	"github.com/jwalitptl/clinic-booking-api/internal/model"
	authService "github.com/jwalitptl/clinic-booking-api/internal/service/auth"
	"github.com/jwalitptl/clinic-booking-api/internal/service/booking"
	"github.com/jwalitptl/clinic-booking-api/internal/service/dashboard"
	doctorService "github.com/jwalitptl/clinic-booking-api/internal/service/doctor"
	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
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
	admin := r.Group("/admin")
	{
		admin.POST("/login", h.Login)

		protected := admin.Group("", auth.RequireAdmin())
		protected.POST("/add-doctor", h.AddDoctor)
		protected.POST("/all-doctors", h.AllDoctors)
		protected.POST("/change-availability", h.ChangeAvailability)
		protected.GET("/appointments", h.ListAppointments)
		protected.POST("/cancel-appointment", h.CancelAppointment)
		protected.GET("/dashboard", h.Dashboard)
	}
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	token, err := h.auth.LoginAdmin(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"token": token})
}

// AddDoctor takes a multipart form with the doctor fields and an image part.
func (h *Handler) AddDoctor(c *gin.Context) {
	var req model.AddDoctorRequest
	if !handler.Bind(c, &req, "Missing Data") {
		return
	}
	image, closeImage, err := handler.FormImage(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("Missing Data", err))
		return
	}
	defer closeImage()

	if _, err := h.doctors.AddDoctor(c.Request.Context(), req, image); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Doctor added successfully", nil)
}

func (h *Handler) AllDoctors(c *gin.Context) {
	doctors, err := h.doctors.ListAll(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"doctors": doctors})
}

func (h *Handler) ChangeAvailability(c *gin.Context) {
	var req model.DoctorIDRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	available, err := h.doctors.ChangeAvailability(c.Request.Context(), req.DocID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Availability Updated", gin.H{"available": available})
}

func (h *Handler) ListAppointments(c *gin.Context) {
	appointments, err := h.booking.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"appointments": appointments})
}

// CancelAppointment lets an admin cancel any appointment.
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
	data, err := h.dashboard.Admin(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"dashData": data})
}
