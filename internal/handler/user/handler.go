// Package user serves the patient endpoints under /api/user.
package user

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-booking-api/internal/handler"
	"github.com/jwalitptl/clinic-booking-api/internal/middleware"
	"github.com/jwalitptl/clinic-booking-api/internal/model"
	authService "github.com/jwalitptl/clinic-booking-api/internal/service/auth"
	"github.com/jwalitptl/clinic-booking-api/internal/service/booking"
	"github.com/jwalitptl/clinic-booking-api/internal/service/payment"
	userService "github.com/jwalitptl/clinic-booking-api/internal/service/user"
	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
	"github.com/jwalitptl/clinic-booking-api/pkg/httputil"
)

type Handler struct {
	auth     *authService.Service
	users    *userService.Service
	booking  *booking.Coordinator
	payments *payment.Service
}

func NewHandler(auth *authService.Service, users *userService.Service, booking *booking.Coordinator, payments *payment.Service) *Handler {
	return &Handler{auth: auth, users: users, booking: booking, payments: payments}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	users := r.Group("/user")
	{
		users.POST("/register", h.Register)
		users.POST("/login", h.Login)
		users.POST("/google-auth", h.GoogleAuth)

		protected := users.Group("", auth.RequireUser())
		protected.GET("/get-profile", h.GetProfile)
		protected.POST("/update-profile", h.UpdateProfile)
		protected.POST("/book-appointment", h.BookAppointment)
		protected.GET("/appointments", h.ListAppointments)
		protected.POST("/cancel-appointment", h.CancelAppointment)
		protected.POST("/delete-appointment", h.DeleteAppointment)
		protected.POST("/payment-stripe", h.PaymentStripe)
		protected.POST("/verify-stripe", h.VerifyStripe)
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	token, err := h.auth.RegisterUser(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"token": token})
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	token, err := h.auth.LoginUser(c.Request.Context(), req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"token": token})
}

func (h *Handler) GoogleAuth(c *gin.Context) {
	var req model.GoogleAuthRequest
	if !handler.Bind(c, &req, "Google Auth Failed") {
		return
	}
	token, err := h.auth.GoogleLogin(c.Request.Context(), req.IDToken)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"token": token})
}

func (h *Handler) GetProfile(c *gin.Context) {
	user, err := h.users.Profile(c.Request.Context(), middleware.Actor(c).ID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"userData": user})
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var req model.UpdateUserProfileRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	image, closeImage, err := handler.FormImage(c)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("Invalid image upload", err))
		return
	}
	defer closeImage()

	if err := h.users.UpdateProfile(c.Request.Context(), middleware.Actor(c).ID, req, image); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Profile Updated", nil)
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.BookAppointmentRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	apt, err := h.booking.Book(c.Request.Context(), middleware.Actor(c).ID, booking.BookRequest{
		DoctorID: req.DocID,
		SlotDate: req.SlotDate,
		SlotTime: req.SlotTime,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Appointment Requested Successfully", gin.H{"appointmentId": apt.ID})
}

func (h *Handler) ListAppointments(c *gin.Context) {
	appointments, err := h.booking.List(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"appointments": appointments})
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

// DeleteAppointment removes the entry from the patient's history. The slot
// ledger is untouched.
func (h *Handler) DeleteAppointment(c *gin.Context) {
	var req model.AppointmentIDRequest
	if !handler.Bind(c, &req, "Missing Details") {
		return
	}
	if err := h.booking.DeleteHistory(c.Request.Context(), middleware.Actor(c).ID, req.AppointmentID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "History Updated", nil)
}

func (h *Handler) PaymentStripe(c *gin.Context) {
	var req model.AppointmentIDRequest
	if !handler.Bind(c, &req, "Invalid Appointment") {
		return
	}
	checkout, err := h.payments.Initiate(c.Request.Context(), middleware.Actor(c).ID, req.AppointmentID, c.GetHeader("Origin"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "", gin.H{"session_url": checkout.URL})
}

func (h *Handler) VerifyStripe(c *gin.Context) {
	var req model.VerifyPaymentRequest
	if !handler.Bind(c, &req, "Invalid Appointment") {
		return
	}
	if err := h.payments.Verify(c.Request.Context(), middleware.Actor(c).ID, req.AppointmentID, bool(req.Success)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, "Payment Successful", nil)
}
