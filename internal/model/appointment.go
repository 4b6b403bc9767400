package model

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Appointment is one booking. UserData and DocData are frozen at creation.
// Payment only ever moves from false to true.
type Appointment struct {
	ID          uuid.UUID      `json:"_id" db:"id"`
	UserID      uuid.UUID      `json:"userId" db:"user_id"`
	DocID       uuid.UUID      `json:"docId" db:"doc_id"`
	SlotDate    string         `json:"slotDate" db:"slot_date"`
	SlotTime    string         `json:"slotTime" db:"slot_time"`
	UserData    UserSnapshot   `json:"userData" db:"user_data"`
	DocData     DoctorSnapshot `json:"docData" db:"doc_data"`
	Amount      float64        `json:"amount" db:"amount"`
	Date        int64          `json:"date" db:"date"`
	Cancelled   bool           `json:"cancelled" db:"cancelled"`
	Payment     bool           `json:"payment" db:"payment"`
	IsCompleted bool           `json:"isCompleted" db:"is_completed"`
	PaymentRef  string         `json:"-" db:"payment_ref"`
}

// Slot returns the ledger key this appointment holds while not cancelled.
func (a *Appointment) Slot() SlotKey {
	return SlotKey{DoctorID: a.DocID, Date: a.SlotDate, Time: a.SlotTime}
}

// Earning reports whether the appointment counts toward earnings, ignoring cancellation.
func (a *Appointment) Earning() bool {
	return a.Payment || a.IsCompleted
}

// AppointmentFilters narrows appointment listings. Zero values match everything.
type AppointmentFilters struct {
	UserID uuid.UUID
	DocID  uuid.UUID
}

type BookAppointmentRequest struct {
	DocID    string `json:"docId" binding:"required"`
	SlotDate string `json:"slotDate" binding:"required"`
	SlotTime string `json:"slotTime" binding:"required"`
}

type AppointmentIDRequest struct {
	AppointmentID string `json:"appointmentId" binding:"required"`
}

type VerifyPaymentRequest struct {
	AppointmentID string   `json:"appointmentId" binding:"required"`
	Success       FlexBool `json:"success"`
}

// FlexBool accepts both true and "true". The checkout redirect hands the
// client a query-string value which is posted back verbatim.
type FlexBool bool

func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = FlexBool(t)
	case string:
		*b = FlexBool(strings.EqualFold(strings.TrimSpace(t), "true"))
	default:
		*b = false
	}
	return nil
}

// CheckoutHandle is what the payment bridge returns for a new session.
// Amount is in minor currency units.
type CheckoutHandle struct {
	URL         string `json:"session_url"`
	SessionID   string `json:"session_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}
