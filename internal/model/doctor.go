package model

import (
	"github.com/google/uuid"
)

// Doctor is a bookable practitioner. SlotsBooked is projected from the slot
// ledger and is never written through this struct.
type Doctor struct {
	ID           uuid.UUID  `json:"_id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Email        string     `json:"email,omitempty" db:"email"`
	PasswordHash string     `json:"-" db:"password_hash"`
	Image        string     `json:"image" db:"image"`
	Speciality   string     `json:"speciality" db:"speciality"`
	Degree       string     `json:"degree" db:"degree"`
	Experience   string     `json:"experience" db:"experience"`
	About        string     `json:"about" db:"about"`
	Available    bool       `json:"available" db:"available"`
	Fees         float64    `json:"fees" db:"fees"`
	Address      Address    `json:"address" db:"address"`
	Date         int64      `json:"date" db:"date"`
	SlotsBooked  SlotLedger `json:"slots_booked" db:"-"`
}

// Public returns the copy served on the unauthenticated doctor list.
func (d Doctor) Public() Doctor {
	d.Email = ""
	d.PasswordHash = ""
	return d
}

// Snapshot freezes the fields copied into an appointment at booking time.
func (d Doctor) Snapshot() DoctorSnapshot {
	return DoctorSnapshot{
		ID:         d.ID,
		Name:       d.Name,
		Email:      d.Email,
		Image:      d.Image,
		Speciality: d.Speciality,
		Degree:     d.Degree,
		Experience: d.Experience,
		About:      d.About,
		Fees:       d.Fees,
		Address:    d.Address,
	}
}

// AddDoctorRequest is the multipart form posted by admins. The image part is
// read separately.
type AddDoctorRequest struct {
	Name       string `form:"name"`
	Email      string `form:"email"`
	Password   string `form:"password"`
	Speciality string `form:"speciality"`
	Degree     string `form:"degree"`
	Experience string `form:"experience"`
	About      string `form:"about"`
	Fees       string `form:"fees"`
	Address    string `form:"address"`
}

// UpdateDoctorProfileRequest is sent by a signed-in doctor. Nil fields are left as is.
type UpdateDoctorProfileRequest struct {
	Fees      *float64 `json:"fees"`
	Address   *Address `json:"address"`
	Available *bool    `json:"available"`
}

type DoctorIDRequest struct {
	DocID string `json:"docId" binding:"required"`
}
