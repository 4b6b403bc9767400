package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

// UserSnapshot is the patient as they were when the appointment was booked.
type UserSnapshot struct {
	ID      uuid.UUID `json:"_id"`
	Name    string    `json:"name"`
	Email   string    `json:"email"`
	Image   string    `json:"image"`
	Phone   string    `json:"phone"`
	Address Address   `json:"address"`
	Gender  string    `json:"gender"`
	DOB     string    `json:"dob"`
}

func (s UserSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *UserSnapshot) Scan(src interface{}) error {
	return scanJSON(src, s)
}

// DoctorSnapshot is the doctor as they were when the appointment was booked.
type DoctorSnapshot struct {
	ID         uuid.UUID `json:"_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Image      string    `json:"image"`
	Speciality string    `json:"speciality"`
	Degree     string    `json:"degree"`
	Experience string    `json:"experience"`
	About      string    `json:"about"`
	Fees       float64   `json:"fees"`
	Address    Address   `json:"address"`
}

func (s DoctorSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *DoctorSnapshot) Scan(src interface{}) error {
	return scanJSON(src, s)
}
