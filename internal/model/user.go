package model

import (
	"github.com/google/uuid"
)

// Defaults applied to freshly registered patients.
const (
	DefaultUserImage  = "https://res.cloudinary.com/demo/image/upload/v1/avatar/default.png"
	DefaultUserPhone  = "000000000"
	DefaultUserGender = "Not Selected"
	DefaultUserDOB    = "Not Selected"
)

// User is a patient account.
type User struct {
	ID           uuid.UUID `json:"_id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Image        string    `json:"image" db:"image"`
	Phone        string    `json:"phone" db:"phone"`
	Address      Address   `json:"address" db:"address"`
	Gender       string    `json:"gender" db:"gender"`
	DOB          string    `json:"dob" db:"dob"`
}

// NewUser fills the profile defaults.
func NewUser(name, email, passwordHash string) *User {
	return &User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		Image:        DefaultUserImage,
		Phone:        DefaultUserPhone,
		Gender:       DefaultUserGender,
		DOB:          DefaultUserDOB,
	}
}

// Snapshot freezes the fields copied into an appointment at booking time.
func (u User) Snapshot() UserSnapshot {
	return UserSnapshot{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Image:   u.Image,
		Phone:   u.Phone,
		Address: u.Address,
		Gender:  u.Gender,
		DOB:     u.DOB,
	}
}

// UpdateUserProfileRequest is the multipart profile form. Address arrives as
// a JSON string.
type UpdateUserProfileRequest struct {
	Name    string `form:"name"`
	Phone   string `form:"phone"`
	Address string `form:"address"`
	Gender  string `form:"gender"`
	DOB     string `form:"dob"`
}
