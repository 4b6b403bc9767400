package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
)

const doctorColumns = `id, name, email, password_hash, image, speciality, degree,
	experience, about, available, fees, address, date`

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	query := `
		INSERT INTO doctors (` + doctorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, query,
		doctor.ID,
		doctor.Name,
		doctor.Email,
		doctor.PasswordHash,
		doctor.Image,
		doctor.Speciality,
		doctor.Degree,
		doctor.Experience,
		doctor.About,
		doctor.Available,
		doctor.Fees,
		doctor.Address,
		doctor.Date,
	)
	if err != nil {
		return wrapErr("create doctor", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE id = $1`

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, id); err != nil {
		return nil, wrapErr("get doctor", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors WHERE lower(email) = lower($1)`

	var doctor model.Doctor
	if err := r.db.GetContext(ctx, &doctor, query, email); err != nil {
		return nil, wrapErr("get doctor by email", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) UpdateProfile(ctx context.Context, id uuid.UUID, req model.UpdateDoctorProfileRequest) error {
	query := `
		UPDATE doctors
		SET fees = COALESCE($1, fees),
			address = COALESCE($2::jsonb, address),
			available = COALESCE($3, available)
		WHERE id = $4
	`
	var address interface{}
	if req.Address != nil {
		address = *req.Address
	}
	result, err := r.db.ExecContext(ctx, query, req.Fees, address, req.Available, id)
	if err != nil {
		return wrapErr("update doctor profile", err)
	}
	return expectRow("update doctor profile", result)
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	query := `SELECT ` + doctorColumns + ` FROM doctors ORDER BY date, id`

	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, wrapErr("list doctors", err)
	}
	return doctors, nil
}

func (r *doctorRepository) ToggleAvailability(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE doctors SET available = NOT available WHERE id = $1 RETURNING available`

	var available bool
	if err := r.db.GetContext(ctx, &available, query, id); err != nil {
		return false, wrapErr("toggle availability", err)
	}
	return available, nil
}
