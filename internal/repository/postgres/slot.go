package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
)

// Reserve is a single conditional insert on the (doctor_id, slot_date,
// slot_time) primary key. Concurrent callers for one slot see exactly one
// affected row between them.
func (r *slotRepository) Reserve(ctx context.Context, key model.SlotKey, appointmentID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO doctor_slots (doctor_id, slot_date, slot_time, appointment_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doctor_id, slot_date, slot_time) DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query, key.DoctorID, key.Date, key.Time, appointmentID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve slot %s: %w", key, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to reserve slot %s: %w", key, err)
	}
	return n > 0, nil
}

func (r *slotRepository) Release(ctx context.Context, key model.SlotKey, appointmentID uuid.UUID) error {
	query := `
		DELETE FROM doctor_slots
		WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3 AND appointment_id = $4
	`
	if _, err := r.db.ExecContext(ctx, query, key.DoctorID, key.Date, key.Time, appointmentID); err != nil {
		return fmt.Errorf("failed to release slot %s: %w", key, err)
	}
	return nil
}

func (r *slotRepository) IsFree(ctx context.Context, key model.SlotKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM doctor_slots
			WHERE doctor_id = $1 AND slot_date = $2 AND slot_time = $3
		)
	`
	var taken bool
	if err := r.db.GetContext(ctx, &taken, query, key.DoctorID, key.Date, key.Time); err != nil {
		return false, fmt.Errorf("failed to check slot %s: %w", key, err)
	}
	return !taken, nil
}

type slotRow struct {
	DoctorID uuid.UUID `db:"doctor_id"`
	SlotDate string    `db:"slot_date"`
	SlotTime string    `db:"slot_time"`
}

func (r *slotRepository) Ledger(ctx context.Context, doctorID uuid.UUID) (model.SlotLedger, error) {
	query := `
		SELECT doctor_id, slot_date, slot_time FROM doctor_slots
		WHERE doctor_id = $1
		ORDER BY created_at, seq
	`
	var rows []slotRow
	if err := r.db.SelectContext(ctx, &rows, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	ledger := model.SlotLedger{}
	for _, row := range rows {
		ledger.Reserve(row.SlotDate, row.SlotTime)
	}
	return ledger, nil
}

func (r *slotRepository) Ledgers(ctx context.Context) (map[uuid.UUID]model.SlotLedger, error) {
	query := `SELECT doctor_id, slot_date, slot_time FROM doctor_slots ORDER BY created_at, seq`

	var rows []slotRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to load ledgers: %w", err)
	}

	out := make(map[uuid.UUID]model.SlotLedger)
	for _, row := range rows {
		l, ok := out[row.DoctorID]
		if !ok {
			l = model.SlotLedger{}
			out[row.DoctorID] = l
		}
		l.Reserve(row.SlotDate, row.SlotTime)
	}
	return out, nil
}
