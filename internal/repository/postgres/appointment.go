package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
)

const appointmentColumns = `id, user_id, doc_id, slot_date, slot_time, user_data, doc_data,
	amount, date, cancelled, payment, is_completed, payment_ref`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.UserID,
		appointment.DocID,
		appointment.SlotDate,
		appointment.SlotTime,
		appointment.UserData,
		appointment.DocData,
		appointment.Amount,
		appointment.Date,
		appointment.Cancelled,
		appointment.Payment,
		appointment.IsCompleted,
		appointment.PaymentRef,
	)
	if err != nil {
		return wrapErr("create appointment", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, wrapErr("get appointment", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete appointment", err)
	}
	return expectRow("delete appointment", result)
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	var (
		where []string
		args  []interface{}
	)
	if filters != nil {
		if filters.UserID != uuid.Nil {
			args = append(args, filters.UserID)
			where = append(where, "user_id = $"+strconv.Itoa(len(args)))
		}
		if filters.DocID != uuid.Nil {
			args = append(args, filters.DocID)
			where = append(where, "doc_id = $"+strconv.Itoa(len(args)))
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, id"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, wrapErr("list appointments", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE appointments SET cancelled = TRUE WHERE id = $1`, id)
	if err != nil {
		return wrapErr("cancel appointment", err)
	}
	return expectRow("cancel appointment", result)
}

func (r *appointmentRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE appointments SET is_completed = TRUE WHERE id = $1`, id)
	if err != nil {
		return wrapErr("complete appointment", err)
	}
	return expectRow("complete appointment", result)
}

func (r *appointmentRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE appointments SET payment = TRUE WHERE id = $1`, id)
	if err != nil {
		return wrapErr("mark appointment paid", err)
	}
	return expectRow("mark appointment paid", result)
}

func (r *appointmentRepository) SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE appointments SET payment_ref = $1 WHERE id = $2`, ref, id)
	if err != nil {
		return wrapErr("set payment reference", err)
	}
	return expectRow("set payment reference", result)
}
