// Package memory is an in-process implementation of the repositories, used by
// tests and by the `memory` database driver for local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
)

type slotRow struct {
	appointmentID uuid.UUID
	seq           int64
}

type appointmentRow struct {
	apt model.Appointment
	seq int64
}

// DB holds every table behind one mutex. The mutex is never held across a
// call out of this package.
type DB struct {
	mu           sync.RWMutex
	seq          int64
	users        map[uuid.UUID]model.User
	doctors      map[uuid.UUID]model.Doctor
	slots        map[model.SlotKey]slotRow
	appointments map[uuid.UUID]appointmentRow
}

func New() *DB {
	return &DB{
		users:        make(map[uuid.UUID]model.User),
		doctors:      make(map[uuid.UUID]model.Doctor),
		slots:        make(map[model.SlotKey]slotRow),
		appointments: make(map[uuid.UUID]appointmentRow),
	}
}

// Store returns the repository set backed by db.
func (db *DB) Store() repository.Store {
	return repository.Store{
		Users:        NewUserRepository(db),
		Doctors:      NewDoctorRepository(db),
		Slots:        NewSlotRepository(db),
		Appointments: NewAppointmentRepository(db),
	}
}

func (db *DB) next() int64 {
	db.seq++
	return db.seq
}

type userRepository struct{ db *DB }

func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("failed to create user: %w", repository.ErrDuplicate)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, fmt.Errorf("failed to get user: %w", repository.ErrNotFound)
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, u := range r.db.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, fmt.Errorf("failed to get user by email: %w", repository.ErrNotFound)
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.users[user.ID]; !ok {
		return fmt.Errorf("failed to update user: %w", repository.ErrNotFound)
	}
	r.db.users[user.ID] = *user
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()
	return len(r.db.users), nil
}

type doctorRepository struct{ db *DB }

func NewDoctorRepository(db *DB) repository.DoctorRepository {
	return &doctorRepository{db: db}
}

func (r *doctorRepository) Create(ctx context.Context, doctor *model.Doctor) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, d := range r.db.doctors {
		if strings.EqualFold(d.Email, doctor.Email) {
			return fmt.Errorf("failed to create doctor: %w", repository.ErrDuplicate)
		}
	}
	if doctor.ID == uuid.Nil {
		doctor.ID = uuid.New()
	}
	stored := *doctor
	stored.SlotsBooked = nil
	r.db.doctors[doctor.ID] = stored
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	d, ok := r.db.doctors[id]
	if !ok {
		return nil, fmt.Errorf("failed to get doctor: %w", repository.ErrNotFound)
	}
	return &d, nil
}

func (r *doctorRepository) GetByEmail(ctx context.Context, email string) (*model.Doctor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, d := range r.db.doctors {
		if strings.EqualFold(d.Email, email) {
			d := d
			return &d, nil
		}
	}
	return nil, fmt.Errorf("failed to get doctor by email: %w", repository.ErrNotFound)
}

func (r *doctorRepository) UpdateProfile(ctx context.Context, id uuid.UUID, req model.UpdateDoctorProfileRequest) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	d, ok := r.db.doctors[id]
	if !ok {
		return fmt.Errorf("failed to update doctor profile: %w", repository.ErrNotFound)
	}
	if req.Fees != nil {
		d.Fees = *req.Fees
	}
	if req.Address != nil {
		d.Address = *req.Address
	}
	if req.Available != nil {
		d.Available = *req.Available
	}
	r.db.doctors[id] = d
	return nil
}

func (r *doctorRepository) List(ctx context.Context) ([]*model.Doctor, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make([]*model.Doctor, 0, len(r.db.doctors))
	for _, d := range r.db.doctors {
		d := d
		out = append(out, &d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *doctorRepository) ToggleAvailability(ctx context.Context, id uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	d, ok := r.db.doctors[id]
	if !ok {
		return false, fmt.Errorf("failed to toggle availability: %w", repository.ErrNotFound)
	}
	d.Available = !d.Available
	r.db.doctors[id] = d
	return d.Available, nil
}

type slotRepository struct{ db *DB }

func NewSlotRepository(db *DB) repository.SlotRepository {
	return &slotRepository{db: db}
}

func (r *slotRepository) Reserve(ctx context.Context, key model.SlotKey, appointmentID uuid.UUID) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, taken := r.db.slots[key]; taken {
		return false, nil
	}
	r.db.slots[key] = slotRow{appointmentID: appointmentID, seq: r.db.next()}
	return true, nil
}

func (r *slotRepository) Release(ctx context.Context, key model.SlotKey, appointmentID uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if row, ok := r.db.slots[key]; ok && row.appointmentID == appointmentID {
		delete(r.db.slots, key)
	}
	return nil
}

func (r *slotRepository) IsFree(ctx context.Context, key model.SlotKey) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	_, taken := r.db.slots[key]
	return !taken, nil
}

func (r *slotRepository) Ledger(ctx context.Context, doctorID uuid.UUID) (model.SlotLedger, error) {
	all, err := r.Ledgers(ctx)
	if err != nil {
		return nil, err
	}
	if l, ok := all[doctorID]; ok {
		return l, nil
	}
	return model.SlotLedger{}, nil
}

func (r *slotRepository) Ledgers(ctx context.Context) (map[uuid.UUID]model.SlotLedger, error) {
	r.db.mu.RLock()
	type entry struct {
		key model.SlotKey
		seq int64
	}
	entries := make([]entry, 0, len(r.db.slots))
	for k, row := range r.db.slots {
		entries = append(entries, entry{key: k, seq: row.seq})
	}
	r.db.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make(map[uuid.UUID]model.SlotLedger)
	for _, e := range entries {
		l, ok := out[e.key.DoctorID]
		if !ok {
			l = model.SlotLedger{}
			out[e.key.DoctorID] = l
		}
		l.Reserve(e.key.Date, e.key.Time)
	}
	return out, nil
}

type appointmentRepository struct{ db *DB }

func NewAppointmentRepository(db *DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if apt.ID == uuid.Nil {
		apt.ID = uuid.New()
	}
	if _, exists := r.db.appointments[apt.ID]; exists {
		return fmt.Errorf("failed to create appointment: %w", repository.ErrDuplicate)
	}
	r.db.appointments[apt.ID] = appointmentRow{apt: *apt, seq: r.db.next()}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	row, ok := r.db.appointments[id]
	if !ok {
		return nil, fmt.Errorf("failed to get appointment: %w", repository.ErrNotFound)
	}
	apt := row.apt
	return &apt, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.appointments[id]; !ok {
		return fmt.Errorf("failed to delete appointment: %w", repository.ErrNotFound)
	}
	delete(r.db.appointments, id)
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.db.mu.RLock()
	rows := make([]appointmentRow, 0, len(r.db.appointments))
	for _, row := range r.db.appointments {
		if filters != nil {
			if filters.UserID != uuid.Nil && row.apt.UserID != filters.UserID {
				continue
			}
			if filters.DocID != uuid.Nil && row.apt.DocID != filters.DocID {
				continue
			}
		}
		rows = append(rows, row)
	}
	r.db.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].apt.Date != rows[j].apt.Date {
			return rows[i].apt.Date < rows[j].apt.Date
		}
		return rows[i].seq < rows[j].seq
	})

	out := make([]*model.Appointment, len(rows))
	for i := range rows {
		apt := rows[i].apt
		out[i] = &apt
	}
	return out, nil
}

func (r *appointmentRepository) update(id uuid.UUID, op string, fn func(*model.Appointment)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	row, ok := r.db.appointments[id]
	if !ok {
		return fmt.Errorf("failed to %s: %w", op, repository.ErrNotFound)
	}
	fn(&row.apt)
	r.db.appointments[id] = row
	return nil
}

func (r *appointmentRepository) MarkCancelled(ctx context.Context, id uuid.UUID) error {
	return r.update(id, "cancel appointment", func(a *model.Appointment) { a.Cancelled = true })
}

func (r *appointmentRepository) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return r.update(id, "complete appointment", func(a *model.Appointment) { a.IsCompleted = true })
}

func (r *appointmentRepository) MarkPaid(ctx context.Context, id uuid.UUID) error {
	return r.update(id, "mark appointment paid", func(a *model.Appointment) { a.Payment = true })
}

func (r *appointmentRepository) SetPaymentRef(ctx context.Context, id uuid.UUID, ref string) error {
	return r.update(id, "set payment reference", func(a *model.Appointment) { a.PaymentRef = ref })
}
