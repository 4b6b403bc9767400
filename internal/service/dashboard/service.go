// Package dashboard folds appointments into the admin and doctor summaries.
package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
)

type Config struct {
	AdminIncludeCancelled  bool
	DoctorIncludeCancelled bool
	LatestLimit            int
}

type Service struct {
	store repository.Store
	cfg   Config
}

func NewService(store repository.Store, cfg Config) *Service {
	if cfg.LatestLimit <= 0 {
		cfg.LatestLimit = 5
	}
	return &Service{store: store, cfg: cfg}
}

func (s *Service) Admin(ctx context.Context) (*model.AdminDashboard, error) {
	doctors, err := s.store.Doctors.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	patients, err := s.store.Users.Count(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	appointments, err := s.store.Appointments.List(ctx, &model.AppointmentFilters{})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	dash := &model.AdminDashboard{
		Doctors:            len(doctors),
		Appointments:       len(appointments),
		Patients:           patients,
		TotalEarnings:      Earnings(appointments, s.cfg.AdminIncludeCancelled),
		SpecialtyData:      make(map[string]int),
		AppointmentTrends:  MonthlyTrends(appointments),
		LatestAppointments: Latest(appointments, s.cfg.LatestLimit),
	}
	for _, d := range doctors {
		dash.SpecialtyData[d.Speciality]++
	}
	return dash, nil
}

func (s *Service) Doctor(ctx context.Context, doctorID uuid.UUID) (*model.DoctorDashboard, error) {
	appointments, err := s.store.Appointments.List(ctx, &model.AppointmentFilters{DocID: doctorID})
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	patients := make(map[uuid.UUID]struct{})
	for _, a := range appointments {
		if !a.Cancelled {
			patients[a.UserID] = struct{}{}
		}
	}

	return &model.DoctorDashboard{
		Earnings:           Earnings(appointments, s.cfg.DoctorIncludeCancelled),
		Appointments:       len(appointments),
		Patients:           len(patients),
		LatestAppointments: Latest(appointments, s.cfg.LatestLimit),
	}, nil
}

// Earnings sums the amount of paid or completed appointments.
func Earnings(appointments []*model.Appointment, includeCancelled bool) float64 {
	var total float64
	for _, a := range appointments {
		if !a.Earning() {
			continue
		}
		if a.Cancelled && !includeCancelled {
			continue
		}
		total += a.Amount
	}
	return total
}

// MonthlyTrends counts appointments by the UTC month they were created in.
func MonthlyTrends(appointments []*model.Appointment) map[string]int {
	trends := make(map[string]int)
	for _, a := range appointments {
		month := time.UnixMilli(a.Date).UTC().Month()
		trends[month.String()[:3]]++
	}
	return trends
}

// Latest returns up to n appointments, newest first. appointments must be
// in creation order.
func Latest(appointments []*model.Appointment, n int) []model.Appointment {
	out := make([]model.Appointment, 0, min(n, len(appointments)))
	for i := len(appointments) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, *appointments[i])
	}
	return out
}
