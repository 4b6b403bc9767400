package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
)

func TestSlotReserveIsExclusive(t *testing.T) {
	ctx := context.Background()
	slots := New().Store().Slots
	key := model.SlotKey{DoctorID: uuid.New(), Date: "10_1_2024", Time: "10:00 AM"}

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := slots.Reserve(ctx, key, uuid.New())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

func TestSlotReleaseIsOwnerKeyed(t *testing.T) {
	ctx := context.Background()
	slots := New().Store().Slots
	key := model.SlotKey{DoctorID: uuid.New(), Date: "10_1_2024", Time: "10:00 AM"}
	owner, other := uuid.New(), uuid.New()

	ok, err := slots.Reserve(ctx, key, owner)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, slots.Release(ctx, key, other))
	free, err := slots.IsFree(ctx, key)
	require.NoError(t, err)
	assert.False(t, free)

	require.NoError(t, slots.Release(ctx, key, owner))
	require.NoError(t, slots.Release(ctx, key, owner))
	free, err = slots.IsFree(ctx, key)
	require.NoError(t, err)
	assert.True(t, free)
}

func TestLedgerKeepsBookingOrder(t *testing.T) {
	ctx := context.Background()
	slots := New().Store().Slots
	doc := uuid.New()

	for _, tm := range []string{"11:00 AM", "09:00 AM", "10:00 AM"} {
		_, err := slots.Reserve(ctx, model.SlotKey{DoctorID: doc, Date: "10_1_2024", Time: tm}, uuid.New())
		require.NoError(t, err)
	}

	l, err := slots.Ledger(ctx, doc)
	require.NoError(t, err)
	assert.Equal(t, model.SlotLedger{"10_1_2024": {"11:00 AM", "09:00 AM", "10:00 AM"}}, l)

	empty, err := slots.Ledger(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUserEmailIsUnique(t *testing.T) {
	ctx := context.Background()
	users := New().Store().Users

	require.NoError(t, users.Create(ctx, model.NewUser("Ann", "ann@example.com", "h")))
	err := users.Create(ctx, model.NewUser("Ann", "ANN@example.com", "h"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	_, err = users.GetByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAppointmentLifecycleFlags(t *testing.T) {
	ctx := context.Background()
	apts := New().Store().Appointments
	apt := &model.Appointment{ID: uuid.New(), UserID: uuid.New(), DocID: uuid.New(), Date: 1}
	require.NoError(t, apts.Create(ctx, apt))

	require.NoError(t, apts.MarkCancelled(ctx, apt.ID))
	require.NoError(t, apts.MarkCancelled(ctx, apt.ID))
	require.NoError(t, apts.MarkPaid(ctx, apt.ID))

	got, err := apts.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
	assert.True(t, got.Payment)
	assert.False(t, got.IsCompleted)

	list, err := apts.List(ctx, &model.AppointmentFilters{UserID: apt.UserID})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = apts.List(ctx, &model.AppointmentFilters{UserID: uuid.New()})
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, apts.Delete(ctx, apt.ID))
	assert.ErrorIs(t, apts.MarkPaid(ctx, apt.ID), repository.ErrNotFound)
}

func TestDoctorUpdateProfileWritesOnlySetFields(t *testing.T) {
	ctx := context.Background()
	doctors := New().Store().Doctors
	doctor := &model.Doctor{
		ID:        uuid.New(),
		Name:      "Smith",
		Email:     "smith@clinic.test",
		Available: true,
		Fees:      50,
		Address:   model.Address{Line1: "1 Main St"},
	}
	require.NoError(t, doctors.Create(ctx, doctor))

	available, err := doctors.ToggleAvailability(ctx, doctor.ID)
	require.NoError(t, err)
	require.False(t, available)

	fees := 80.0
	require.NoError(t, doctors.UpdateProfile(ctx, doctor.ID, model.UpdateDoctorProfileRequest{Fees: &fees}))

	stored, err := doctors.Get(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, stored.Fees)
	assert.False(t, stored.Available)
	assert.Equal(t, "1 Main St", stored.Address.Line1)

	err = doctors.UpdateProfile(ctx, uuid.New(), model.UpdateDoctorProfileRequest{Fees: &fees})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
