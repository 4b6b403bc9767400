package doctor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-booking-api/internal/model"
	"github.com/jwalitptl/clinic-booking-api/internal/repository"
	"github.com/jwalitptl/clinic-booking-api/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
	"github.com/jwalitptl/clinic-booking-api/pkg/logger"
	"github.com/jwalitptl/clinic-booking-api/pkg/metrics"
	"github.com/jwalitptl/clinic-booking-api/pkg/security"
	"github.com/jwalitptl/clinic-booking-api/pkg/storage"
)

type fakeImages struct {
	uploads int
	err     error
}

func (f *fakeImages) Upload(ctx context.Context, folder, filename string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads++
	return "https://img.test/" + folder + "/" + filename, nil
}

func newTestService(t *testing.T, images *fakeImages) (*Service, repository.Store, *metrics.Metrics) {
	t.Helper()
	store := memory.New().Store()
	m := metrics.NewNop()
	svc := NewService(store.Doctors, store.Slots, images, security.NewBcryptHasher(bcrypt.MinCost), time.Minute, m, logger.Nop())
	return svc, store, m
}

func validRequest() model.AddDoctorRequest {
	return model.AddDoctorRequest{
		Name:       "Smith",
		Email:      "smith@clinic.test",
		Password:   "doctorpass",
		Speciality: "Cardiology",
		Degree:     "MBBS",
		Experience: "4 Years",
		About:      "Heart doctor",
		Fees:       "50",
		Address:    `{"line1":"1 Main St","line2":"Springfield"}`,
	}
}

func image() *storage.File {
	return &storage.File{Filename: "smith.png", Body: strings.NewReader("png")}
}

func messageOf(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ""
}

func TestAddDoctor(t *testing.T) {
	images := &fakeImages{}
	svc, store, _ := newTestService(t, images)
	ctx := context.Background()

	doctor, err := svc.AddDoctor(ctx, validRequest(), image())
	require.NoError(t, err)
	assert.True(t, doctor.Available)
	assert.Equal(t, float64(50), doctor.Fees)
	assert.Equal(t, "1 Main St", doctor.Address.Line1)
	assert.Equal(t, "https://img.test/doctors/smith.png", doctor.Image)
	assert.Equal(t, 1, images.uploads)

	stored, err := store.Doctors.GetByEmail(ctx, "smith@clinic.test")
	require.NoError(t, err)
	assert.NotEqual(t, "doctorpass", stored.PasswordHash)

	_, err = svc.AddDoctor(ctx, validRequest(), image())
	assert.Equal(t, "Doctor already exists", messageOf(err))
}

func TestAddDoctorValidation(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeImages{})
	ctx := context.Background()

	req := validRequest()
	req.Degree = ""
	_, err := svc.AddDoctor(ctx, req, image())
	assert.Equal(t, "Missing Data", messageOf(err))

	_, err = svc.AddDoctor(ctx, validRequest(), nil)
	assert.Equal(t, "Missing Data", messageOf(err))

	req = validRequest()
	req.Email = "not-an-email"
	_, err = svc.AddDoctor(ctx, req, image())
	assert.Equal(t, "Invalid email format", messageOf(err))

	req = validRequest()
	req.Password = "short"
	_, err = svc.AddDoctor(ctx, req, image())
	assert.Equal(t, "Password must be at least 8 characters long", messageOf(err))
}

func TestAddDoctorUploadFailure(t *testing.T) {
	svc, store, _ := newTestService(t, &fakeImages{err: errors.New("s3 down")})

	_, err := svc.AddDoctor(context.Background(), validRequest(), image())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrExternalService))

	list, err := store.Doctors.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListPublicStripsAndCaches(t *testing.T) {
	svc, store, m := newTestService(t, &fakeImages{})
	ctx := context.Background()

	doctor, err := svc.AddDoctor(ctx, validRequest(), image())
	require.NoError(t, err)

	list, err := svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Email)
	assert.Empty(t, list[0].PasswordHash)
	assert.NotNil(t, list[0].SlotsBooked)

	// a reservation behind the cache's back is not visible until invalidated
	key := model.SlotKey{DoctorID: doctor.ID, Date: "10_1_2024", Time: "10:00 AM"}
	ok, err := store.Slots.Reserve(ctx, key, uuid.New())
	require.NoError(t, err)
	require.True(t, ok)

	list, err = svc.ListPublic(ctx)
	require.NoError(t, err)
	assert.Empty(t, list[0].SlotsBooked)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues(cacheName, "hit")))

	svc.Invalidate()
	list, err = svc.ListPublic(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00 AM"}, list[0].SlotsBooked["10_1_2024"])
}

func TestListAllKeepsEmail(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeImages{})
	ctx := context.Background()

	_, err := svc.AddDoctor(ctx, validRequest(), image())
	require.NoError(t, err)

	list, err := svc.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "smith@clinic.test", list[0].Email)
	assert.Empty(t, list[0].PasswordHash)
}

func TestChangeAvailability(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeImages{})
	ctx := context.Background()

	doctor, err := svc.AddDoctor(ctx, validRequest(), image())
	require.NoError(t, err)

	available, err := svc.ChangeAvailability(ctx, doctor.ID.String())
	require.NoError(t, err)
	assert.False(t, available)

	available, err = svc.ChangeAvailability(ctx, doctor.ID.String())
	require.NoError(t, err)
	assert.True(t, available)

	_, err = svc.ChangeAvailability(ctx, uuid.NewString())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}

func TestUpdateProfileLeavesLedger(t *testing.T) {
	svc, store, _ := newTestService(t, &fakeImages{})
	ctx := context.Background()

	doctor, err := svc.AddDoctor(ctx, validRequest(), image())
	require.NoError(t, err)

	key := model.SlotKey{DoctorID: doctor.ID, Date: "10_1_2024", Time: "10:00 AM"}
	_, err = store.Slots.Reserve(ctx, key, uuid.New())
	require.NoError(t, err)

	fees := 75.0
	unavailable := false
	require.NoError(t, svc.UpdateProfile(ctx, doctor.ID, model.UpdateDoctorProfileRequest{Fees: &fees, Available: &unavailable}))

	profile, err := svc.Profile(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, profile.Fees)
	assert.False(t, profile.Available)
	assert.Equal(t, "1 Main St", profile.Address.Line1)
	assert.Empty(t, profile.PasswordHash)
	assert.Equal(t, []string{"10:00 AM"}, profile.SlotsBooked["10_1_2024"])
}

// togglingDoctors flips availability just before a profile write lands.
type togglingDoctors struct {
	repository.DoctorRepository
}

func (d togglingDoctors) UpdateProfile(ctx context.Context, id uuid.UUID, req model.UpdateDoctorProfileRequest) error {
	if _, err := d.DoctorRepository.ToggleAvailability(ctx, id); err != nil {
		return err
	}
	return d.DoctorRepository.UpdateProfile(ctx, id, req)
}

func TestUpdateProfileKeepsConcurrentToggle(t *testing.T) {
	store := memory.New().Store()
	svc := NewService(togglingDoctors{store.Doctors}, store.Slots, &fakeImages{}, security.NewBcryptHasher(bcrypt.MinCost), time.Minute, metrics.NewNop(), logger.Nop())
	ctx := context.Background()

	doctor, err := svc.AddDoctor(ctx, validRequest(), image())
	require.NoError(t, err)
	require.True(t, doctor.Available)

	fees := 75.0
	require.NoError(t, svc.UpdateProfile(ctx, doctor.ID, model.UpdateDoctorProfileRequest{Fees: &fees}))

	profile, err := svc.Profile(ctx, doctor.ID)
	require.NoError(t, err)
	assert.Equal(t, 75.0, profile.Fees)
	assert.False(t, profile.Available)
}

func TestUpdateProfileRejectsNegativeFeesAndUnknownDoctor(t *testing.T) {
	svc, _, _ := newTestService(t, &fakeImages{})
	ctx := context.Background()

	fees := -1.0
	err := svc.UpdateProfile(ctx, uuid.New(), model.UpdateDoctorProfileRequest{Fees: &fees})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrValidation))

	fees = 10
	err = svc.UpdateProfile(ctx, uuid.New(), model.UpdateDoctorProfileRequest{Fees: &fees})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrNotFound))
}
