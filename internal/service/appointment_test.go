package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/6231368521/VacQ/internal/models"
	"github.com/6231368521/VacQ/internal/service"
)

// fakeAppointmentStore is an in-memory service.AppointmentStore with the
// same admission semantics as the Mongo implementation.
type fakeAppointmentStore struct {
	mu    sync.Mutex
	appts map[primitive.ObjectID]models.Appointment
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{appts: make(map[primitive.ObjectID]models.Appointment)}
}

func (f *fakeAppointmentStore) Find(_ context.Context, filter service.AppointmentFilter) ([]models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Appointment{}
	for _, a := range f.appts {
		if filter.User != nil && a.User != *filter.User {
			continue
		}
		if filter.Hospital != nil && a.Hospital != *filter.Hospital {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAppointmentStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &a, nil
}

func (f *fakeAppointmentStore) CreateWithQuota(_ context.Context, appt *models.Appointment, limit int64) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if limit > 0 {
		var n int64
		for _, a := range f.appts {
			if a.User == appt.User {
				n++
			}
		}
		if n >= limit {
			return nil, service.ErrQuotaExceeded
		}
	}
	doc := *appt
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = time.Now()
	f.appts[doc.ID] = doc
	return &doc, nil
}

func (f *fakeAppointmentStore) UpdateByID(_ context.Context, id primitive.ObjectID, update service.AppointmentUpdate) (*models.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appts[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	if update.ApptDate != nil {
		a.ApptDate = *update.ApptDate
	}
	f.appts[id] = a
	return &a, nil
}

func (f *fakeAppointmentStore) Remove(_ context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appts[id]; !ok {
		return service.ErrNotFound
	}
	delete(f.appts, id)
	return nil
}

type fakeHospitalFinder struct {
	hospitals map[primitive.ObjectID]models.Hospital
}

func (f *fakeHospitalFinder) FindByID(_ context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	h, ok := f.hospitals[id]
	if !ok {
		return nil, service.ErrNotFound
	}
	return &h, nil
}

func newService(t *testing.T, hospitals ...models.Hospital) *service.AppointmentService {
	t.Helper()
	hf := &fakeHospitalFinder{hospitals: make(map[primitive.ObjectID]models.Hospital)}
	for _, h := range hospitals {
		hf.hospitals[h.ID] = h
	}
	return service.NewAppointmentService(newFakeAppointmentStore(), hf, zap.NewNop())
}

func newHospital(name string) models.Hospital {
	return models.Hospital{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Province:    "Bangkok",
		Tel:         "02-0000000",
		Description: name + " description",
	}
}

func userCaller() service.Caller {
	return service.Caller{ID: primitive.NewObjectID(), Role: models.RoleUser}
}

func adminCaller() service.Caller {
	return service.Caller{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
}

func TestCreateQuotaCapsNonAdmin(t *testing.T) {
	h1, h2, h3, h4 := newHospital("A"), newHospital("B"), newHospital("C"), newHospital("D")
	svc := newService(t, h1, h2, h3, h4)
	ctx := context.Background()
	u := userCaller()

	for _, h := range []models.Hospital{h1, h2, h3} {
		_, err := svc.Create(ctx, u, h.ID, time.Now().Add(24*time.Hour))
		require.NoError(t, err)
	}

	// the cap is per user, not per hospital
	_, err := svc.Create(ctx, u, h4.ID, time.Now().Add(24*time.Hour))
	assert.ErrorIs(t, err, service.ErrQuotaExceeded)
	_, err = svc.Create(ctx, u, h1.ID, time.Now().Add(48*time.Hour))
	assert.ErrorIs(t, err, service.ErrQuotaExceeded)
}

func TestCreateNeverCapsAdmin(t *testing.T) {
	h := newHospital("A")
	svc := newService(t, h)
	ctx := context.Background()
	a := adminCaller()

	for i := 0; i < 5; i++ {
		_, err := svc.Create(ctx, a, h.ID, time.Now().Add(time.Duration(i+1)*time.Hour))
		require.NoError(t, err)
	}
}

func TestCreateMissingHospital(t *testing.T) {
	svc := newService(t)

	_, err := svc.Create(context.Background(), userCaller(), primitive.NewObjectID(), time.Now())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCreateRequiresDate(t *testing.T) {
	h := newHospital("A")
	svc := newService(t, h)

	_, err := svc.Create(context.Background(), userCaller(), h.ID, time.Time{})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestCreateSetsOwnerAndHospital(t *testing.T) {
	h := newHospital("A")
	svc := newService(t, h)
	u := userCaller()

	appt, err := svc.Create(context.Background(), u, h.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, u.ID, appt.User)
	assert.Equal(t, h.ID, appt.Hospital)
	assert.False(t, appt.ID.IsZero())
}

func TestListVisibility(t *testing.T) {
	h1, h2 := newHospital("A"), newHospital("B")
	svc := newService(t, h1, h2)
	ctx := context.Background()
	u, v, a := userCaller(), userCaller(), adminCaller()

	_, err := svc.Create(ctx, u, h1.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Create(ctx, v, h1.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)
	_, err = svc.Create(ctx, v, h2.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	// non-admins only ever see their own rows
	views, err := svc.List(ctx, u, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	for _, view := range views {
		assert.Equal(t, u.ID, view.User)
	}

	// hospital filter narrows but never widens
	views, err = svc.List(ctx, v, &h2.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, h2.ID, views[0].Hospital.ID)

	// admins see everything
	views, err = svc.List(ctx, a, nil)
	require.NoError(t, err)
	assert.Len(t, views, 3)

	views, err = svc.List(ctx, a, &h1.ID)
	require.NoError(t, err)
	assert.Len(t, views, 2)
}

func TestListEmptyIsNotAnError(t *testing.T) {
	svc := newService(t)

	views, err := svc.List(context.Background(), userCaller(), nil)
	require.NoError(t, err)
	assert.Empty(t, views)
}

func TestListProjectsHospital(t *testing.T) {
	h := newHospital("Rajavithi")
	svc := newService(t, h)
	u := userCaller()

	_, err := svc.Create(context.Background(), u, h.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	views, err := svc.List(context.Background(), u, nil)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "Rajavithi", views[0].Hospital.Name)
	assert.Equal(t, "Bangkok", views[0].Hospital.Province)
	assert.Equal(t, "02-0000000", views[0].Hospital.Tel)
	assert.Empty(t, views[0].Hospital.Description)
}

func TestGetProjectsDescription(t *testing.T) {
	h := newHospital("Rajavithi")
	svc := newService(t, h)
	u := userCaller()

	created, err := svc.Create(context.Background(), u, h.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Rajavithi description", view.Hospital.Description)
	assert.Empty(t, view.Hospital.Province)
}

func TestGetMissingIsNotFound(t *testing.T) {
	svc := newService(t)

	_, err := svc.Get(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.NotErrorIs(t, err, service.ErrForbidden)
}

func TestUpdateAuthorization(t *testing.T) {
	h := newHospital("A")
	svc := newService(t, h)
	ctx := context.Background()
	owner, stranger, admin := userCaller(), userCaller(), adminCaller()

	appt, err := svc.Create(ctx, owner, h.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	newDate := time.Now().Add(48 * time.Hour)
	_, err = svc.Update(ctx, stranger, appt.ID, service.AppointmentUpdate{ApptDate: &newDate})
	assert.ErrorIs(t, err, service.ErrForbidden)

	updated, err := svc.Update(ctx, owner, appt.ID, service.AppointmentUpdate{ApptDate: &newDate})
	require.NoError(t, err)
	assert.WithinDuration(t, newDate, updated.ApptDate, time.Second)

	adminDate := time.Now().Add(72 * time.Hour)
	_, err = svc.Update(ctx, admin, appt.ID, service.AppointmentUpdate{ApptDate: &adminDate})
	assert.NoError(t, err)
}

func TestUpdateNeverMovesAppointment(t *testing.T) {
	h := newHospital("A")
	svc := newService(t, h)
	ctx := context.Background()
	owner := userCaller()

	appt, err := svc.Create(ctx, owner, h.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	newDate := time.Now().Add(48 * time.Hour)
	updated, err := svc.Update(ctx, owner, appt.ID, service.AppointmentUpdate{ApptDate: &newDate})
	require.NoError(t, err)
	assert.Equal(t, appt.User, updated.User)
	assert.Equal(t, appt.Hospital, updated.Hospital)
	assert.Equal(t, appt.ID, updated.ID)
}

func TestUpdateEmptyPayload(t *testing.T) {
	h := newHospital("A")
	svc := newService(t, h)
	owner := userCaller()

	appt, err := svc.Create(context.Background(), owner, h.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), owner, appt.ID, service.AppointmentUpdate{})
	assert.ErrorIs(t, err, service.ErrValidation)
}

func TestMissingRecordBeatsForbidden(t *testing.T) {
	// even a caller who would be forbidden gets NotFound for an absent id
	svc := newService(t)
	stranger := userCaller()
	id := primitive.NewObjectID()
	newDate := time.Now()

	_, err := svc.Update(context.Background(), stranger, id, service.AppointmentUpdate{ApptDate: &newDate})
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.NotErrorIs(t, err, service.ErrForbidden)

	err = svc.Delete(context.Background(), stranger, id)
	assert.ErrorIs(t, err, service.ErrNotFound)
	assert.NotErrorIs(t, err, service.ErrForbidden)
}

func TestDeleteLifecycle(t *testing.T) {
	h := newHospital("A")
	svc := newService(t, h)
	ctx := context.Background()
	owner, stranger := userCaller(), userCaller()

	appt, err := svc.Create(ctx, owner, h.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	err = svc.Delete(ctx, stranger, appt.ID)
	assert.ErrorIs(t, err, service.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, owner, appt.ID))

	_, err = svc.Get(ctx, appt.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)

	// a second delete reports NotFound, not success
	err = svc.Delete(ctx, owner, appt.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestAdminDeletesAnyAppointment(t *testing.T) {
	h := newHospital("A")
	svc := newService(t, h)
	ctx := context.Background()
	owner, admin := userCaller(), adminCaller()

	appt, err := svc.Create(ctx, owner, h.ID, time.Now().Add(time.Hour))
	require.NoError(t, err)

	assert.NoError(t, svc.Delete(ctx, admin, appt.ID))
}
