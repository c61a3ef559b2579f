package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/6231368521/VacQ/internal/models"
)

// MaxActiveAppointments caps how many appointments a non-admin user may hold
// at once. Admins are never capped.
const MaxActiveAppointments = 3

// Caller identifies the authenticated user invoking an operation. It is
// threaded explicitly into every call; there is no ambient request identity.
type Caller struct {
	ID   primitive.ObjectID
	Role models.Role
}

// AppointmentFilter narrows a Find. Nil fields match everything.
type AppointmentFilter struct {
	User     *primitive.ObjectID
	Hospital *primitive.ObjectID
}

// AppointmentUpdate carries the mutable appointment fields. The owner and
// hospital references are deliberately absent: they cannot be changed.
type AppointmentUpdate struct {
	ApptDate *time.Time
}

// HospitalSummary is the read-only hospital projection attached to
// appointment reads.
type HospitalSummary struct {
	ID          primitive.ObjectID `json:"id"`
	Name        string             `json:"name,omitempty"`
	Province    string             `json:"province,omitempty"`
	Description string             `json:"description,omitempty"`
	Tel         string             `json:"tel,omitempty"`
}

// AppointmentView is an appointment with its hospital reference resolved to
// a projection.
type AppointmentView struct {
	ID        primitive.ObjectID `json:"id"`
	ApptDate  time.Time          `json:"apptDate"`
	User      primitive.ObjectID `json:"user"`
	Hospital  HospitalSummary    `json:"hospital"`
	CreatedAt time.Time          `json:"createdAt"`
}

// AppointmentStore is the persistence collaborator for appointments.
type AppointmentStore interface {
	Find(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error)
	// CreateWithQuota inserts appt only if its owner holds fewer than limit
	// appointments, atomically. A limit <= 0 disables the cap.
	CreateWithQuota(ctx context.Context, appt *models.Appointment, limit int64) (*models.Appointment, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, update AppointmentUpdate) (*models.Appointment, error)
	Remove(ctx context.Context, id primitive.ObjectID) error
}

// HospitalFinder is the slice of the hospital store this service needs.
type HospitalFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error)
}

// AppointmentService decides who may see or act on which appointment. It is
// stateless; every operation is input -> store interaction -> output.
type AppointmentService struct {
	appointments AppointmentStore
	hospitals    HospitalFinder
	log          *zap.Logger
}

func NewAppointmentService(appointments AppointmentStore, hospitals HospitalFinder, log *zap.Logger) *AppointmentService {
	return &AppointmentService{
		appointments: appointments,
		hospitals:    hospitals,
		log:          log,
	}
}

// List returns the appointments visible to caller, optionally restricted to
// one hospital. Non-admins only ever see their own; admins see all. There is
// no authorization failure here, only a possibly empty result.
func (s *AppointmentService) List(ctx context.Context, caller Caller, hospitalID *primitive.ObjectID) ([]AppointmentView, error) {
	filter := AppointmentFilter{Hospital: hospitalID}
	if !caller.Role.IsAdmin() {
		uid := caller.ID
		filter.User = &uid
	}

	appts, err := s.appointments.Find(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]AppointmentView, 0, len(appts))
	summaries := make(map[primitive.ObjectID]HospitalSummary)
	for _, a := range appts {
		sum, ok := summaries[a.Hospital]
		if !ok {
			sum, err = s.hospitalSummary(ctx, a.Hospital, false)
			if err != nil {
				return nil, err
			}
			summaries[a.Hospital] = sum
		}
		views = append(views, viewOf(a, sum))
	}
	return views, nil
}

// Get fetches one appointment by id. It is publicly readable: no caller is
// required.
func (s *AppointmentService) Get(ctx context.Context, id primitive.ObjectID) (*AppointmentView, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sum, err := s.hospitalSummary(ctx, appt.Hospital, true)
	if err != nil {
		return nil, err
	}
	v := viewOf(*appt, sum)
	return &v, nil
}

// Create books an appointment for caller at the given hospital. The hospital
// must exist, and non-admin callers must hold fewer than
// MaxActiveAppointments; the quota check and the insert are a single atomic
// admission decision in the store.
func (s *AppointmentService) Create(ctx context.Context, caller Caller, hospitalID primitive.ObjectID, apptDate time.Time) (*models.Appointment, error) {
	if apptDate.IsZero() {
		return nil, fmt.Errorf("apptDate is required: %w", ErrValidation)
	}
	if _, err := s.hospitals.FindByID(ctx, hospitalID); err != nil {
		return nil, err
	}

	limit := int64(MaxActiveAppointments)
	if caller.Role.IsAdmin() {
		limit = 0
	}

	appt := &models.Appointment{
		ApptDate: apptDate,
		User:     caller.ID,
		Hospital: hospitalID,
	}
	created, err := s.appointments.CreateWithQuota(ctx, appt, limit)
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.log.Info("appointment quota reached",
				zap.String("user", caller.ID.Hex()),
				zap.Int("limit", MaxActiveAppointments))
		}
		return nil, err
	}
	return created, nil
}

// Update modifies an existing appointment. The existence check runs before
// the authorization check, so an absent id reports NotFound even to a caller
// who would also be forbidden.
func (s *AppointmentService) Update(ctx context.Context, caller Caller, id primitive.ObjectID, update AppointmentUpdate) (*models.Appointment, error) {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(caller, appt); err != nil {
		return nil, err
	}
	if update.ApptDate == nil {
		return nil, fmt.Errorf("no updatable fields in payload: %w", ErrValidation)
	}
	return s.appointments.UpdateByID(ctx, id, update)
}

// Delete permanently removes an appointment, under the same owner-or-admin
// rule as Update. A repeat delete of the same id reports NotFound.
func (s *AppointmentService) Delete(ctx context.Context, caller Caller, id primitive.ObjectID) error {
	appt, err := s.appointments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := authorize(caller, appt); err != nil {
		return err
	}
	return s.appointments.Remove(ctx, id)
}

func authorize(caller Caller, appt *models.Appointment) error {
	if appt.User == caller.ID || caller.Role.IsAdmin() {
		return nil
	}
	return fmt.Errorf("user %s is not authorized to act on appointment %s: %w",
		caller.ID.Hex(), appt.ID.Hex(), ErrForbidden)
}

// hospitalSummary resolves the projection attached to reads. Lists project
// name/province/tel; single gets project name/description/tel. A dangling
// hospital reference degrades to a bare id rather than failing the read.
func (s *AppointmentService) hospitalSummary(ctx context.Context, id primitive.ObjectID, withDescription bool) (HospitalSummary, error) {
	h, err := s.hospitals.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.log.Warn("appointment references missing hospital", zap.String("hospital", id.Hex()))
			return HospitalSummary{ID: id}, nil
		}
		return HospitalSummary{}, err
	}
	sum := HospitalSummary{ID: h.ID, Name: h.Name, Tel: h.Tel}
	if withDescription {
		sum.Description = h.Description
	} else {
		sum.Province = h.Province
	}
	return sum, nil
}

func viewOf(a models.Appointment, sum HospitalSummary) AppointmentView {
	return AppointmentView{
		ID:        a.ID,
		ApptDate:  a.ApptDate,
		User:      a.User,
		Hospital:  sum,
		CreatedAt: a.CreatedAt,
	}
}
