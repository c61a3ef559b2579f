package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/6231368521/VacQ/internal/models"
	"github.com/6231368521/VacQ/internal/service"
)

// quotaCollection holds one counter document per user, keyed by the user's
// id, tracking how many appointments that user currently holds.
const quotaCollection = "appointment_quotas"

func txnOptions() *options.TransactionOptions {
	return options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
}

// AppointmentStore persists appointments in the "appointments" collection.
// It implements service.AppointmentStore.
type AppointmentStore struct {
	db     *mongo.Database
	coll   *mongo.Collection
	quotas *mongo.Collection
}

func NewAppointmentStore(db *mongo.Database) *AppointmentStore {
	return &AppointmentStore{
		db:     db,
		coll:   db.Collection("appointments"),
		quotas: db.Collection(quotaCollection),
	}
}

func (s *AppointmentStore) Find(ctx context.Context, filter service.AppointmentFilter) ([]models.Appointment, error) {
	query := bson.M{}
	if filter.User != nil {
		query["user"] = *filter.User
	}
	if filter.Hospital != nil {
		query["hospital"] = *filter.Hospital
	}

	opts := options.Find().SetSort(bson.D{{Key: "apptDate", Value: 1}})
	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var appts []models.Appointment
	if err := cursor.All(ctx, &appts); err != nil {
		return nil, err
	}
	return appts, nil
}

func (s *AppointmentStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}
	return &appt, nil
}

// CreateWithQuota admits the appointment through the owner's counter
// document and inserts it in the same transaction. A limit <= 0 increments
// without the cap guard.
//
// Counting matching documents would not be safe here: under snapshot
// isolation two concurrent transactions both read the old count, insert
// distinct documents, and both commit. Incrementing a single per-user
// counter makes concurrent admissions write the same document, so at most
// one of them can commit first and the loser re-runs against the new count.
func (s *AppointmentStore) CreateWithQuota(ctx context.Context, appt *models.Appointment, limit int64) (*models.Appointment, error) {
	doc := *appt
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = time.Now().UTC()

	sess, err := s.db.Client().StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if err := s.admitOne(sc, doc.User, limit); err != nil {
			return nil, err
		}
		return s.coll.InsertOne(sc, doc)
	}, txnOptions())
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// admitOne increments the user's held-appointment counter, guarded by the
// cap. When the counter already sits at the cap the guarded filter matches
// nothing and the upsert collides with the existing _id, which surfaces as
// a duplicate-key error: that is the quota refusal.
func (s *AppointmentStore) admitOne(sc mongo.SessionContext, user primitive.ObjectID, limit int64) error {
	filter := bson.M{"_id": user}
	if limit > 0 {
		filter["count"] = bson.M{"$lt": limit}
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.quotas.UpdateOne(sc, filter, bson.M{"$inc": bson.M{"count": 1}}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return service.ErrQuotaExceeded
		}
		return err
	}
	return nil
}

func (s *AppointmentStore) UpdateByID(ctx context.Context, id primitive.ObjectID, update service.AppointmentUpdate) (*models.Appointment, error) {
	set := bson.M{}
	if update.ApptDate != nil {
		set["apptDate"] = *update.ApptDate
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var appt models.Appointment
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}
	return &appt, nil
}

// Remove deletes the appointment and releases the owner's quota slot in the
// same transaction.
func (s *AppointmentStore) Remove(ctx context.Context, id primitive.ObjectID) error {
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var appt models.Appointment
		err := s.coll.FindOneAndDelete(sc, bson.M{"_id": id}).Decode(&appt)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, service.ErrNotFound
			}
			return nil, err
		}
		_, err = s.quotas.UpdateOne(sc, bson.M{"_id": appt.User}, bson.M{"$inc": bson.M{"count": -1}})
		return nil, err
	}, txnOptions())
	return err
}
