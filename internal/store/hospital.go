package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/6231368521/VacQ/internal/models"
	"github.com/6231368521/VacQ/internal/service"
)

// HospitalFilter narrows a hospital listing. Zero values match everything;
// Limit <= 0 means no pagination.
type HospitalFilter struct {
	Province string
	Page     int64
	Limit    int64
}

// HospitalUpdate carries the updatable hospital fields; nil means unchanged.
type HospitalUpdate struct {
	Name        *string
	Address     *string
	District    *string
	Province    *string
	Postalcode  *string
	Tel         *string
	Region      *string
	Description *string
}

type HospitalStore struct {
	db     *mongo.Database
	coll   *mongo.Collection
	appts  *mongo.Collection
	quotas *mongo.Collection
}

func NewHospitalStore(db *mongo.Database) *HospitalStore {
	return &HospitalStore{
		db:     db,
		coll:   db.Collection("hospitals"),
		appts:  db.Collection("appointments"),
		quotas: db.Collection(quotaCollection),
	}
}

func (s *HospitalStore) Find(ctx context.Context, filter HospitalFilter) ([]models.Hospital, error) {
	query := bson.M{}
	if filter.Province != "" {
		query["province"] = filter.Province
	}

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		opts.SetSkip((page - 1) * filter.Limit).SetLimit(filter.Limit)
	}

	cursor, err := s.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var hospitals []models.Hospital
	if err := cursor.All(ctx, &hospitals); err != nil {
		return nil, err
	}
	return hospitals, nil
}

func (s *HospitalStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Hospital, error) {
	var h models.Hospital
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&h)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (s *HospitalStore) Create(ctx context.Context, h *models.Hospital) (*models.Hospital, error) {
	doc := *h
	doc.ID = primitive.NewObjectID()
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *HospitalStore) UpdateByID(ctx context.Context, id primitive.ObjectID, update HospitalUpdate) (*models.Hospital, error) {
	set := bson.M{}
	for field, val := range map[string]*string{
		"name":        update.Name,
		"address":     update.Address,
		"district":    update.District,
		"province":    update.Province,
		"postalcode":  update.Postalcode,
		"tel":         update.Tel,
		"region":      update.Region,
		"description": update.Description,
	} {
		if val != nil {
			set[field] = *val
		}
	}
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var h models.Hospital
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&h)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, service.ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

// Remove deletes the hospital and, in the same transaction, every
// appointment booked at it, releasing each owner's quota slots.
func (s *HospitalStore) Remove(ctx context.Context, id primitive.ObjectID) error {
	sess, err := s.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := s.coll.DeleteOne(sc, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, service.ErrNotFound
		}

		cursor, err := s.appts.Find(sc, bson.M{"hospital": id})
		if err != nil {
			return nil, err
		}
		var appts []models.Appointment
		if err := cursor.All(sc, &appts); err != nil {
			return nil, err
		}
		held := make(map[primitive.ObjectID]int64)
		for _, a := range appts {
			held[a.User]++
		}
		for user, n := range held {
			if _, err := s.quotas.UpdateOne(sc, bson.M{"_id": user}, bson.M{"$inc": bson.M{"count": -n}}); err != nil {
				return nil, err
			}
		}

		if _, err := s.appts.DeleteMany(sc, bson.M{"hospital": id}); err != nil {
			return nil, err
		}
		return nil, nil
	}, txnOptions())
	return err
}
