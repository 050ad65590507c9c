package storage

import (
	"context"
	"time"

	"couple-journal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ProvinceDB stores the static region rows and the per-user visit overlay.
type ProvinceDB interface {
	ListProvinces(ctx context.Context) ([]model.ProvinceDB, error)
	SeedProvinces(ctx context.Context, provinces []model.ProvinceDB) error
	ListVisits(ctx context.Context, userID string) ([]model.UserProvinceVisitDB, error)
	ListProvinceVisits(ctx context.Context, userID, provinceID string) ([]model.UserProvinceVisitDB, error)
	ListVisitsWithPhoto(ctx context.Context, userID, photoURL string) ([]model.UserProvinceVisitDB, error)
	FindVisit(ctx context.Context, userID, provinceID, city string) (*model.UserProvinceVisitDB, error)
	InsertVisit(ctx context.Context, visit model.UserProvinceVisitDB) (model.UserProvinceVisitDB, error)
	UpdateVisit(ctx context.Context, id primitive.ObjectID, visitDate string, photos []string) error
	DeleteVisit(ctx context.Context, id primitive.ObjectID) error
	RestoreVisit(ctx context.Context, visit model.UserProvinceVisitDB) error
}

func (db *MongoStore) ListProvinces(ctx context.Context) ([]model.ProvinceDB, error) {
	return findAll[model.ProvinceDB](ctx, db.collection(provincesCollection), bson.D{})
}

// SeedProvinces inserts the base region list when the collection is empty.
func (db *MongoStore) SeedProvinces(ctx context.Context, provinces []model.ProvinceDB) error {
	coll := db.collection(provincesCollection)
	count, err := coll.CountDocuments(ctx, bson.D{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	docs := make([]any, len(provinces))
	for i, p := range provinces {
		docs[i] = p
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return err
	}
	db.logger().Info("seeded provinces", zap.Int("count", len(provinces)))
	return nil
}

func (db *MongoStore) ListVisits(ctx context.Context, userID string) ([]model.UserProvinceVisitDB, error) {
	return findAll[model.UserProvinceVisitDB](ctx, db.collection(visitsCollection), ownerFilter(userID), sortByCreated(1))
}

func (db *MongoStore) ListProvinceVisits(ctx context.Context, userID, provinceID string) ([]model.UserProvinceVisitDB, error) {
	filter := append(bson.D{{Key: "province_id", Value: provinceID}}, ownerFilter(userID)...)
	return findAll[model.UserProvinceVisitDB](ctx, db.collection(visitsCollection), filter, sortByCreated(1))
}

func (db *MongoStore) ListVisitsWithPhoto(ctx context.Context, userID, photoURL string) ([]model.UserProvinceVisitDB, error) {
	filter := append(bson.D{{Key: "photos", Value: photoURL}}, ownerFilter(userID)...)
	return findAll[model.UserProvinceVisitDB](ctx, db.collection(visitsCollection), filter, sortByCreated(1))
}

func (db *MongoStore) FindVisit(ctx context.Context, userID, provinceID, city string) (*model.UserProvinceVisitDB, error) {
	filter := bson.D{
		{Key: "user_id", Value: userID},
		{Key: "province_id", Value: provinceID},
		{Key: "city", Value: city},
	}
	var visit model.UserProvinceVisitDB
	if err := db.collection(visitsCollection).FindOne(ctx, filter).Decode(&visit); err != nil {
		return nil, notFound(err)
	}
	return &visit, nil
}

func (db *MongoStore) InsertVisit(ctx context.Context, visit model.UserProvinceVisitDB) (model.UserProvinceVisitDB, error) {
	now := time.Now().UTC()
	visit.CreatedAt = now
	visit.UpdatedAt = now
	if visit.Photos == nil {
		visit.Photos = []string{}
	}

	res, err := db.collection(visitsCollection).InsertOne(ctx, visit)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.UserProvinceVisitDB{}, ErrAlreadyExists
		}
		return model.UserProvinceVisitDB{}, err
	}
	visit.ID = res.InsertedID.(primitive.ObjectID)
	return visit, nil
}

func (db *MongoStore) UpdateVisit(ctx context.Context, id primitive.ObjectID, visitDate string, photos []string) error {
	set := bson.D{
		{Key: "photos", Value: photos},
		{Key: "updated_at", Value: time.Now().UTC()},
	}
	if visitDate != "" {
		set = append(set, bson.E{Key: "visit_date", Value: visitDate})
	}

	res, err := db.collection(visitsCollection).UpdateByID(ctx, id, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *MongoStore) DeleteVisit(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.collection(visitsCollection).DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RestoreVisit writes a previously read visit row back as it was.
func (db *MongoStore) RestoreVisit(ctx context.Context, visit model.UserProvinceVisitDB) error {
	opts := options.Replace().SetUpsert(true)
	_, err := db.collection(visitsCollection).ReplaceOne(ctx, bson.D{{Key: "_id", Value: visit.ID}}, visit, opts)
	return err
}
