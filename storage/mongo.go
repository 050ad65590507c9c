package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

const (
	usersCollection         = "users"
	timelineCollection      = "timeline_events"
	provincesCollection     = "provinces"
	visitsCollection        = "user_province_visits"
	discoveryCollection     = "discovery_items"
	anniversariesCollection = "anniversaries"
)

// MongoStore keeps every journal collection in one MongoDB database.
type MongoStore struct {
	Log *zap.Logger

	mongoClient      *mongo.Client
	database         *mongo.Database
	connectionString string
	databaseName     string
}

func (db *MongoStore) Connect(ctx context.Context, connectionString, databaseName string) error {
	var err error
	db.connectionString = connectionString
	db.databaseName = databaseName

	db.mongoClient, err = mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err = db.mongoClient.Ping(pingCtx, nil); err != nil {
		return err
	}

	db.database = db.mongoClient.Database(db.databaseName)

	db.logger().Info("connected to MongoDB", zap.String("database", databaseName))
	return nil
}

func (db *MongoStore) Close(ctx context.Context) error {
	if db.mongoClient != nil {
		if err := db.mongoClient.Disconnect(ctx); err != nil {
			return err
		}
		db.logger().Info("disconnected from MongoDB")
	}
	return nil
}

// EnsureIndexes creates the indexes the repositories rely on for uniqueness
// and owner-scoped reads.
func (db *MongoStore) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		timelineCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "images", Value: 1}}},
		},
		visitsCollection: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "province_id", Value: 1}, {Key: "city", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "photos", Value: 1}}},
		},
		discoveryCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		anniversariesCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		provincesCollection: {
			{Keys: bson.D{{Key: "position", Value: "2dsphere"}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.database.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (db *MongoStore) collection(name string) *mongo.Collection {
	return db.database.Collection(name)
}

func (db *MongoStore) logger() *zap.Logger {
	if db.Log == nil {
		return zap.NewNop()
	}
	return db.Log
}

// ownerFilter scopes a query to one user. An empty userID matches every
// owner.
func ownerFilter(userID string) bson.D {
	if userID == "" {
		return bson.D{}
	}
	return bson.D{{Key: "user_id", Value: userID}}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func sortByCreated(direction int) *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: direction}, {Key: "_id", Value: direction}})
}

var (
	_ UserDB        = (*MongoStore)(nil)
	_ TimelineDB    = (*MongoStore)(nil)
	_ ProvinceDB    = (*MongoStore)(nil)
	_ DiscoveryDB   = (*MongoStore)(nil)
	_ AnniversaryDB = (*MongoStore)(nil)
	_ PhotoStorage  = (*LocalPhotoStorage)(nil)
	_ PhotoStorage  = (*MinioPhotoStorage)(nil)
)
