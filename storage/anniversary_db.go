package storage

import (
	"context"
	"time"

	"couple-journal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AnniversaryDB interface {
	ListAnniversaries(ctx context.Context, userID string) ([]model.AnniversaryDB, error)
	InsertAnniversary(ctx context.Context, ann model.AnniversaryDB) (model.AnniversaryDB, error)
	DeleteAnniversary(ctx context.Context, id, userID string) error
}

// ListAnniversaries returns anniversaries oldest first; the first one is the
// primary anniversary.
func (db *MongoStore) ListAnniversaries(ctx context.Context, userID string) ([]model.AnniversaryDB, error) {
	return findAll[model.AnniversaryDB](ctx, db.collection(anniversariesCollection), ownerFilter(userID), sortByCreated(1))
}

func (db *MongoStore) InsertAnniversary(ctx context.Context, ann model.AnniversaryDB) (model.AnniversaryDB, error) {
	ann.CreatedAt = time.Now().UTC()
	res, err := db.collection(anniversariesCollection).InsertOne(ctx, ann)
	if err != nil {
		return model.AnniversaryDB{}, err
	}
	ann.ID = res.InsertedID.(primitive.ObjectID)
	return ann, nil
}

func (db *MongoStore) DeleteAnniversary(ctx context.Context, id, userID string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	filter := append(bson.D{{Key: "_id", Value: oid}}, ownerFilter(userID)...)

	res, err := db.collection(anniversariesCollection).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
