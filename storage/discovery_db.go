package storage

import (
	"context"
	"time"

	"couple-journal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DiscoveryDB interface {
	ListDiscoveryItems(ctx context.Context, userID string) ([]model.DiscoveryItemDB, error)
	GetDiscoveryItem(ctx context.Context, id, userID string) (*model.DiscoveryItemDB, error)
	InsertDiscoveryItem(ctx context.Context, item model.DiscoveryItemDB) (model.DiscoveryItemDB, error)
	UpdateDiscoveryItem(ctx context.Context, id, userID string, fields map[string]any) (model.DiscoveryItemDB, error)
	DeleteDiscoveryItem(ctx context.Context, id, userID string) error
}

func (db *MongoStore) ListDiscoveryItems(ctx context.Context, userID string) ([]model.DiscoveryItemDB, error) {
	return findAll[model.DiscoveryItemDB](ctx, db.collection(discoveryCollection), ownerFilter(userID), sortByCreated(-1))
}

func (db *MongoStore) GetDiscoveryItem(ctx context.Context, id, userID string) (*model.DiscoveryItemDB, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	filter := append(bson.D{{Key: "_id", Value: oid}}, ownerFilter(userID)...)

	var item model.DiscoveryItemDB
	if err := db.collection(discoveryCollection).FindOne(ctx, filter).Decode(&item); err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (db *MongoStore) InsertDiscoveryItem(ctx context.Context, item model.DiscoveryItemDB) (model.DiscoveryItemDB, error) {
	item.CreatedAt = time.Now().UTC()
	res, err := db.collection(discoveryCollection).InsertOne(ctx, item)
	if err != nil {
		return model.DiscoveryItemDB{}, err
	}
	item.ID = res.InsertedID.(primitive.ObjectID)
	return item, nil
}

func (db *MongoStore) UpdateDiscoveryItem(ctx context.Context, id, userID string, fields map[string]any) (model.DiscoveryItemDB, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.DiscoveryItemDB{}, err
	}
	filter := append(bson.D{{Key: "_id", Value: oid}}, ownerFilter(userID)...)

	var updated model.DiscoveryItemDB
	if len(fields) == 0 {
		err = db.collection(discoveryCollection).FindOne(ctx, filter).Decode(&updated)
		return updated, notFound(err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = db.collection(discoveryCollection).
		FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: fields}}, opts).
		Decode(&updated)
	if err != nil {
		return model.DiscoveryItemDB{}, notFound(err)
	}
	return updated, nil
}

func (db *MongoStore) DeleteDiscoveryItem(ctx context.Context, id, userID string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	filter := append(bson.D{{Key: "_id", Value: oid}}, ownerFilter(userID)...)

	res, err := db.collection(discoveryCollection).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
