package storage

import (
	"context"
	"time"

	"couple-journal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// TimelineDB stores timeline events. An empty userID on reads means every
// user's events.
type TimelineDB interface {
	ListTimelineEvents(ctx context.Context, userID string) ([]model.TimelineEventDB, error)
	GetTimelineEvent(ctx context.Context, id, userID string) (*model.TimelineEventDB, error)
	InsertTimelineEvent(ctx context.Context, event model.TimelineEventDB) (model.TimelineEventDB, error)
	UpdateTimelineEvent(ctx context.Context, id, userID string, fields map[string]any) (model.TimelineEventDB, error)
	DeleteTimelineEvent(ctx context.Context, id, userID string) error
	RemoveImageFromTimelineEvents(ctx context.Context, userID, imageURL string) (int64, error)
}

func (db *MongoStore) ListTimelineEvents(ctx context.Context, userID string) ([]model.TimelineEventDB, error) {
	return findAll[model.TimelineEventDB](ctx, db.collection(timelineCollection), ownerFilter(userID), sortByCreated(-1))
}

func (db *MongoStore) GetTimelineEvent(ctx context.Context, id, userID string) (*model.TimelineEventDB, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	filter := append(bson.D{{Key: "_id", Value: oid}}, ownerFilter(userID)...)

	var event model.TimelineEventDB
	if err := db.collection(timelineCollection).FindOne(ctx, filter).Decode(&event); err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

func (db *MongoStore) InsertTimelineEvent(ctx context.Context, event model.TimelineEventDB) (model.TimelineEventDB, error) {
	event.CreatedAt = time.Now().UTC()
	res, err := db.collection(timelineCollection).InsertOne(ctx, event)
	if err != nil {
		return model.TimelineEventDB{}, err
	}
	event.ID = res.InsertedID.(primitive.ObjectID)

	db.logger().Info("timeline event saved", zap.String("id", event.ID.Hex()), zap.String("user_id", event.UserID))
	return event, nil
}

func (db *MongoStore) UpdateTimelineEvent(ctx context.Context, id, userID string, fields map[string]any) (model.TimelineEventDB, error) {
	oid, err := objectID(id)
	if err != nil {
		return model.TimelineEventDB{}, err
	}
	filter := append(bson.D{{Key: "_id", Value: oid}}, ownerFilter(userID)...)

	var updated model.TimelineEventDB
	if len(fields) == 0 {
		err = db.collection(timelineCollection).FindOne(ctx, filter).Decode(&updated)
		return updated, notFound(err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err = db.collection(timelineCollection).
		FindOneAndUpdate(ctx, filter, bson.D{{Key: "$set", Value: fields}}, opts).
		Decode(&updated)
	if err != nil {
		return model.TimelineEventDB{}, notFound(err)
	}
	return updated, nil
}

func (db *MongoStore) DeleteTimelineEvent(ctx context.Context, id, userID string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	filter := append(bson.D{{Key: "_id", Value: oid}}, ownerFilter(userID)...)

	res, err := db.collection(timelineCollection).DeleteOne(ctx, filter)
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveImageFromTimelineEvents pulls imageURL out of every event of the user
// that contains it and reports how many events changed.
func (db *MongoStore) RemoveImageFromTimelineEvents(ctx context.Context, userID, imageURL string) (int64, error) {
	filter := append(bson.D{{Key: "images", Value: imageURL}}, ownerFilter(userID)...)
	update := bson.D{{Key: "$pull", Value: bson.D{{Key: "images", Value: imageURL}}}}

	res, err := db.collection(timelineCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
