package storage

import (
	"context"
	"strings"
	"time"

	"couple-journal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type UserDB interface {
	CreateUser(ctx context.Context, user model.UserDB) (model.UserDB, error)
	GetUserByEmail(ctx context.Context, email string) (*model.UserDB, error)
}

func (db *MongoStore) CreateUser(ctx context.Context, user model.UserDB) (model.UserDB, error) {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()

	res, err := db.collection(usersCollection).InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.UserDB{}, ErrAlreadyExists
		}
		return model.UserDB{}, err
	}
	user.ID = res.InsertedID.(primitive.ObjectID)

	db.logger().Info("user created", zap.String("user_id", user.ID.Hex()))
	return user, nil
}

func (db *MongoStore) GetUserByEmail(ctx context.Context, email string) (*model.UserDB, error) {
	var user model.UserDB
	filter := bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}}
	if err := db.collection(usersCollection).FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}
