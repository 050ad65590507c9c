package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GuestUserID identifies the read-only visitor session. Reads made with it are
// not filtered by owner and writes are refused.
const GuestUserID = "guest-visitor"

// GuestEmail is shown in place of an address for the visitor session.
const GuestEmail = "访客模式"

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type UserDB struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	Email        string             `bson:"email"`
	PasswordHash string             `bson:"password_hash"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func ToUser(db UserDB) User {
	return User{ID: db.ID.Hex(), Email: db.Email}
}

func (u User) IsGuest() bool {
	return u.ID == GuestUserID
}
