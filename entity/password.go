package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PasswordReset stores the sha256 of the emailed token, never the token itself.
type PasswordReset struct {
	ID     primitive.ObjectID `bson:"_id"`
	UserID primitive.ObjectID `bson:"user_id"`
	Token  string             `bson:"token"`
	TTL    time.Time          `bson:"ttl"`
}
