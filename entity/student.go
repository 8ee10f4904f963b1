package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TempStudent stages a parent's student registration until it is paid for.
// The expires_at TTL index removes abandoned ones.
type TempStudent struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	ParentID  primitive.ObjectID `bson:"parent_id" json:"parent_id"`
	FirstName string             `bson:"first_name" json:"first_name"`
	LastName  string             `bson:"last_name" json:"last_name"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	Grade     uint32             `bson:"grade,omitempty" json:"grade,omitempty"`
	ExpiresAt time.Time          `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

func (t *TempStudent) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
