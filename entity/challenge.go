package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

type Challenge struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	CategoryIDs []primitive.ObjectID `bson:"category_ids" json:"category_ids"`
	Difficulty  Difficulty           `bson:"difficulty" json:"difficulty"`
	Points      int64                `bson:"points" json:"points"`
	StartsAt    *time.Time           `bson:"starts_at,omitempty" json:"starts_at,omitempty"`
	EndsAt      *time.Time           `bson:"ends_at,omitempty" json:"ends_at,omitempty"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

func (c *Challenge) OpenAt(t time.Time) bool {
	if c.StartsAt != nil && t.Before(*c.StartsAt) {
		return false
	}
	if c.EndsAt != nil && t.After(*c.EndsAt) {
		return false
	}
	return true
}

type ChallengeCompletion struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	ChallengeID primitive.ObjectID `bson:"challenge_id" json:"challenge_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Submission  string             `bson:"submission,omitempty" json:"submission,omitempty"`
	Score       int64              `bson:"score" json:"score"`
	CompletedAt time.Time          `bson:"completed_at" json:"completed_at"`
}

type LeaderboardEntry struct {
	UserID    primitive.ObjectID `bson:"_id" json:"user_id"`
	Points    int64              `bson:"points" json:"points"`
	Completed int64              `bson:"completed" json:"completed"`
}
