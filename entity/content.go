package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Category struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy   primitive.ObjectID `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

type ContentType string

const (
	ContentVideo    ContentType = "video"
	ContentArticle  ContentType = "article"
	ContentDocument ContentType = "document"
	ContentAudio    ContentType = "audio"
)

type Content struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Title       string               `bson:"title" json:"title"`
	Description string               `bson:"description,omitempty" json:"description,omitempty"`
	Type        ContentType          `bson:"type" json:"type"`
	CategoryIDs []primitive.ObjectID `bson:"category_ids" json:"category_ids"`
	Tags        []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	AgeGroup    string               `bson:"age_group,omitempty" json:"age_group,omitempty"`
	BlobKey     string               `bson:"blob_key,omitempty" json:"-"`
	FileURL     string               `bson:"file_url,omitempty" json:"file_url,omitempty"`
	Published   bool                 `bson:"published" json:"published"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"created_by"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}
