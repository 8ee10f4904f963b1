package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CredentialStatus string

const (
	CredentialPending  CredentialStatus = "pending"
	CredentialApproved CredentialStatus = "approved"
	CredentialRejected CredentialStatus = "rejected"
)

type MentorCredential struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	MentorID    primitive.ObjectID  `bson:"mentor_id" json:"mentor_id"`
	Title       string              `bson:"title" json:"title"`
	DocumentKey string              `bson:"document_key" json:"-"`
	DocumentURL string              `bson:"document_url" json:"document_url"`
	Status      CredentialStatus    `bson:"status" json:"status"`
	VerifiedBy  *primitive.ObjectID `bson:"verified_by,omitempty" json:"verified_by,omitempty"`
	Reason      string              `bson:"reason,omitempty" json:"reason,omitempty"`
	SubmittedAt time.Time           `bson:"submitted_at" json:"submitted_at"`
	ReviewedAt  *time.Time          `bson:"reviewed_at,omitempty" json:"reviewed_at,omitempty"`
}

// CredentialReview moves a pending credential to its final state.
type CredentialReview struct {
	Status     CredentialStatus
	VerifiedBy primitive.ObjectID
	Reason     string
	ReviewedAt time.Time
}
