package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
)

type School struct {
	ID            primitive.ObjectID   `bson:"_id" json:"id"`
	Name          string               `bson:"name" json:"name"`
	Email         string               `bson:"email" json:"email"`
	Phone         string               `bson:"phone,omitempty" json:"phone,omitempty"`
	Address       string               `bson:"address,omitempty" json:"address,omitempty"`
	AdminID       primitive.ObjectID   `bson:"admin_id" json:"admin_id"`
	PaymentStatus PaymentStatus        `bson:"payment_status" json:"payment_status"`
	StudentQuota  int64                `bson:"student_quota" json:"student_quota"`
	Students      []primitive.ObjectID `bson:"students" json:"students"`
	Transactions  []primitive.ObjectID `bson:"transactions" json:"transactions"`

	SubscriptionExpiresAt *time.Time `bson:"subscription_expires_at,omitempty" json:"subscription_expires_at,omitempty"`
	ExpiryNotified        bool       `bson:"expiry_notified" json:"-"`
	CreatedAt             time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time  `bson:"updated_at" json:"updated_at"`
}

func (s *School) Paid() bool {
	return s.PaymentStatus == PaymentCompleted
}

func (s *School) SubscriptionActive(now time.Time) bool {
	return s.SubscriptionExpiresAt != nil && s.SubscriptionExpiresAt.After(now)
}

// SchoolPayment is applied atomically to a school when a transaction is recorded.
type SchoolPayment struct {
	TransactionID  primitive.ObjectID
	MarkCompleted  bool
	Seats          int64
	SubscriptionTo *time.Time
}
