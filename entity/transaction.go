package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionType string

const (
	TransactionSubscription TransactionType = "subscription"
	TransactionTier         TransactionType = "tier"
	TransactionRegistration TransactionType = "registration"
)

type PaymentMethod string

const (
	MethodCard         PaymentMethod = "card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodMobileMoney  PaymentMethod = "mobile_money"
	MethodCash         PaymentMethod = "cash"
)

type Transaction struct {
	ID            primitive.ObjectID  `bson:"_id" json:"id"`
	Type          TransactionType     `bson:"type" json:"type"`
	Amount        int64               `bson:"amount" json:"amount"`
	Currency      string              `bson:"currency" json:"currency"`
	PaymentMethod PaymentMethod       `bson:"payment_method" json:"payment_method"`
	Reference     string              `bson:"reference" json:"reference"`
	Status        string              `bson:"status" json:"status"`
	SchoolID      *primitive.ObjectID `bson:"school_id,omitempty" json:"school_id,omitempty"`
	ParentID      *primitive.ObjectID `bson:"parent_id,omitempty" json:"parent_id,omitempty"`
	StudentID     *primitive.ObjectID `bson:"student_id,omitempty" json:"student_id,omitempty"`
	Seats         int64               `bson:"seats,omitempty" json:"seats,omitempty"`
	Months        int64               `bson:"months,omitempty" json:"months,omitempty"`
	CreatedBy     primitive.ObjectID  `bson:"created_by" json:"created_by"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
}
