package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"eduplatform-backend/entity"
	"eduplatform-backend/store"
)

type transactionRepo struct {
	c *mongo.Collection
}

func (r *transactionRepo) Create(ctx context.Context, t *entity.Transaction) error {
	return insertOne(ctx, r.c, t)
}

func (r *transactionRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.Transaction, error) {
	return findOne[entity.Transaction](ctx, r.c, bson.M{"_id": id})
}

func (r *transactionRepo) List(ctx context.Context, f store.TransactionFilter, p store.Page) ([]*entity.Transaction, error) {
	filter := bson.M{}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.SchoolID != nil {
		filter["school_id"] = *f.SchoolID
	}
	if f.ParentID != nil {
		filter["parent_id"] = *f.ParentID
	}

	return findAll[entity.Transaction](ctx, r.c, filter, pageOptions(p))
}
