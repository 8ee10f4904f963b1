package mongostore

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"eduplatform-backend/entity"
	"eduplatform-backend/store"
)

type userRepo struct {
	c *mongo.Collection
}

func (r *userRepo) Create(ctx context.Context, u *entity.User) error {
	return insertOne(ctx, r.c, u)
}

func (r *userRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	return findOne[entity.User](ctx, r.c, bson.M{"_id": id})
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return findOne[entity.User](ctx, r.c, bson.M{"email": email})
}

func (r *userRepo) Replace(ctx context.Context, u *entity.User) error {
	return replaceByID(ctx, r.c, u.ID, u)
}

func (r *userRepo) SetVerified(ctx context.Context, id primitive.ObjectID, verified bool, at time.Time) error {
	return updateByID(ctx, r.c, id, bson.M{"$set": bson.M{"is_verified": verified, "updated_at": at}})
}

func (r *userRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.c, id)
}

func (r *userRepo) List(ctx context.Context, f store.UserFilter, p store.Page) ([]*entity.User, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	if f.SchoolID != nil {
		filter["school_id"] = *f.SchoolID
	}
	if f.ParentID != nil {
		filter["parent_id"] = *f.ParentID
	}
	if f.Verified != nil {
		filter["is_verified"] = *f.Verified
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"first_name": re},
			bson.M{"last_name": re},
			bson.M{"email": re},
		}
	}

	return findAll[entity.User](ctx, r.c, filter, pageOptions(p))
}
