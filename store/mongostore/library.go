package mongostore

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"eduplatform-backend/entity"
	"eduplatform-backend/store"
)

type categoryRepo struct {
	c *mongo.Collection
}

func (r *categoryRepo) Create(ctx context.Context, c *entity.Category) error {
	return insertOne(ctx, r.c, c)
}

func (r *categoryRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.Category, error) {
	return findOne[entity.Category](ctx, r.c, bson.M{"_id": id})
}

func (r *categoryRepo) Replace(ctx context.Context, c *entity.Category) error {
	return replaceByID(ctx, r.c, c.ID, c)
}

func (r *categoryRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.c, id)
}

func (r *categoryRepo) List(ctx context.Context, p store.Page) ([]*entity.Category, error) {
	return findAll[entity.Category](ctx, r.c, bson.M{}, pageOptions(p))
}

type contentRepo struct {
	c *mongo.Collection
}

func normalizeContent(c *entity.Content) {
	if c.CategoryIDs == nil {
		c.CategoryIDs = []primitive.ObjectID{}
	}
}

func (r *contentRepo) Create(ctx context.Context, c *entity.Content) error {
	normalizeContent(c)
	return insertOne(ctx, r.c, c)
}

func (r *contentRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.Content, error) {
	return findOne[entity.Content](ctx, r.c, bson.M{"_id": id})
}

func (r *contentRepo) Replace(ctx context.Context, c *entity.Content) error {
	normalizeContent(c)
	return replaceByID(ctx, r.c, c.ID, c)
}

func (r *contentRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.c, id)
}

func (r *contentRepo) List(ctx context.Context, f store.ContentFilter, p store.Page) ([]*entity.Content, error) {
	filter := bson.M{}
	if f.CategoryID != nil {
		filter["category_ids"] = *f.CategoryID
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.CreatedBy != nil {
		filter["created_by"] = *f.CreatedBy
	}
	if f.Search != "" {
		filter["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}
	switch {
	case f.AllStates:
	case f.PublishedOr != nil:
		filter["$or"] = bson.A{
			bson.M{"published": true},
			bson.M{"created_by": *f.PublishedOr},
		}
	default:
		filter["published"] = true
	}

	return findAll[entity.Content](ctx, r.c, filter, pageOptions(p))
}
