package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"eduplatform-backend/entity"
	"eduplatform-backend/store"
)

type communityRepo struct {
	c *mongo.Collection
}

func normalizeCommunity(c *entity.Community) {
	if c.Members == nil {
		c.Members = []primitive.ObjectID{}
	}
}

func (r *communityRepo) Create(ctx context.Context, c *entity.Community) error {
	normalizeCommunity(c)
	return insertOne(ctx, r.c, c)
}

func (r *communityRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.Community, error) {
	return findOne[entity.Community](ctx, r.c, bson.M{"_id": id})
}

func (r *communityRepo) Replace(ctx context.Context, c *entity.Community) error {
	normalizeCommunity(c)
	return replaceByID(ctx, r.c, c.ID, c)
}

func (r *communityRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.c, id)
}

func (r *communityRepo) List(ctx context.Context, p store.Page) ([]*entity.Community, error) {
	return findAll[entity.Community](ctx, r.c, bson.M{}, pageOptions(p))
}

func (r *communityRepo) AddMember(ctx context.Context, id, userID primitive.ObjectID) error {
	return updateByID(ctx, r.c, id, bson.M{
		"$addToSet": bson.M{"members": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

func (r *communityRepo) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) error {
	return updateByID(ctx, r.c, id, bson.M{
		"$pull": bson.M{"members": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

type postRepo struct {
	c *mongo.Collection
}

func normalizePost(p *entity.Post) {
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
}

func (r *postRepo) Create(ctx context.Context, p *entity.Post) error {
	normalizePost(p)
	return insertOne(ctx, r.c, p)
}

func (r *postRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.Post, error) {
	return findOne[entity.Post](ctx, r.c, bson.M{"_id": id})
}

func (r *postRepo) Replace(ctx context.Context, p *entity.Post) error {
	normalizePost(p)
	return replaceByID(ctx, r.c, p.ID, p)
}

func (r *postRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.c, id)
}

func (r *postRepo) DeleteByCommunity(ctx context.Context, communityID primitive.ObjectID) error {
	_, err := r.c.DeleteMany(ctx, bson.M{"community_id": communityID})
	return err
}

func (r *postRepo) List(ctx context.Context, f store.PostFilter, p store.Page) ([]*entity.Post, error) {
	filter := bson.M{}
	if f.CommunityID != nil {
		filter["community_id"] = *f.CommunityID
	}
	if f.AuthorID != nil {
		filter["author_id"] = *f.AuthorID
	}
	if f.NoCommunity {
		filter["community_id"] = nil
	}

	return findAll[entity.Post](ctx, r.c, filter, pageOptions(p))
}

func (r *postRepo) Like(ctx context.Context, id, userID primitive.ObjectID) error {
	return updateByID(ctx, r.c, id, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (r *postRepo) Unlike(ctx context.Context, id, userID primitive.ObjectID) error {
	return updateByID(ctx, r.c, id, bson.M{"$pull": bson.M{"likes": userID}})
}
