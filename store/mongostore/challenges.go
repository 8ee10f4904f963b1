package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eduplatform-backend/entity"
	"eduplatform-backend/store"
)

type challengeRepo struct {
	c *mongo.Collection
}

func normalizeChallenge(c *entity.Challenge) {
	if c.CategoryIDs == nil {
		c.CategoryIDs = []primitive.ObjectID{}
	}
}

func (r *challengeRepo) Create(ctx context.Context, c *entity.Challenge) error {
	normalizeChallenge(c)
	return insertOne(ctx, r.c, c)
}

func (r *challengeRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.Challenge, error) {
	return findOne[entity.Challenge](ctx, r.c, bson.M{"_id": id})
}

func (r *challengeRepo) Replace(ctx context.Context, c *entity.Challenge) error {
	normalizeChallenge(c)
	return replaceByID(ctx, r.c, c.ID, c)
}

func (r *challengeRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.c, id)
}

func (r *challengeRepo) List(ctx context.Context, f store.ChallengeFilter, p store.Page) ([]*entity.Challenge, error) {
	filter := bson.M{}
	if f.CategoryID != nil {
		filter["category_ids"] = *f.CategoryID
	}
	if f.Difficulty != "" {
		filter["difficulty"] = f.Difficulty
	}
	if f.OpenAt != nil {
		filter["$and"] = bson.A{
			bson.M{"$or": bson.A{bson.M{"starts_at": nil}, bson.M{"starts_at": bson.M{"$lte": *f.OpenAt}}}},
			bson.M{"$or": bson.A{bson.M{"ends_at": nil}, bson.M{"ends_at": bson.M{"$gte": *f.OpenAt}}}},
		}
	}

	return findAll[entity.Challenge](ctx, r.c, filter, pageOptions(p))
}

type completionRepo struct {
	c *mongo.Collection
}

func (r *completionRepo) Create(ctx context.Context, c *entity.ChallengeCompletion) error {
	return insertOne(ctx, r.c, c)
}

func (r *completionRepo) ListByChallenge(ctx context.Context, challengeID primitive.ObjectID, p store.Page) ([]*entity.ChallengeCompletion, error) {
	return findAll[entity.ChallengeCompletion](ctx, r.c, bson.M{"challenge_id": challengeID}, pageOptions(p))
}

func (r *completionRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, p store.Page) ([]*entity.ChallengeCompletion, error) {
	return findAll[entity.ChallengeCompletion](ctx, r.c, bson.M{"user_id": userID}, pageOptions(p))
}

func (r *completionRepo) DeleteByChallenge(ctx context.Context, challengeID primitive.ObjectID) error {
	_, err := r.c.DeleteMany(ctx, bson.M{"challenge_id": challengeID})
	return err
}

func (r *completionRepo) Leaderboard(ctx context.Context, limit int64) ([]*entity.LeaderboardEntry, error) {
	if limit <= 0 || limit > store.MaxLimit {
		limit = store.DefaultLimit
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$user_id"},
			{Key: "points", Value: bson.D{{Key: "$sum", Value: "$score"}}},
			{Key: "completed", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "points", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}

	cursor, err := r.c.Aggregate(ctx, pipeline, options.Aggregate())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(context.Background())

	out := make([]*entity.LeaderboardEntry, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
