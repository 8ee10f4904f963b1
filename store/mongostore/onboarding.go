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

type credentialRepo struct {
	c *mongo.Collection
}

func (r *credentialRepo) Create(ctx context.Context, c *entity.MentorCredential) error {
	return insertOne(ctx, r.c, c)
}

func (r *credentialRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.MentorCredential, error) {
	return findOne[entity.MentorCredential](ctx, r.c, bson.M{"_id": id})
}

func (r *credentialRepo) List(ctx context.Context, f store.CredentialFilter, p store.Page) ([]*entity.MentorCredential, error) {
	filter := bson.M{}
	if f.MentorID != nil {
		filter["mentor_id"] = *f.MentorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}

	return findAll[entity.MentorCredential](ctx, r.c, filter, pageOptions(p))
}

func (r *credentialRepo) Review(ctx context.Context, id primitive.ObjectID, rv entity.CredentialReview) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": entity.CredentialPending},
		bson.M{"$set": bson.M{
			"status":      rv.Status,
			"verified_by": rv.VerifiedBy,
			"reason":      rv.Reason,
			"reviewed_at": rv.ReviewedAt,
		}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := r.c.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrConflict
	}
	return nil
}

type tempStudentRepo struct {
	c *mongo.Collection
}

func (r *tempStudentRepo) Create(ctx context.Context, t *entity.TempStudent) error {
	return insertOne(ctx, r.c, t)
}

func (r *tempStudentRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.TempStudent, error) {
	return findOne[entity.TempStudent](ctx, r.c, bson.M{"_id": id})
}

func (r *tempStudentRepo) ListByParent(ctx context.Context, parentID primitive.ObjectID) ([]*entity.TempStudent, error) {
	return findAll[entity.TempStudent](ctx, r.c, bson.M{"parent_id": parentID},
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
}

func (r *tempStudentRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.c, id)
}

type passwordResetRepo struct {
	c *mongo.Collection
}

func (r *passwordResetRepo) Create(ctx context.Context, pr *entity.PasswordReset) error {
	return insertOne(ctx, r.c, pr)
}

func (r *passwordResetRepo) GetByToken(ctx context.Context, token string) (*entity.PasswordReset, error) {
	return findOne[entity.PasswordReset](ctx, r.c, bson.M{"token": token})
}

func (r *passwordResetRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
