package mongostore

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"eduplatform-backend/entity"
	"eduplatform-backend/store"
)

type schoolRepo struct {
	c *mongo.Collection
}

func normalizeSchool(s *entity.School) {
	if s.Students == nil {
		s.Students = []primitive.ObjectID{}
	}
	if s.Transactions == nil {
		s.Transactions = []primitive.ObjectID{}
	}
}

func (r *schoolRepo) Create(ctx context.Context, s *entity.School) error {
	normalizeSchool(s)
	return insertOne(ctx, r.c, s)
}

func (r *schoolRepo) Get(ctx context.Context, id primitive.ObjectID) (*entity.School, error) {
	return findOne[entity.School](ctx, r.c, bson.M{"_id": id})
}

func (r *schoolRepo) Replace(ctx context.Context, s *entity.School) error {
	normalizeSchool(s)
	return replaceByID(ctx, r.c, s.ID, s)
}

func (r *schoolRepo) List(ctx context.Context, f store.SchoolFilter, p store.Page) ([]*entity.School, error) {
	filter := bson.M{}
	if f.PaymentStatus != "" {
		filter["payment_status"] = f.PaymentStatus
	}
	if f.Search != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
	}

	return findAll[entity.School](ctx, r.c, filter, pageOptions(p))
}

func (r *schoolRepo) ApplyPayment(ctx context.Context, id primitive.ObjectID, payment entity.SchoolPayment) error {
	filter := bson.M{"_id": id}
	set := bson.M{"updated_at": time.Now().UTC()}
	if payment.MarkCompleted {
		filter["payment_status"] = entity.PaymentPending
		set["payment_status"] = entity.PaymentCompleted
	}
	if payment.SubscriptionTo != nil {
		set["subscription_expires_at"] = *payment.SubscriptionTo
		set["expiry_notified"] = false
	}

	update := bson.M{
		"$set":  set,
		"$push": bson.M{"transactions": payment.TransactionID},
	}
	if payment.Seats != 0 {
		update["$inc"] = bson.M{"student_quota": payment.Seats}
	}

	res, err := r.c.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	if !payment.MarkCompleted {
		return store.ErrNotFound
	}
	n, err := r.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return store.ErrConflict
}

func (r *schoolRepo) ReserveSeat(ctx context.Context, id, studentID primitive.ObjectID) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{
			"_id":            id,
			"payment_status": entity.PaymentCompleted,
			"student_quota":  bson.M{"$gt": 0},
		},
		bson.M{
			"$inc":      bson.M{"student_quota": -1},
			"$addToSet": bson.M{"students": studentID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *schoolRepo) ReleaseSeat(ctx context.Context, id, studentID primitive.ObjectID) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": id, "students": studentID},
		bson.M{
			"$inc":  bson.M{"student_quota": 1},
			"$pull": bson.M{"students": studentID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *schoolRepo) ListLapsed(ctx context.Context, now time.Time) ([]*entity.School, error) {
	return findAll[entity.School](ctx, r.c, bson.M{
		"payment_status":          entity.PaymentCompleted,
		"subscription_expires_at": bson.M{"$lte": now},
		"expiry_notified":         false,
	}, options.Find().SetSort(bson.D{{Key: "subscription_expires_at", Value: 1}}))
}

func (r *schoolRepo) MarkExpiryNotified(ctx context.Context, id primitive.ObjectID) error {
	return updateByID(ctx, r.c, id, bson.M{"$set": bson.M{"expiry_notified": true}})
}
