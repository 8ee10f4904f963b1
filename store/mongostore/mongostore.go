// Package mongostore implements store.Store on MongoDB. Multi-document
// transactions need a replica set deployment.
package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"eduplatform-backend/store"
)

const (
	cUsers          = "users"
	cSchools        = "schools"
	cTransactions   = "transactions"
	cCategories     = "categories"
	cContents       = "contents"
	cChallenges     = "challenges"
	cCompletions    = "challenge_completions"
	cCommunities    = "communities"
	cPosts          = "posts"
	cCredentials    = "mentor_credentials"
	cTempStudents   = "temp_students"
	cPasswordResets = "password_resets"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database

	users          *userRepo
	schools        *schoolRepo
	transactions   *transactionRepo
	categories     *categoryRepo
	contents       *contentRepo
	challenges     *challengeRepo
	completions    *completionRepo
	communities    *communityRepo
	posts          *postRepo
	credentials    *credentialRepo
	tempStudents   *tempStudentRepo
	passwordResets *passwordResetRepo
}

var _ store.Store = (*Store)(nil)

func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:         client,
		db:             db,
		users:          &userRepo{c: db.Collection(cUsers)},
		schools:        &schoolRepo{c: db.Collection(cSchools)},
		transactions:   &transactionRepo{c: db.Collection(cTransactions)},
		categories:     &categoryRepo{c: db.Collection(cCategories)},
		contents:       &contentRepo{c: db.Collection(cContents)},
		challenges:     &challengeRepo{c: db.Collection(cChallenges)},
		completions:    &completionRepo{c: db.Collection(cCompletions)},
		communities:    &communityRepo{c: db.Collection(cCommunities)},
		posts:          &postRepo{c: db.Collection(cPosts)},
		credentials:    &credentialRepo{c: db.Collection(cCredentials)},
		tempStudents:   &tempStudentRepo{c: db.Collection(cTempStudents)},
		passwordResets: &passwordResetRepo{c: db.Collection(cPasswordResets)},
	}
}

func (s *Store) Users() store.UserRepository                   { return s.users }
func (s *Store) Schools() store.SchoolRepository               { return s.schools }
func (s *Store) Transactions() store.TransactionRepository     { return s.transactions }
func (s *Store) Categories() store.CategoryRepository          { return s.categories }
func (s *Store) Contents() store.ContentRepository             { return s.contents }
func (s *Store) Challenges() store.ChallengeRepository         { return s.challenges }
func (s *Store) Completions() store.CompletionRepository       { return s.completions }
func (s *Store) Communities() store.CommunityRepository        { return s.communities }
func (s *Store) Posts() store.PostRepository                   { return s.posts }
func (s *Store) Credentials() store.CredentialRepository       { return s.credentials }
func (s *Store) TempStudents() store.TempStudentRepository     { return s.tempStudents }
func (s *Store) PasswordResets() store.PasswordResetRepository { return s.passwordResets }

func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	asc := func(keys ...string) bson.D {
		d := bson.D{}
		for _, k := range keys {
			d = append(d, bson.E{Key: k, Value: 1})
		}
		return d
	}
	unique := options.Index().SetUnique(true)
	ttl := options.Index().SetExpireAfterSeconds(0)

	indexes := map[string][]mongo.IndexModel{
		cUsers: {
			{Keys: asc("email"), Options: unique},
			{Keys: asc("role")},
			{Keys: asc("school_id")},
			{Keys: asc("parent_id")},
		},
		cSchools: {
			{Keys: asc("admin_id")},
			{Keys: asc("payment_status", "subscription_expires_at")},
		},
		cTransactions: {
			{Keys: asc("reference"), Options: unique},
			{Keys: asc("school_id")},
			{Keys: asc("parent_id")},
		},
		cCategories:  {{Keys: asc("slug"), Options: unique}},
		cContents:    {{Keys: asc("category_ids")}, {Keys: asc("created_by")}},
		cChallenges:  {{Keys: asc("category_ids")}},
		cCompletions: {{Keys: asc("user_id", "challenge_id"), Options: unique}, {Keys: asc("challenge_id")}},
		cCommunities: {{Keys: asc("name"), Options: unique}},
		cPosts:       {{Keys: asc("community_id")}, {Keys: asc("author_id")}},
		cCredentials: {{Keys: asc("mentor_id")}, {Keys: asc("status")}},
		cTempStudents: {
			{Keys: asc("expires_at"), Options: ttl},
			{Keys: asc("parent_id")},
		},
		cPasswordResets: {
			{Keys: asc("token"), Options: unique},
			{Keys: asc("ttl"), Options: ttl},
		},
	}

	for name, models := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}

func pageOptions(p store.Page) *options.FindOptions {
	p = p.Normalize()
	return options.Find().
		SetSkip(p.Skip).
		SetLimit(p.Limit).
		SetSort(bson.D{{Key: "_id", Value: -1}})
}

func findOne[T any](ctx context.Context, c *mongo.Collection, filter interface{}) (*T, error) {
	v := new(T)
	if err := c.FindOne(ctx, filter).Decode(v); err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

func findAll[T any](ctx context.Context, c *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]*T, error) {
	cursor, err := c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(context.Background())

	out := make([]*T, 0)
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func insertOne(ctx context.Context, c *mongo.Collection, doc interface{}) error {
	_, err := c.InsertOne(ctx, doc)
	return mapErr(err)
}

func replaceByID(ctx context.Context, c *mongo.Collection, id interface{}, doc interface{}) error {
	res, err := c.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func updateByID(ctx context.Context, c *mongo.Collection, id interface{}, update interface{}) error {
	res, err := c.UpdateByID(ctx, id, update)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func deleteByID(ctx context.Context, c *mongo.Collection, id interface{}) error {
	res, err := c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
