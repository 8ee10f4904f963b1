// Package memstore is an in-process store.Store. It is used by tests and by
// local runs with STORE_BACKEND=memory.
package memstore

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduplatform-backend/entity"
	"eduplatform-backend/store"
)

type tables struct {
	users          *table[entity.User]
	schools        *table[entity.School]
	transactions   *table[entity.Transaction]
	categories     *table[entity.Category]
	contents       *table[entity.Content]
	challenges     *table[entity.Challenge]
	completions    *table[entity.ChallengeCompletion]
	communities    *table[entity.Community]
	posts          *table[entity.Post]
	credentials    *table[entity.MentorCredential]
	tempStudents   *table[entity.TempStudent]
	passwordResets *table[entity.PasswordReset]
}

func (t *tables) snapshot() *tables {
	return &tables{
		users:          t.users.snapshot(),
		schools:        t.schools.snapshot(),
		transactions:   t.transactions.snapshot(),
		categories:     t.categories.snapshot(),
		contents:       t.contents.snapshot(),
		challenges:     t.challenges.snapshot(),
		completions:    t.completions.snapshot(),
		communities:    t.communities.snapshot(),
		posts:          t.posts.snapshot(),
		credentials:    t.credentials.snapshot(),
		tempStudents:   t.tempStudents.snapshot(),
		passwordResets: t.passwordResets.snapshot(),
	}
}

type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex
	t    *tables
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{t: &tables{
		users:          newTable(func(v *entity.User) primitive.ObjectID { return v.ID }),
		schools:        newTable(func(v *entity.School) primitive.ObjectID { return v.ID }),
		transactions:   newTable(func(v *entity.Transaction) primitive.ObjectID { return v.ID }),
		categories:     newTable(func(v *entity.Category) primitive.ObjectID { return v.ID }),
		contents:       newTable(func(v *entity.Content) primitive.ObjectID { return v.ID }),
		challenges:     newTable(func(v *entity.Challenge) primitive.ObjectID { return v.ID }),
		completions:    newTable(func(v *entity.ChallengeCompletion) primitive.ObjectID { return v.ID }),
		communities:    newTable(func(v *entity.Community) primitive.ObjectID { return v.ID }),
		posts:          newTable(func(v *entity.Post) primitive.ObjectID { return v.ID }),
		credentials:    newTable(func(v *entity.MentorCredential) primitive.ObjectID { return v.ID }),
		tempStudents:   newTable(func(v *entity.TempStudent) primitive.ObjectID { return v.ID }),
		passwordResets: newTable(func(v *entity.PasswordReset) primitive.ObjectID { return v.ID }),
	}}
}

func (s *Store) Users() store.UserRepository                   { return userRepo{s} }
func (s *Store) Schools() store.SchoolRepository               { return schoolRepo{s} }
func (s *Store) Transactions() store.TransactionRepository     { return transactionRepo{s} }
func (s *Store) Categories() store.CategoryRepository          { return categoryRepo{s} }
func (s *Store) Contents() store.ContentRepository             { return contentRepo{s} }
func (s *Store) Challenges() store.ChallengeRepository         { return challengeRepo{s} }
func (s *Store) Completions() store.CompletionRepository       { return completionRepo{s} }
func (s *Store) Communities() store.CommunityRepository        { return communityRepo{s} }
func (s *Store) Posts() store.PostRepository                   { return postRepo{s} }
func (s *Store) Credentials() store.CredentialRepository       { return credentialRepo{s} }
func (s *Store) TempStudents() store.TempStudentRepository     { return tempStudentRepo{s} }
func (s *Store) PasswordResets() store.PasswordResetRepository { return passwordResetRepo{s} }

// WithTransaction serializes transactions and restores the pre-transaction
// snapshot when fn fails. Writes made outside a transaction while one is
// running are lost on rollback.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.t.snapshot()
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.t = snap
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) EnsureIndexes(context.Context) error { return nil }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) lock() *tables {
	s.mu.Lock()
	return s.t
}

func (s *Store) unlock() {
	s.mu.Unlock()
}
