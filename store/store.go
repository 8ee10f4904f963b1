// Package store defines the persistence contract shared by the MongoDB and
// in-memory backends.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduplatform-backend/entity"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrConflict means a conditional update matched nothing.
	ErrConflict = errors.New("store: conditional update failed")
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type Page struct {
	Skip  int64
	Limit int64
}

func (p Page) Normalize() Page {
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Limit <= 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

type Store interface {
	Users() UserRepository
	Schools() SchoolRepository
	Transactions() TransactionRepository
	Categories() CategoryRepository
	Contents() ContentRepository
	Challenges() ChallengeRepository
	Completions() CompletionRepository
	Communities() CommunityRepository
	Posts() PostRepository
	Credentials() CredentialRepository
	TempStudents() TempStudentRepository
	PasswordResets() PasswordResetRepository

	// WithTransaction runs fn so that every write made through ctx commits or
	// rolls back together.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
}

type UserFilter struct {
	Role     entity.Role
	SchoolID *primitive.ObjectID
	ParentID *primitive.ObjectID
	Verified *bool
	Search   string
}

type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Replace(ctx context.Context, u *entity.User) error
	// SetVerified updates only the verification flag and updated_at.
	SetVerified(ctx context.Context, id primitive.ObjectID, verified bool, at time.Time) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f UserFilter, p Page) ([]*entity.User, error)
}

type SchoolFilter struct {
	PaymentStatus entity.PaymentStatus
	Search        string
}

type SchoolRepository interface {
	Create(ctx context.Context, s *entity.School) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.School, error)
	Replace(ctx context.Context, s *entity.School) error
	List(ctx context.Context, f SchoolFilter, p Page) ([]*entity.School, error)
	// ApplyPayment records a payment. With MarkCompleted set it only applies
	// to a school still pending payment; otherwise it returns ErrConflict.
	ApplyPayment(ctx context.Context, id primitive.ObjectID, payment entity.SchoolPayment) error
	// ReserveSeat consumes one seat only if the school is paid and has quota
	// left; otherwise it returns ErrConflict.
	ReserveSeat(ctx context.Context, id, studentID primitive.ObjectID) error
	ReleaseSeat(ctx context.Context, id, studentID primitive.ObjectID) error
	ListLapsed(ctx context.Context, now time.Time) ([]*entity.School, error)
	MarkExpiryNotified(ctx context.Context, id primitive.ObjectID) error
}

type TransactionFilter struct {
	Type     entity.TransactionType
	SchoolID *primitive.ObjectID
	ParentID *primitive.ObjectID
}

type TransactionRepository interface {
	Create(ctx context.Context, t *entity.Transaction) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.Transaction, error)
	List(ctx context.Context, f TransactionFilter, p Page) ([]*entity.Transaction, error)
}

type CategoryRepository interface {
	Create(ctx context.Context, c *entity.Category) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.Category, error)
	Replace(ctx context.Context, c *entity.Category) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, p Page) ([]*entity.Category, error)
}

type ContentFilter struct {
	CategoryID *primitive.ObjectID
	Type       entity.ContentType
	CreatedBy  *primitive.ObjectID
	Search     string
	// PublishedOr returns published items plus unpublished ones by this author.
	PublishedOr *primitive.ObjectID
	AllStates   bool
}

type ContentRepository interface {
	Create(ctx context.Context, c *entity.Content) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.Content, error)
	Replace(ctx context.Context, c *entity.Content) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f ContentFilter, p Page) ([]*entity.Content, error)
}

type ChallengeFilter struct {
	CategoryID *primitive.ObjectID
	Difficulty entity.Difficulty
	OpenAt     *time.Time
}

type ChallengeRepository interface {
	Create(ctx context.Context, c *entity.Challenge) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.Challenge, error)
	Replace(ctx context.Context, c *entity.Challenge) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, f ChallengeFilter, p Page) ([]*entity.Challenge, error)
}

type CompletionRepository interface {
	// Create returns ErrDuplicate when the user already completed the challenge.
	Create(ctx context.Context, c *entity.ChallengeCompletion) error
	ListByChallenge(ctx context.Context, challengeID primitive.ObjectID, p Page) ([]*entity.ChallengeCompletion, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, p Page) ([]*entity.ChallengeCompletion, error)
	DeleteByChallenge(ctx context.Context, challengeID primitive.ObjectID) error
	Leaderboard(ctx context.Context, limit int64) ([]*entity.LeaderboardEntry, error)
}

type CommunityRepository interface {
	Create(ctx context.Context, c *entity.Community) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.Community, error)
	Replace(ctx context.Context, c *entity.Community) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context, p Page) ([]*entity.Community, error)
	AddMember(ctx context.Context, id, userID primitive.ObjectID) error
	RemoveMember(ctx context.Context, id, userID primitive.ObjectID) error
}

type PostFilter struct {
	CommunityID *primitive.ObjectID
	AuthorID    *primitive.ObjectID
	// NoCommunity restricts the list to the public feed.
	NoCommunity bool
}

type PostRepository interface {
	Create(ctx context.Context, p *entity.Post) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.Post, error)
	Replace(ctx context.Context, p *entity.Post) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByCommunity(ctx context.Context, communityID primitive.ObjectID) error
	List(ctx context.Context, f PostFilter, p Page) ([]*entity.Post, error)
	Like(ctx context.Context, id, userID primitive.ObjectID) error
	Unlike(ctx context.Context, id, userID primitive.ObjectID) error
}

type CredentialFilter struct {
	MentorID *primitive.ObjectID
	Status   entity.CredentialStatus
}

type CredentialRepository interface {
	Create(ctx context.Context, c *entity.MentorCredential) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.MentorCredential, error)
	List(ctx context.Context, f CredentialFilter, p Page) ([]*entity.MentorCredential, error)
	// Review only applies to pending credentials; otherwise ErrConflict.
	Review(ctx context.Context, id primitive.ObjectID, r entity.CredentialReview) error
}

type TempStudentRepository interface {
	Create(ctx context.Context, t *entity.TempStudent) error
	Get(ctx context.Context, id primitive.ObjectID) (*entity.TempStudent, error)
	ListByParent(ctx context.Context, parentID primitive.ObjectID) ([]*entity.TempStudent, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type PasswordResetRepository interface {
	Create(ctx context.Context, r *entity.PasswordReset) error
	GetByToken(ctx context.Context, token string) (*entity.PasswordReset, error)
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) error
}
