package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/log"
	"eduplatform-backend/store"
)

type ChallengeService struct {
	*Deps
}

type ChallengeInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	CategoryIDs []string   `json:"category_ids" validate:"dive,objectid"`
	Difficulty  string     `json:"difficulty" validate:"required,oneof=easy medium hard"`
	Points      int64      `json:"points" validate:"gte=0,lte=100000"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
}

type CompleteChallengeInput struct {
	Submission string `json:"submission" validate:"max=10000"`
}

type ChallengeQuery struct {
	CategoryID string
	Difficulty string
	OpenOnly   bool
	Page
}

func (s *ChallengeService) canManage(actor *Actor) bool {
	return actor.Is(entity.RoleSuperAdmin, entity.RoleSchoolAdmin, entity.RoleMentor)
}

func (s *ChallengeService) apply(ctx context.Context, c *entity.Challenge, in ChallengeInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}
	if in.StartsAt != nil && in.EndsAt != nil && !in.EndsAt.After(*in.StartsAt) {
		return fieldError("ends_at", "ends_at must be after starts_at")
	}
	categories, err := parseIDs(in.CategoryIDs)
	if err != nil {
		return err
	}
	if err := s.ensureCategories(ctx, categories); err != nil {
		return err
	}

	c.Title = strings.TrimSpace(in.Title)
	c.Description = strings.TrimSpace(in.Description)
	c.CategoryIDs = categories
	c.Difficulty = entity.Difficulty(in.Difficulty)
	c.Points = in.Points
	c.StartsAt = utcPtr(in.StartsAt)
	c.EndsAt = utcPtr(in.EndsAt)
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (s *ChallengeService) Create(ctx context.Context, actor *Actor, in ChallengeInput) (*entity.Challenge, error) {
	if !s.canManage(actor) {
		return nil, errs.ErrForbidden
	}

	now := s.now()
	c := &entity.Challenge{ID: primitive.NewObjectID(), CreatedBy: actor.ID, CreatedAt: now, UpdatedAt: now}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.Store.Challenges().Create(ctx, c); err != nil {
		return nil, dbErr(err, nil, "failed to create challenge", zap.String("userID", actor.ID.Hex()))
	}
	return c, nil
}

func (s *ChallengeService) Get(ctx context.Context, id primitive.ObjectID) (*entity.Challenge, error) {
	c, err := s.Store.Challenges().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load challenge", zap.String("challengeID", id.Hex()))
	}
	return c, nil
}

func (s *ChallengeService) List(ctx context.Context, q ChallengeQuery) ([]*entity.Challenge, error) {
	f := store.ChallengeFilter{Difficulty: entity.Difficulty(q.Difficulty)}
	switch f.Difficulty {
	case "", entity.DifficultyEasy, entity.DifficultyMedium, entity.DifficultyHard:
	default:
		return nil, fieldError("difficulty", "must be easy, medium or hard")
	}

	var err error
	if f.CategoryID, err = parseOptionalID(q.CategoryID); err != nil {
		return nil, err
	}
	if q.OpenOnly {
		now := s.now()
		f.OpenAt = &now
	}

	cs, err := s.Store.Challenges().List(ctx, f, q.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list challenges")
	}
	return cs, nil
}

func (s *ChallengeService) owned(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.Challenge, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.CreatedBy != actor.ID && !actor.SuperAdmin() {
		return nil, errs.ErrForbidden
	}
	return c, nil
}

func (s *ChallengeService) Update(ctx context.Context, actor *Actor, id primitive.ObjectID, in ChallengeInput) (*entity.Challenge, error) {
	c, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, c, in); err != nil {
		return nil, err
	}
	c.UpdatedAt = s.now()

	if err := s.Store.Challenges().Replace(ctx, c); err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to update challenge", zap.String("challengeID", id.Hex()))
	}
	return c, nil
}

// Delete removes the challenge together with its completions.
func (s *ChallengeService) Delete(ctx context.Context, actor *Actor, id primitive.ObjectID) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}

	err := s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Store.Completions().DeleteByChallenge(ctx, id); err != nil {
			return err
		}
		return s.Store.Challenges().Delete(ctx, id)
	})
	return dbErr(err, errs.ErrNotFound, "failed to delete challenge", zap.String("challengeID", id.Hex()))
}

func (s *ChallengeService) Complete(ctx context.Context, actor *Actor, id primitive.ObjectID, in CompleteChallengeInput) (*entity.ChallengeCompletion, error) {
	if actor.Role != entity.RoleStudent {
		return nil, errs.ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !c.OpenAt(now) {
		return nil, errs.ErrChallengeClosed
	}

	cc := &entity.ChallengeCompletion{
		ID:          primitive.NewObjectID(),
		ChallengeID: c.ID,
		UserID:      actor.ID,
		Submission:  strings.TrimSpace(in.Submission),
		Score:       c.Points,
		CompletedAt: now,
	}
	if err := s.Store.Completions().Create(ctx, cc); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.ErrAlreadyCompleted
		}
		return nil, dbErr(err, nil, "failed to record completion", zap.String("challengeID", id.Hex()))
	}

	log.Logger.Info("challenge completed", zap.String("challengeID", id.Hex()), zap.String("userID", actor.ID.Hex()))
	return cc, nil
}

func (s *ChallengeService) ListCompletions(ctx context.Context, actor *Actor, id primitive.ObjectID, p Page) ([]*entity.ChallengeCompletion, error) {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	cs, err := s.Store.Completions().ListByChallenge(ctx, id, p.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list completions", zap.String("challengeID", id.Hex()))
	}
	return cs, nil
}

func (s *ChallengeService) MyCompletions(ctx context.Context, actor *Actor, p Page) ([]*entity.ChallengeCompletion, error) {
	cs, err := s.Store.Completions().ListByUser(ctx, actor.ID, p.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list completions", zap.String("userID", actor.ID.Hex()))
	}
	return cs, nil
}

func (s *ChallengeService) Leaderboard(ctx context.Context, limit int64) ([]*entity.LeaderboardEntry, error) {
	if limit <= 0 || limit > store.MaxLimit {
		limit = store.DefaultLimit
	}
	entries, err := s.Store.Completions().Leaderboard(ctx, limit)
	if err != nil {
		return nil, dbErr(err, nil, "failed to build leaderboard")
	}
	return entries, nil
}
