package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/store"
)

// StudentService covers parents registering their own children. A staged
// student becomes an account once the parent's registration payment lands.
type StudentService struct {
	*Deps
}

type StageStudentInput struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Grade     uint32 `json:"grade" validate:"max=13"`
}

func (s *StudentService) StageStudent(ctx context.Context, actor *Actor, in StageStudentInput) (*entity.TempStudent, error) {
	if actor.Role != entity.RoleParent {
		return nil, errs.ErrForbidden
	}
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	_, err := s.Store.Users().GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, errs.ErrAlreadyExists
	case !errors.Is(err, store.ErrNotFound):
		return nil, dbErr(err, nil, "database error", zap.String("email", in.Email))
	}

	now := s.now()
	ts := &entity.TempStudent{
		ID:        primitive.NewObjectID(),
		ParentID:  actor.ID,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Email:     in.Email,
		Grade:     in.Grade,
		ExpiresAt: now.Add(s.Settings.TempStudentTTL),
		CreatedAt: now,
	}
	if err := s.Store.TempStudents().Create(ctx, ts); err != nil {
		return nil, dbErr(err, nil, "failed to stage student", zap.String("userID", actor.ID.Hex()))
	}
	return ts, nil
}

// ListPendingStudents hides staged students that expired but were not yet
// collected by the TTL index.
func (s *StudentService) ListPendingStudents(ctx context.Context, actor *Actor) ([]*entity.TempStudent, error) {
	if actor.Role != entity.RoleParent {
		return nil, errs.ErrForbidden
	}

	all, err := s.Store.TempStudents().ListByParent(ctx, actor.ID)
	if err != nil {
		return nil, dbErr(err, nil, "failed to list staged students", zap.String("userID", actor.ID.Hex()))
	}

	now := s.now()
	out := make([]*entity.TempStudent, 0, len(all))
	for _, ts := range all {
		if !ts.Expired(now) {
			out = append(out, ts)
		}
	}
	return out, nil
}

func (s *StudentService) CancelPendingStudent(ctx context.Context, actor *Actor, id primitive.ObjectID) error {
	ts, err := s.Store.TempStudents().Get(ctx, id)
	if err != nil {
		return dbErr(err, errs.ErrNotFound, "failed to load staged student", zap.String("id", id.Hex()))
	}
	if ts.ParentID != actor.ID {
		return errs.ErrNotFound
	}

	if err := s.Store.TempStudents().Delete(ctx, id); err != nil {
		return dbErr(err, errs.ErrNotFound, "failed to delete staged student", zap.String("id", id.Hex()))
	}
	return nil
}

func (s *StudentService) ListChildren(ctx context.Context, actor *Actor, p Page) ([]*entity.User, error) {
	if actor.Role != entity.RoleParent {
		return nil, errs.ErrForbidden
	}

	users, err := s.Store.Users().List(ctx, store.UserFilter{Role: entity.RoleStudent, ParentID: &actor.ID}, p.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list children", zap.String("userID", actor.ID.Hex()))
	}
	return users, nil
}
