package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"eduplatform-backend/blob"
	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/log"
	"eduplatform-backend/store"
)

type UserService struct {
	*Deps
}

type UpdateProfileInput struct {
	FirstName *string  `json:"first_name" validate:"omitempty,min=1,max=100"`
	LastName  *string  `json:"last_name" validate:"omitempty,min=1,max=100"`
	Phone     *string  `json:"phone" validate:"omitempty,max=30"`
	Bio       *string  `json:"bio" validate:"omitempty,max=2000"`
	Grade     *uint32  `json:"grade" validate:"omitempty,max=13"`
	Expertise []string `json:"expertise" validate:"omitempty,max=20,dive,min=1,max=50"`
}

type UserQuery struct {
	Role     string
	SchoolID string
	Verified *bool
	Search   string
	Page
}

func (s *UserService) Me(ctx context.Context, actor *Actor) (*entity.User, error) {
	return s.getUser(ctx, actor.ID)
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *Actor, in UpdateProfileInput) (*entity.User, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	u, err := s.getUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = *in.Phone
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.Grade != nil {
		if u.Role != entity.RoleStudent {
			return nil, fieldError("grade", "grade is only set on students")
		}
		u.Grade = *in.Grade
	}
	if in.Expertise != nil {
		if u.Role != entity.RoleMentor {
			return nil, fieldError("expertise", "expertise is only set on mentors")
		}
		u.Expertise = in.Expertise
	}
	u.UpdatedAt = s.now()

	if err := s.Store.Users().Replace(ctx, u); err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to update profile", zap.String("userID", u.ID.Hex()))
	}
	return u, nil
}

func (s *UserService) UploadAvatar(ctx context.Context, actor *Actor, f *blob.File) (*entity.User, error) {
	u, err := s.getUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	key, url, err := s.upload(ctx, "avatars/"+u.ID.Hex(), f, blob.Images)
	if err != nil {
		return nil, err
	}

	old := u.AvatarKey
	u.AvatarKey, u.AvatarURL = key, url
	u.UpdatedAt = s.now()
	if err := s.Store.Users().Replace(ctx, u); err != nil {
		s.removeBlob(ctx, key)
		return nil, dbErr(err, errs.ErrNotFound, "failed to store avatar", zap.String("userID", u.ID.Hex()))
	}

	s.removeBlob(ctx, old)
	return u, nil
}

func canView(actor *Actor, u *entity.User) bool {
	switch {
	case actor.ID == u.ID, actor.SuperAdmin():
		return true
	case u.Role == entity.RoleStudent && u.ParentID != nil && *u.ParentID == actor.ID:
		return true
	case u.SchoolID != nil && actor.AdminOf(*u.SchoolID):
		return true
	case u.Role == entity.RoleMentor:
		return true
	}
	return false
}

func (s *UserService) Get(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.User, error) {
	u, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, u) {
		return nil, errs.ErrForbidden
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, actor *Actor, q UserQuery) ([]*entity.User, error) {
	f := store.UserFilter{
		Role:     entity.Role(q.Role),
		Verified: q.Verified,
		Search:   q.Search,
	}
	if f.Role != "" && !f.Role.Valid() {
		return nil, fieldError("role", "unknown role")
	}

	schoolID, err := parseOptionalID(q.SchoolID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.SuperAdmin():
		f.SchoolID = schoolID
	case actor.Role == entity.RoleSchoolAdmin:
		if actor.SchoolID == nil {
			return nil, errs.ErrNoSchool
		}
		if schoolID != nil && *schoolID != *actor.SchoolID {
			return nil, errs.ErrForbidden
		}
		f.SchoolID = actor.SchoolID
	default:
		return nil, errs.ErrForbidden
	}

	users, err := s.Store.Users().List(ctx, f, q.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list users")
	}
	return users, nil
}

func (s *UserService) SetActive(ctx context.Context, actor *Actor, id primitive.ObjectID, active bool) (*entity.User, error) {
	if !actor.SuperAdmin() {
		return nil, errs.ErrForbidden
	}
	if actor.ID == id {
		return nil, errs.ErrForbidden
	}

	u, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}

	u.IsActive = active
	u.UpdatedAt = s.now()
	if err := s.Store.Users().Replace(ctx, u); err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to update user", zap.String("userID", id.Hex()))
	}

	log.Logger.Info("user activation changed", zap.String("userID", id.Hex()), zap.Bool("active", active),
		zap.String("by", actor.ID.Hex()))
	return u, nil
}

// Delete removes an account; a school student's seat is returned to the school.
func (s *UserService) Delete(ctx context.Context, actor *Actor, id primitive.ObjectID) error {
	if !actor.SuperAdmin() {
		return errs.ErrForbidden
	}
	if actor.ID == id {
		return errs.ErrCannotDeleteSelf
	}

	u, err := s.getUser(ctx, id)
	if err != nil {
		return err
	}

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if u.Role == entity.RoleStudent && u.SchoolID != nil {
			if err := s.Store.Schools().ReleaseSeat(ctx, *u.SchoolID, u.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}
		return s.Store.Users().Delete(ctx, u.ID)
	})
	if err != nil {
		return dbErr(err, errs.ErrNotFound, "failed to delete user", zap.String("userID", id.Hex()))
	}

	s.removeBlob(ctx, u.AvatarKey)
	log.Logger.Info("user deleted", zap.String("userID", id.Hex()), zap.String("by", actor.ID.Hex()))
	return nil
}
