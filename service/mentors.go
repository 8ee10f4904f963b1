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
	"eduplatform-backend/mail"
	"eduplatform-backend/metrics"
	"eduplatform-backend/store"
)

type MentorService struct {
	*Deps
}

type OnboardMentorInput struct {
	Email     string   `json:"email" validate:"required,email,max=254"`
	FirstName string   `json:"first_name" validate:"required,max=100"`
	LastName  string   `json:"last_name" validate:"required,max=100"`
	Phone     string   `json:"phone" validate:"omitempty,max=30"`
	Expertise []string `json:"expertise" validate:"omitempty,max=20,dive,min=1,max=50"`
}

type MentorQuery struct {
	Verified *bool
	SchoolID string
	Search   string
	Page
}

type ReviewCredentialInput struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
	Reason string `json:"reason" validate:"max=1000"`
}

// OnboardMentor creates a mentor account with a temporary password. Mentors
// added by a school admin belong to that school.
func (s *MentorService) OnboardMentor(ctx context.Context, actor *Actor, in OnboardMentorInput) (*OnboardedUser, error) {
	if !actor.Is(entity.RoleSuperAdmin, entity.RoleSchoolAdmin) {
		return nil, errs.ErrForbidden
	}
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	password, hash, err := newTemporaryPassword()
	if err != nil {
		return nil, err
	}

	now := s.now()
	mentor := &entity.User{
		ID:                 primitive.NewObjectID(),
		Email:              in.Email,
		Password:           hash,
		Role:               entity.RoleMentor,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		Phone:              in.Phone,
		Expertise:          in.Expertise,
		IsActive:           true,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if actor.Role == entity.RoleSchoolAdmin {
		if actor.SchoolID == nil {
			return nil, errs.ErrNoSchool
		}
		sid := *actor.SchoolID
		mentor.SchoolID = &sid
	}

	if err := s.Store.Users().Create(ctx, mentor); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.ErrAlreadyExists
		}
		return nil, dbErr(err, nil, "failed inserting mentor")
	}
	metrics.RecordOnboarding("mentor")

	res := &OnboardedUser{User: mentor}
	res.CredentialsSent = s.notify(ctx, mail.TemplateAccountCredentials, mentor.Email, "Your mentor account", mail.CredentialsData{
		Name:     mentor.FullName(),
		Email:    mentor.Email,
		Password: password,
		Role:     "mentor",
	}) == nil

	return res, nil
}

func (s *MentorService) List(ctx context.Context, q MentorQuery) ([]*entity.User, error) {
	schoolID, err := parseOptionalID(q.SchoolID)
	if err != nil {
		return nil, err
	}

	users, err := s.Store.Users().List(ctx, store.UserFilter{
		Role:     entity.RoleMentor,
		SchoolID: schoolID,
		Verified: q.Verified,
		Search:   q.Search,
	}, q.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list mentors")
	}
	return users, nil
}

func (s *MentorService) UploadCredential(ctx context.Context, actor *Actor, title string, f *blob.File) (*entity.MentorCredential, error) {
	if actor.Role != entity.RoleMentor {
		return nil, errs.ErrForbidden
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fieldError("title", requiredText)
	}
	if len(title) > 200 {
		return nil, fieldError("title", "title must be a maximum of 200 characters in length")
	}

	key, url, err := s.upload(ctx, "credentials/"+actor.ID.Hex(), f, blob.Documents)
	if err != nil {
		return nil, err
	}

	c := &entity.MentorCredential{
		ID:          primitive.NewObjectID(),
		MentorID:    actor.ID,
		Title:       title,
		DocumentKey: key,
		DocumentURL: url,
		Status:      entity.CredentialPending,
		SubmittedAt: s.now(),
	}
	if err := s.Store.Credentials().Create(ctx, c); err != nil {
		s.removeBlob(ctx, key)
		return nil, dbErr(err, nil, "failed to store credential", zap.String("userID", actor.ID.Hex()))
	}

	log.Logger.Info("credential submitted", zap.String("userID", actor.ID.Hex()), zap.String("credentialID", c.ID.Hex()))
	return c, nil
}

func (s *MentorService) ListMyCredentials(ctx context.Context, actor *Actor, p Page) ([]*entity.MentorCredential, error) {
	creds, err := s.Store.Credentials().List(ctx, store.CredentialFilter{MentorID: &actor.ID}, p.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list credentials", zap.String("userID", actor.ID.Hex()))
	}
	return creds, nil
}

func (s *MentorService) ListCredentials(ctx context.Context, actor *Actor, status string, p Page) ([]*entity.MentorCredential, error) {
	if !actor.SuperAdmin() {
		return nil, errs.ErrForbidden
	}

	st := entity.CredentialStatus(status)
	switch st {
	case "", entity.CredentialPending, entity.CredentialApproved, entity.CredentialRejected:
	default:
		return nil, fieldError("status", "must be pending, approved or rejected")
	}

	creds, err := s.Store.Credentials().List(ctx, store.CredentialFilter{Status: st}, p.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list credentials")
	}
	return creds, nil
}

// ReviewCredential settles a pending credential. Approval verifies the mentor;
// rejection needs a reason.
func (s *MentorService) ReviewCredential(ctx context.Context, actor *Actor, id primitive.ObjectID, in ReviewCredentialInput) (*entity.MentorCredential, error) {
	if !actor.SuperAdmin() {
		return nil, errs.ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	status := entity.CredentialStatus(in.Status)
	reason := strings.TrimSpace(in.Reason)
	if status == entity.CredentialRejected && reason == "" {
		return nil, errs.ErrReasonRequired
	}

	cred, err := s.Store.Credentials().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load credential", zap.String("credentialID", id.Hex()))
	}
	mentor, err := s.getUser(ctx, cred.MentorID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		err := s.Store.Credentials().Review(ctx, id, entity.CredentialReview{
			Status:     status,
			VerifiedBy: actor.ID,
			Reason:     reason,
			ReviewedAt: now,
		})
		if errors.Is(err, store.ErrConflict) {
			return errs.ErrAlreadyReviewed
		}
		if err != nil || status != entity.CredentialApproved {
			return err
		}

		return s.Store.Users().SetVerified(ctx, mentor.ID, true, now)
	})
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to review credential", zap.String("credentialID", id.Hex()))
	}

	if err := s.notify(ctx, mail.TemplateCredentialReviewed, mentor.Email, "Your credential was reviewed", mail.CredentialReviewedData{
		Name:     mentor.FullName(),
		Title:    cred.Title,
		Approved: status == entity.CredentialApproved,
		Reason:   reason,
	}); err != nil {
		log.Logger.Warn("review email not sent", zap.String("credentialID", id.Hex()))
	}

	by, at := actor.ID, now
	cred.Status, cred.VerifiedBy, cred.Reason, cred.ReviewedAt = status, &by, reason, &at
	return cred, nil
}
