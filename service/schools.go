package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/log"
	"eduplatform-backend/mail"
	"eduplatform-backend/metrics"
	"eduplatform-backend/store"
)

type SchoolService struct {
	*Deps
}

type SchoolQuery struct {
	PaymentStatus string
	Search        string
	Page
}

type UpdateSchoolInput struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Email   *string `json:"email" validate:"omitempty,email,max=254"`
	Phone   *string `json:"phone" validate:"omitempty,max=30"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

type OnboardStudentInput struct {
	SchoolID  string `json:"school_id" validate:"omitempty,objectid"`
	Email     string `json:"email" validate:"required,email,max=254"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Grade     uint32 `json:"grade" validate:"max=13"`
}

// OnboardedUser is an account created on someone's behalf; CredentialsSent
// is false when the welcome email could not be delivered.
type OnboardedUser struct {
	User            *entity.User `json:"user"`
	CredentialsSent bool         `json:"credentials_sent"`
}

func (s *SchoolService) load(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.School, error) {
	if !actor.SuperAdmin() && !actor.AdminOf(id) {
		return nil, errs.ErrForbidden
	}

	school, err := s.Store.Schools().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load school", zap.String("schoolID", id.Hex()))
	}
	return school, nil
}

func (s *SchoolService) Get(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.School, error) {
	return s.load(ctx, actor, id)
}

func (s *SchoolService) List(ctx context.Context, actor *Actor, q SchoolQuery) ([]*entity.School, error) {
	if !actor.SuperAdmin() {
		return nil, errs.ErrForbidden
	}

	status := entity.PaymentStatus(q.PaymentStatus)
	if status != "" && status != entity.PaymentPending && status != entity.PaymentCompleted {
		return nil, fieldError("payment_status", "must be pending or completed")
	}

	schools, err := s.Store.Schools().List(ctx, store.SchoolFilter{PaymentStatus: status, Search: q.Search}, q.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list schools")
	}
	return schools, nil
}

func (s *SchoolService) Update(ctx context.Context, actor *Actor, id primitive.ObjectID, in UpdateSchoolInput) (*entity.School, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	school, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		school.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		school.Email = normalizeEmail(*in.Email)
	}
	if in.Phone != nil {
		school.Phone = *in.Phone
	}
	if in.Address != nil {
		school.Address = *in.Address
	}
	school.UpdatedAt = s.now()

	if err := s.Store.Schools().Replace(ctx, school); err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to update school", zap.String("schoolID", id.Hex()))
	}
	return school, nil
}

// OnboardStudent creates a student and takes one of the school's seats in the
// same transaction.
func (s *SchoolService) OnboardStudent(ctx context.Context, actor *Actor, in OnboardStudentInput) (*OnboardedUser, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var schoolID primitive.ObjectID
	switch {
	case actor.Role == entity.RoleSchoolAdmin:
		if actor.SchoolID == nil {
			return nil, errs.ErrNoSchool
		}
		schoolID = *actor.SchoolID
		if in.SchoolID != "" && in.SchoolID != schoolID.Hex() {
			return nil, errs.ErrForbidden
		}
	case actor.SuperAdmin():
		if in.SchoolID == "" {
			return nil, fieldError("school_id", requiredText)
		}
		schoolID, _ = primitive.ObjectIDFromHex(in.SchoolID)
	default:
		return nil, errs.ErrForbidden
	}

	school, err := s.load(ctx, actor, schoolID)
	if err != nil {
		return nil, err
	}
	switch {
	case !school.Paid():
		return nil, errs.ErrPaymentRequired
	case !school.SubscriptionActive(s.now()):
		return nil, errs.ErrSubscriptionExpired
	case school.StudentQuota <= 0:
		return nil, errs.ErrQuotaExceeded
	}

	password, hash, err := newTemporaryPassword()
	if err != nil {
		return nil, err
	}

	now := s.now()
	student := &entity.User{
		ID:                 primitive.NewObjectID(),
		Email:              in.Email,
		Password:           hash,
		Role:               entity.RoleStudent,
		SchoolID:           &school.ID,
		FirstName:          strings.TrimSpace(in.FirstName),
		LastName:           strings.TrimSpace(in.LastName),
		Grade:              in.Grade,
		IsActive:           true,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Store.Users().Create(ctx, student); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return errs.ErrAlreadyExists
			}
			return err
		}
		if err := s.Store.Schools().ReserveSeat(ctx, school.ID, student.ID); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return errs.ErrQuotaExceeded
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to onboard student", zap.String("schoolID", school.ID.Hex()))
	}
	metrics.RecordOnboarding("student")

	res := &OnboardedUser{User: student}
	res.CredentialsSent = s.notify(ctx, mail.TemplateAccountCredentials, student.Email, "Your student account", mail.CredentialsData{
		Name:     student.FullName(),
		Email:    student.Email,
		Password: password,
		Role:     "student",
	}) == nil

	log.Logger.Info("student onboarded", zap.String("schoolID", school.ID.Hex()), zap.String("userID", student.ID.Hex()))
	return res, nil
}

func (s *SchoolService) ListStudents(ctx context.Context, actor *Actor, schoolID primitive.ObjectID, q UserQuery) ([]*entity.User, error) {
	if !actor.SuperAdmin() && !actor.AdminOf(schoolID) {
		return nil, errs.ErrForbidden
	}

	users, err := s.Store.Users().List(ctx, store.UserFilter{
		Role:     entity.RoleStudent,
		SchoolID: &schoolID,
		Search:   q.Search,
	}, q.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list students", zap.String("schoolID", schoolID.Hex()))
	}
	return users, nil
}

// RemoveStudent deletes the student account and frees its seat.
func (s *SchoolService) RemoveStudent(ctx context.Context, actor *Actor, schoolID, studentID primitive.ObjectID) error {
	if !actor.SuperAdmin() && !actor.AdminOf(schoolID) {
		return errs.ErrForbidden
	}

	student, err := s.getUser(ctx, studentID)
	if err != nil {
		return err
	}
	if student.Role != entity.RoleStudent || !student.BelongsToSchool(schoolID) {
		return errs.ErrNotStudent
	}

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Store.Schools().ReleaseSeat(ctx, schoolID, studentID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return errs.ErrNotStudent
			}
			return err
		}
		return s.Store.Users().Delete(ctx, studentID)
	})
	if err != nil {
		return dbErr(err, errs.ErrNotFound, "failed to remove student", zap.String("schoolID", schoolID.Hex()))
	}

	s.removeBlob(ctx, student.AvatarKey)
	return nil
}

// ExpireSubscriptions notifies every school whose subscription lapsed since
// the last sweep. Schools whose email fails are retried on the next run.
func (s *SchoolService) ExpireSubscriptions(ctx context.Context) (int, error) {
	lapsed, err := s.Store.Schools().ListLapsed(ctx, s.now())
	if err != nil {
		return 0, dbErr(err, nil, "failed to list lapsed schools")
	}

	notified := 0
	for _, school := range lapsed {
		logger := log.Logger.With(zap.String("schoolID", school.ID.Hex()))

		to := school.Email
		if to == "" {
			admin, err := s.getUser(ctx, school.AdminID)
			if err != nil {
				logger.Warn("no contact for lapsed school")
				continue
			}
			to = admin.Email
		}

		if err := s.notify(ctx, mail.TemplateSubscriptionExpired, to, "Your subscription has expired", mail.SubscriptionExpiredData{
			SchoolName: school.Name,
			ExpiredAt:  *school.SubscriptionExpiresAt,
		}); err != nil {
			continue
		}

		if err := s.Store.Schools().MarkExpiryNotified(ctx, school.ID); err != nil {
			logger.Error("failed to mark expiry notified", zap.Error(err))
			continue
		}
		notified++
	}

	log.Logger.Info("subscription sweep finished", zap.Int("lapsed", len(lapsed)), zap.Int("notified", notified))
	return notified, nil
}
