package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"eduplatform-backend/cache"
	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/log"
	"eduplatform-backend/mail"
	"eduplatform-backend/metrics"
	"eduplatform-backend/store"
)

// SchoolOnboardingService registers schools. The admin's temporary password
// waits in the cache until the registration payment is recorded.
type SchoolOnboardingService struct {
	*Deps
}

type OnboardSchoolInput struct {
	Name           string `json:"name" validate:"required,max=200"`
	Email          string `json:"email" validate:"required,email,max=254"`
	Phone          string `json:"phone" validate:"omitempty,max=30"`
	Address        string `json:"address" validate:"omitempty,max=500"`
	AdminEmail     string `json:"admin_email" validate:"required,email,max=254"`
	AdminFirstName string `json:"admin_first_name" validate:"required,max=100"`
	AdminLastName  string `json:"admin_last_name" validate:"required,max=100"`
}

type OnboardSchoolResult struct {
	School *entity.School `json:"school"`
	Admin  *entity.User   `json:"admin"`
}

func (s *SchoolOnboardingService) OnboardSchool(ctx context.Context, in OnboardSchoolInput) (*OnboardSchoolResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.AdminEmail = normalizeEmail(in.AdminEmail)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	password, hash, err := newTemporaryPassword()
	if err != nil {
		return nil, err
	}

	now := s.now()
	school := &entity.School{
		ID:            primitive.NewObjectID(),
		Name:          strings.TrimSpace(in.Name),
		Email:         in.Email,
		Phone:         in.Phone,
		Address:       in.Address,
		PaymentStatus: entity.PaymentPending,
		Students:      []primitive.ObjectID{},
		Transactions:  []primitive.ObjectID{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	admin := &entity.User{
		ID:                 primitive.NewObjectID(),
		Email:              in.AdminEmail,
		Password:           hash,
		Role:               entity.RoleSchoolAdmin,
		SchoolID:           &school.ID,
		FirstName:          strings.TrimSpace(in.AdminFirstName),
		LastName:           strings.TrimSpace(in.AdminLastName),
		IsActive:           true,
		IsVerified:         true,
		MustChangePassword: true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	school.AdminID = admin.ID

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.Store.Users().Create(ctx, admin); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return errs.ErrAlreadyExists
			}
			return err
		}
		return s.Store.Schools().Create(ctx, school)
	})
	if err != nil {
		return nil, dbErr(err, nil, "failed to onboard school", zap.String("email", in.Email))
	}

	logger := log.Logger.With(zap.String("schoolID", school.ID.Hex()))
	if err := s.Cache.Set(ctx, cache.TempPasswordKey(school.ID.Hex()), password, s.Settings.TempPasswordTTL); err != nil {
		logger.Error("failed to cache temporary password", zap.Error(err))
	}
	metrics.RecordOnboarding("school")

	if err := s.notify(ctx, mail.TemplateSchoolRegistered, admin.Email, "Complete your school registration", mail.SchoolRegisteredData{
		SchoolName: school.Name,
		AdminName:  admin.FullName(),
		ExpiresIn:  s.Settings.TempPasswordTTL,
	}); err != nil {
		logger.Warn("registration notice not sent")
	}

	logger.Info("school onboarded")
	return &OnboardSchoolResult{School: school, Admin: admin}, nil
}

// DeliverCredentials emails the admin's temporary password once. An expired
// password is replaced; if the email fails the password goes back in the cache.
func (s *SchoolOnboardingService) DeliverCredentials(ctx context.Context, school *entity.School) error {
	logger := log.Logger.With(zap.String("schoolID", school.ID.Hex()))
	key := cache.TempPasswordKey(school.ID.Hex())

	admin, err := s.getUser(ctx, school.AdminID)
	if err != nil {
		return err
	}

	password, err := s.Cache.Take(ctx, key)
	switch {
	case errors.Is(err, cache.ErrMiss):
		logger.Info("temporary password expired, regenerating")
		if password, err = s.resetPassword(ctx, admin); err != nil {
			return err
		}
	case err != nil:
		logger.Error("cache failure", zap.Error(err))
		return errs.ErrCache
	case bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)) != nil:
		logger.Info("cached password is stale, regenerating")
		if password, err = s.resetPassword(ctx, admin); err != nil {
			return err
		}
	}

	err = s.notify(ctx, mail.TemplateAccountCredentials, admin.Email, "Your school administrator account", mail.CredentialsData{
		Name:     admin.FullName(),
		Email:    admin.Email,
		Password: password,
		Role:     "school administrator",
	})
	if err != nil {
		if cerr := s.Cache.Set(ctx, key, password, s.Settings.TempPasswordTTL); cerr != nil {
			logger.Error("failed to restore temporary password", zap.Error(cerr))
		}
		return err
	}

	logger.Info("school credentials delivered")
	return nil
}

// ResendCredentials issues a new temporary password. Paid schools get it by
// email; pending schools get it cached until payment.
func (s *SchoolOnboardingService) ResendCredentials(ctx context.Context, actor *Actor, schoolID primitive.ObjectID) error {
	if !actor.SuperAdmin() {
		return errs.ErrForbidden
	}

	school, err := s.Store.Schools().Get(ctx, schoolID)
	if err != nil {
		return dbErr(err, errs.ErrNotFound, "failed to load school", zap.String("schoolID", schoolID.Hex()))
	}
	admin, err := s.getUser(ctx, school.AdminID)
	if err != nil {
		return err
	}

	password, err := s.resetPassword(ctx, admin)
	if err != nil {
		return err
	}

	key := cache.TempPasswordKey(school.ID.Hex())
	if !school.Paid() {
		if err := s.Cache.Set(ctx, key, password, s.Settings.TempPasswordTTL); err != nil {
			log.Logger.Error("failed to cache temporary password", zap.String("schoolID", school.ID.Hex()), zap.Error(err))
			return errs.ErrCache
		}
		return nil
	}

	if err := s.Cache.Delete(ctx, key); err != nil {
		log.Logger.Warn("failed to drop stale temporary password", zap.String("schoolID", school.ID.Hex()), zap.Error(err))
	}
	err = s.notify(ctx, mail.TemplateAccountCredentials, admin.Email, "Your school administrator account", mail.CredentialsData{
		Name:     admin.FullName(),
		Email:    admin.Email,
		Password: password,
		Role:     "school administrator",
	})
	if err != nil {
		if cerr := s.Cache.Set(ctx, key, password, s.Settings.TempPasswordTTL); cerr != nil {
			log.Logger.Error("failed to restore temporary password", zap.String("schoolID", school.ID.Hex()), zap.Error(cerr))
		}
		return err
	}
	return nil
}

func (s *SchoolOnboardingService) resetPassword(ctx context.Context, u *entity.User) (string, error) {
	password, hash, err := newTemporaryPassword()
	if err != nil {
		return "", err
	}

	u.Password = hash
	u.MustChangePassword = true
	u.UpdatedAt = s.now()
	if err := s.Store.Users().Replace(ctx, u); err != nil {
		return "", dbErr(err, errs.ErrNotFound, "failed to store temporary password", zap.String("userID", u.ID.Hex()))
	}
	return password, nil
}
