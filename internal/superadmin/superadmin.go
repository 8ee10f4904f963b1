// Package superadmin provisions the platform operator account.
package superadmin

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/log"
	"eduplatform-backend/store"
)

const minPasswordLength = 8

// Ensure creates the super admin, or promotes an existing account with the
// same email. An empty password keeps the existing one.
func Ensure(ctx context.Context, st store.Store, email, password string, now time.Time) (*entity.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, errs.ErrEmailRequired
	}
	if password != "" && len(password) < minPasswordLength {
		return nil, false, errs.NewValidationError(map[string]string{"password": "password must be at least 8 characters in length"})
	}

	var hash string
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), 10)
		if err != nil {
			log.Logger.Error("bcrypt failure", zap.Error(err))
			return nil, false, errs.ErrCryptographic
		}
		hash = string(b)
	}
	logger := log.Logger.With(zap.String("email", email))

	u, err := st.Users().GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if hash == "" {
			return nil, false, errs.ErrPasswordRequired
		}
		u = &entity.User{
			ID:         primitive.NewObjectID(),
			Email:      email,
			Password:   hash,
			Role:       entity.RoleSuperAdmin,
			FirstName:  "Super",
			LastName:   "Admin",
			IsActive:   true,
			IsVerified: true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := st.Users().Create(ctx, u); err != nil {
			logger.Error("failed creating super admin", zap.Error(err))
			return nil, false, errs.ErrDatabase
		}
		logger.Info("super admin created")
		return u, true, nil
	case err != nil:
		logger.Error("database error", zap.Error(err))
		return nil, false, errs.ErrDatabase
	}

	u.Role = entity.RoleSuperAdmin
	u.SchoolID, u.ParentID = nil, nil
	u.IsActive, u.IsVerified = true, true
	if hash != "" {
		u.Password = hash
		u.MustChangePassword = false
	}
	u.UpdatedAt = now
	if err := st.Users().Replace(ctx, u); err != nil {
		logger.Error("failed promoting super admin", zap.Error(err))
		return nil, false, errs.ErrDatabase
	}
	logger.Info("super admin promoted")
	return u, false, nil
}
