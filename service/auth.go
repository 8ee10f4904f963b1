package service

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/jwt"
	"eduplatform-backend/log"
	"eduplatform-backend/mail"
	"eduplatform-backend/metrics"
	"eduplatform-backend/store"
)

type AuthService struct {
	*Deps
}

type RegisterInput struct {
	Email     string      `json:"email" validate:"required,email,max=254"`
	Password  string      `json:"password" validate:"required,min=8,max=72"`
	FirstName string      `json:"first_name" validate:"required,max=100"`
	LastName  string      `json:"last_name" validate:"required,max=100"`
	Phone     string      `json:"phone" validate:"omitempty,max=30"`
	Role      entity.Role `json:"role" validate:"required,oneof=parent mentor"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ResetPasswordInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type Tokens struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         *entity.User `json:"user,omitempty"`
}

func (s *AuthService) issue(u *entity.User) (*Tokens, error) {
	var (
		res = &Tokens{User: u}
		err error
	)

	res.RefreshToken, err = s.JWT.NewRefreshToken(u)
	if err != nil {
		log.Logger.Error("jwt failure", zap.Error(err))
		return nil, errs.ErrJWT
	}

	res.AccessToken, err = s.JWT.NewAccessToken(u)
	if err != nil {
		log.Logger.Error("jwt failure", zap.Error(err))
		return nil, errs.ErrJWT
	}

	return res, nil
}

// Register is self sign-up; only parents and mentors may create themselves.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*Tokens, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	u := &entity.User{
		ID:        primitive.NewObjectID(),
		Email:     in.Email,
		Password:  hash,
		Role:      in.Role,
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Phone:     in.Phone,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.Store.Users().Create(ctx, u)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Logger.Debug("already has account", zap.String("email", in.Email))
			return nil, errs.ErrAlreadyExists
		}

		return nil, dbErr(err, nil, "failed inserting new user")
	}
	metrics.RecordOnboarding(string(in.Role))

	return s.issue(u)
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*Tokens, error) {
	if in.Email == "" {
		return nil, errs.ErrEmailRequired
	}

	if in.Password == "" {
		return nil, errs.ErrPasswordRequired
	}

	email := normalizeEmail(in.Email)
	u, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		return nil, dbErr(err, errs.ErrInvalidEmailOrPassword, "database error", zap.String("email", email))
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			log.Logger.Debug("invalid password", zap.String("userID", u.ID.Hex()))
			return nil, errs.ErrInvalidEmailOrPassword
		}

		return nil, errs.ErrCryptographic
	}

	if !u.IsActive {
		return nil, errs.ErrAccountDisabled
	}

	now := s.now()
	u.LastLoginAt = &now
	if err := s.Store.Users().Replace(ctx, u); err != nil {
		log.Logger.Warn("failed to stamp last login", zap.String("userID", u.ID.Hex()), zap.Error(err))
	}

	return s.issue(u)
}

// CheckActive rejects callers whose account was removed or deactivated after
// their access token was issued.
func (s *AuthService) CheckActive(ctx context.Context, actor *Actor) error {
	u, err := s.Store.Users().Get(ctx, actor.ID)
	if err != nil {
		return dbErr(err, errs.ErrUnauthorized, "failed to load user", zap.String("userID", actor.ID.Hex()))
	}
	if !u.IsActive {
		return errs.ErrAccountDisabled
	}
	return nil
}

func (s *AuthService) Refresh(ctx context.Context, token string) (*Tokens, error) {
	claims, err := s.JWT.ValidateRefreshToken(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			return nil, errs.ErrTokenExpired
		}

		return nil, errs.ErrJWT
	}

	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		log.Logger.Error("failed mongo id", zap.Error(err))
		return nil, errs.ErrJWT
	}

	u, err := s.Store.Users().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrJWT, "database error", zap.String("userID", claims.UserID))
	}
	if !u.IsActive {
		return nil, errs.ErrAccountDisabled
	}

	access, err := s.JWT.NewAccessToken(u)
	if err != nil {
		log.Logger.Error("jwt failure", zap.Error(err))
		return nil, errs.ErrJWT
	}

	return &Tokens{AccessToken: access}, nil
}

// ForgotPassword never reveals whether the address has an account.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return errs.ErrEmailRequired
	}

	u, err := s.Store.Users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Logger.Debug("password reset for unknown email", zap.String("email", email))
			return nil
		}
		return dbErr(err, nil, "database error", zap.String("email", email))
	}

	token, err := randomToken()
	if err != nil {
		return err
	}

	if err := s.Store.PasswordResets().DeleteByUser(ctx, u.ID); err != nil {
		return dbErr(err, nil, "failed to clear password resets", zap.String("userID", u.ID.Hex()))
	}
	err = s.Store.PasswordResets().Create(ctx, &entity.PasswordReset{
		ID:     primitive.NewObjectID(),
		UserID: u.ID,
		Token:  hashToken(token),
		TTL:    s.now().Add(s.Settings.PasswordResetTTL),
	})
	if err != nil {
		return dbErr(err, nil, "failed to store password reset", zap.String("userID", u.ID.Hex()))
	}

	link := strings.TrimRight(s.Settings.FrontendURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	if err := s.notify(ctx, mail.TemplatePasswordReset, u.Email, "Reset your password", mail.PasswordResetData{
		Name:      u.FullName(),
		Link:      link,
		ExpiresIn: s.Settings.PasswordResetTTL,
	}); err != nil {
		log.Logger.Warn("password reset email not sent", zap.String("userID", u.ID.Hex()))
	}

	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}

	pr, err := s.Store.PasswordResets().GetByToken(ctx, hashToken(in.Token))
	if err != nil {
		return dbErr(err, errs.ErrInvalidResetToken, "database error")
	}
	if !s.now().Before(pr.TTL) {
		return errs.ErrInvalidResetToken
	}

	u, err := s.Store.Users().Get(ctx, pr.UserID)
	if err != nil {
		return dbErr(err, errs.ErrInvalidResetToken, "database error", zap.String("userID", pr.UserID.Hex()))
	}

	if err := s.setPassword(ctx, u, in.Password); err != nil {
		return err
	}

	if err := s.Store.PasswordResets().DeleteByUser(ctx, u.ID); err != nil {
		return dbErr(err, nil, "failed to clear password resets", zap.String("userID", u.ID.Hex()))
	}
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, actor *Actor, in ChangePasswordInput) error {
	if err := validateStruct(in); err != nil {
		return err
	}

	u, err := s.getUser(ctx, actor.ID)
	if err != nil {
		return err
	}

	err = bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.CurrentPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errs.ErrWrongPassword
		}
		return errs.ErrCryptographic
	}

	return s.setPassword(ctx, u, in.NewPassword)
}

func (s *AuthService) setPassword(ctx context.Context, u *entity.User, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}

	u.Password = hash
	u.MustChangePassword = false
	u.UpdatedAt = s.now()
	if err := s.Store.Users().Replace(ctx, u); err != nil {
		return dbErr(err, errs.ErrNotFound, "failed to update password", zap.String("userID", u.ID.Hex()))
	}
	return nil
}
