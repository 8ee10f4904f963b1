// Package service holds the business rules. Services return only errs
// sentinels; store failures are logged here and surface as ErrDatabase.
package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"eduplatform-backend/blob"
	"eduplatform-backend/cache"
	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/jwt"
	"eduplatform-backend/log"
	"eduplatform-backend/mail"
	"eduplatform-backend/metrics"
	"eduplatform-backend/store"
)

const bcryptCost = 10

type Settings struct {
	TempPasswordTTL  time.Duration
	TempStudentTTL   time.Duration
	PasswordResetTTL time.Duration
	FrontendURL      string
}

type Deps struct {
	Store     store.Store
	Cache     cache.Cache
	Blobs     blob.Store
	Mail      mail.Sender
	Templates *mail.Templates
	JWT       *jwt.JWT
	Settings  Settings
	Now       func() time.Time
}

type Services struct {
	Auth         *AuthService
	Users        *UserService
	Onboarding   *SchoolOnboardingService
	Schools      *SchoolService
	Mentors      *MentorService
	Students     *StudentService
	Transactions *TransactionService
	Categories   *CategoryService
	Contents     *ContentService
	Challenges   *ChallengeService
	Communities  *CommunityService
	Posts        *PostService
}

func New(d *Deps) *Services {
	onboarding := &SchoolOnboardingService{d}
	return &Services{
		Auth:         &AuthService{d},
		Users:        &UserService{d},
		Onboarding:   onboarding,
		Schools:      &SchoolService{d},
		Mentors:      &MentorService{d},
		Students:     &StudentService{d},
		Transactions: &TransactionService{Deps: d, onboarding: onboarding},
		Categories:   &CategoryService{d},
		Contents:     &ContentService{d},
		Challenges:   &ChallengeService{d},
		Communities:  &CommunityService{d},
		Posts:        &PostService{d},
	}
}

// Actor is the authenticated caller, taken from the access token.
type Actor struct {
	ID       primitive.ObjectID
	Role     entity.Role
	SchoolID *primitive.ObjectID
}

func ActorFromClaims(c *jwt.AccessClaims) (*Actor, error) {
	id, err := primitive.ObjectIDFromHex(c.UserID)
	if err != nil {
		return nil, errs.ErrJWT
	}
	a := &Actor{ID: id, Role: c.Role}
	if c.SchoolID != "" {
		sid, err := primitive.ObjectIDFromHex(c.SchoolID)
		if err != nil {
			return nil, errs.ErrJWT
		}
		a.SchoolID = &sid
	}
	return a, nil
}

func (a *Actor) Is(roles ...entity.Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

func (a *Actor) SuperAdmin() bool {
	return a.Role == entity.RoleSuperAdmin
}

// AdminOf reports whether the actor administers the given school.
func (a *Actor) AdminOf(schoolID primitive.ObjectID) bool {
	return a.Role == entity.RoleSchoolAdmin && a.SchoolID != nil && *a.SchoolID == schoolID
}

type Page struct {
	Skip  int64
	Limit int64
}

func (p Page) store() store.Page {
	return store.Page{Skip: p.Skip, Limit: p.Limit}.Normalize()
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now().UTC()
	}
	return time.Now().UTC()
}

// dbErr maps store errors: ErrNotFound becomes notFound, coded errors pass
// through and anything else is logged and reported as ErrDatabase.
func dbErr(err error, notFound error, msg string, fields ...zap.Field) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound) && notFound != nil:
		return notFound
	case errs.Known(err):
		return err
	}

	log.Logger.Error(msg, append(fields, zap.Error(err))...)
	return errs.ErrDatabase
}

func parseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errs.ErrInvalidID
	}
	return id, nil
}

func parseOptionalID(hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := parseID(hex)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func parseIDs(hexes []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexes))
	for _, h := range hexes {
		id, err := parseID(h)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		log.Logger.Error("failed to generate bcrypt hash", zap.Error(err))
		return "", errs.ErrCryptographic
	}
	return string(hash), nil
}

const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

func randomPassword() (string, error) {
	var b strings.Builder
	size := big.NewInt(int64(len(passwordAlphabet)))
	for i := 0; i < 12; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			log.Logger.Error("random source failure", zap.Error(err))
			return "", errs.ErrCryptographic
		}
		b.WriteByte(passwordAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// newTemporaryPassword returns a fresh password and its bcrypt hash.
func newTemporaryPassword() (string, string, error) {
	pw, err := randomPassword()
	if err != nil {
		return "", "", err
	}
	hash, err := hashPassword(pw)
	if err != nil {
		return "", "", err
	}
	return pw, hash, nil
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Logger.Error("random source failure", zap.Error(err))
		return "", errs.ErrCryptographic
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// notify renders and sends one email.
func (d *Deps) notify(ctx context.Context, template, to, subject string, data interface{}) error {
	msg, err := d.Templates.Render(template, to, subject, data)
	if err != nil {
		metrics.RecordEmail(template, err)
		log.Logger.Error("failed to render email", zap.String("template", template), zap.Error(err))
		return errs.ErrMail
	}

	err = d.Mail.Send(ctx, msg)
	metrics.RecordEmail(template, err)
	if err != nil {
		log.Logger.Error("failed to send email", zap.String("template", template), zap.String("to", to), zap.Error(err))
		return errs.ErrMail
	}
	return nil
}

// upload validates f and stores it under prefix, returning key and URL.
func (d *Deps) upload(ctx context.Context, prefix string, f *blob.File, allowed []string) (string, string, error) {
	ct, err := blob.Validate(f, allowed)
	if err != nil {
		return "", "", err
	}

	key := blob.NewKey(prefix, f.Name)
	url, err := d.Blobs.Put(ctx, key, bytes.NewReader(f.Data), ct)
	if err != nil {
		log.Logger.Error("blob upload failed", zap.String("key", key), zap.Error(err))
		return "", "", errs.ErrStorage
	}
	return key, url, nil
}

func (d *Deps) removeBlob(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := d.Blobs.Delete(ctx, key); err != nil {
		log.Logger.Warn("blob delete failed", zap.String("key", key), zap.Error(err))
	}
}

func (d *Deps) getUser(ctx context.Context, id primitive.ObjectID) (*entity.User, error) {
	u, err := d.Store.Users().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load user", zap.String("userID", id.Hex()))
	}
	return u, nil
}

func laterOf(a time.Time, b *time.Time) time.Time {
	if b != nil && b.After(a) {
		return *b
	}
	return a
}
