package jwt

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"eduplatform-backend/entity"
	"eduplatform-backend/log"
)

const issuer = "eduplatform"

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

type RefreshClaims struct {
	UserID string `json:"user_id"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

type AccessClaims struct {
	UserID   string      `json:"user_id"`
	Role     entity.Role `json:"role"`
	SchoolID string      `json:"school_id,omitempty"`
	Kind     string      `json:"kind"`
	jwt.RegisteredClaims
}

type JWT struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWT(key []byte, accessTTL, refreshTTL time.Duration) *JWT {
	return &JWT{key: key, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

func (j *JWT) registered(ttl time.Duration) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		Issuer:    issuer,
	}
}

func (j *JWT) sign(claims jwt.Claims) (string, error) {
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(j.key)
	if err != nil {
		log.Logger.Error("signing failure", zap.Error(err))
		return "", err
	}

	return ss, nil
}

func (j *JWT) NewRefreshToken(user *entity.User) (string, error) {
	return j.sign(&RefreshClaims{
		UserID:           user.ID.Hex(),
		Kind:             kindRefresh,
		RegisteredClaims: j.registered(j.refreshTTL),
	})
}

func (j *JWT) NewAccessToken(user *entity.User) (string, error) {
	c := &AccessClaims{
		UserID:           user.ID.Hex(),
		Role:             user.Role,
		Kind:             kindAccess,
		RegisteredClaims: j.registered(j.accessTTL),
	}
	if user.SchoolID != nil {
		c.SchoolID = user.SchoolID.Hex()
	}

	return j.sign(c)
}

func (j *JWT) parse(token string, claims jwt.Claims) error {
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalid
		}
		return j.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}

		log.Logger.Debug("parse failure", zap.Error(err))
		return ErrInvalid
	}

	return nil
}

func (j *JWT) ValidateRefreshToken(token string) (*RefreshClaims, error) {
	c := &RefreshClaims{}
	if err := j.parse(token, c); err != nil {
		return nil, err
	}
	if c.Kind != kindRefresh {
		return nil, ErrInvalid
	}

	return c, nil
}

func (j *JWT) ValidateAccessToken(token string) (*AccessClaims, error) {
	c := &AccessClaims{}
	if err := j.parse(token, c); err != nil {
		return nil, err
	}
	if c.Kind != kindAccess {
		return nil, ErrInvalid
	}

	return c, nil
}

type ctxKey struct{}

func WithClaims(ctx context.Context, claims *AccessClaims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

func GetClaimsFromCtx(ctx context.Context) (*AccessClaims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*AccessClaims)
	return c, ok && c != nil
}
