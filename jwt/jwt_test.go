package jwt_test

import (
	"context"
	"time"

	gojwt "github.com/golang-jwt/jwt/v4"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduplatform-backend/entity"
	"eduplatform-backend/jwt"
)

var key = []byte("test-key")

var _ = Describe("JWT", func() {
	var (
		j    *jwt.JWT
		user *entity.User
	)

	BeforeEach(func() {
		j = jwt.NewJWT(key, time.Hour, 24*time.Hour)
		school := primitive.NewObjectID()
		user = &entity.User{
			ID:       primitive.NewObjectID(),
			Email:    "admin@test.test",
			Role:     entity.RoleSchoolAdmin,
			SchoolID: &school,
		}
	})

	Describe("access tokens", func() {
		Specify("happy path", func() {
			token, err := j.NewAccessToken(user)
			Expect(err).To(BeNil())

			c, err := j.ValidateAccessToken(token)
			Expect(err).To(BeNil())
			Expect(c.UserID).To(Equal(user.ID.Hex()))
			Expect(c.Role).To(Equal(entity.RoleSchoolAdmin))
			Expect(c.SchoolID).To(Equal(user.SchoolID.Hex()))
			Expect(c.ExpiresAt.Time).To(BeTemporally(">", time.Now()))
		})

		Specify("sad path - refresh token used as access token", func() {
			token, err := j.NewRefreshToken(user)
			Expect(err).To(BeNil())

			_, err = j.ValidateAccessToken(token)
			Expect(err).To(Equal(jwt.ErrInvalid))
		})

		Specify("sad path - expired", func() {
			expired := jwt.NewJWT(key, -time.Minute, time.Hour)
			token, err := expired.NewAccessToken(user)
			Expect(err).To(BeNil())

			_, err = j.ValidateAccessToken(token)
			Expect(err).To(Equal(jwt.ErrExpired))
		})

		Specify("sad path - signed with another key", func() {
			other := jwt.NewJWT([]byte("other-key"), time.Hour, time.Hour)
			token, err := other.NewAccessToken(user)
			Expect(err).To(BeNil())

			_, err = j.ValidateAccessToken(token)
			Expect(err).To(Equal(jwt.ErrInvalid))
		})

		Specify("sad path - unsigned token", func() {
			token, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, &jwt.AccessClaims{
				UserID: user.ID.Hex(),
				Role:   entity.RoleSuperAdmin,
				Kind:   "access",
			}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
			Expect(err).To(BeNil())

			_, err = j.ValidateAccessToken(token)
			Expect(err).To(Equal(jwt.ErrInvalid))
		})
	})

	Describe("refresh tokens", func() {
		Specify("happy path", func() {
			token, err := j.NewRefreshToken(user)
			Expect(err).To(BeNil())

			c, err := j.ValidateRefreshToken(token)
			Expect(err).To(BeNil())
			Expect(c.UserID).To(Equal(user.ID.Hex()))
		})

		Specify("sad path - access token used as refresh token", func() {
			token, err := j.NewAccessToken(user)
			Expect(err).To(BeNil())

			_, err = j.ValidateRefreshToken(token)
			Expect(err).To(Equal(jwt.ErrInvalid))
		})
	})

	Describe("context", func() {
		Specify("claims round trip", func() {
			_, ok := jwt.GetClaimsFromCtx(context.Background())
			Expect(ok).To(BeFalse())

			c := &jwt.AccessClaims{UserID: "abc"}
			got, ok := jwt.GetClaimsFromCtx(jwt.WithClaims(context.Background(), c))
			Expect(ok).To(BeTrue())
			Expect(got).To(BeIdenticalTo(c))
		})
	})
})
