package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/service"
)

var _ = Describe("Handler", func() {
	var s *server

	BeforeEach(func() {
		s = newServer(100)
	})

	AfterEach(func() {
		s.close()
	})

	Describe("health", func() {
		Specify("ok", func() {
			rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"ok"`))
			Expect(rec.Header().Get("X-Request-ID")).NotTo(BeEmpty())
		})

		Specify("store unavailable", func() {
			s.pingErr = errPing
			rec := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
			Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		})

		Specify("request id is echoed", func() {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set("X-Request-ID", "abc-123")
			rec := s.do(req, "")
			Expect(rec.Header().Get("X-Request-ID")).To(Equal("abc-123"))
		})

		Specify("metrics are exposed", func() {
			s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "")
			rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil), "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`route="/healthz"`))
		})
	})

	Describe("auth", func() {
		Specify("register, login and me", func() {
			rec := s.json(http.MethodPost, "/api/v1/auth/register", "", service.RegisterInput{
				Email:     "Parent@Example.com",
				Password:  "password123",
				FirstName: "Pat",
				LastName:  "Parent",
				Role:      entity.RoleParent,
			})
			Expect(rec.Code).To(Equal(http.StatusCreated))

			rec = s.json(http.MethodPost, "/api/v1/auth/login", "", service.LoginInput{
				Email:    "parent@example.com",
				Password: "password123",
			})
			Expect(rec.Code).To(Equal(http.StatusOK))
			var tokens service.Tokens
			decodeBody(rec, &tokens)
			Expect(tokens.AccessToken).NotTo(BeEmpty())
			Expect(tokens.RefreshToken).NotTo(BeEmpty())

			rec = s.json(http.MethodGet, "/api/v1/users/me", tokens.AccessToken, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			var me entity.User
			decodeBody(rec, &me)
			Expect(me.Email).To(Equal("parent@example.com"))
			Expect(me.Role).To(Equal(entity.RoleParent))

			rec = s.json(http.MethodPost, "/api/v1/auth/refresh", "", map[string]string{"refresh_token": tokens.RefreshToken})
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		Specify("sad path - validation errors name the fields", func() {
			rec := s.json(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
				"email":      "not-an-email",
				"password":   "short",
				"first_name": "Pat",
				"last_name":  "Parent",
				"role":       "parent",
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			body := decodeError(rec)
			Expect(body.Error).To(Equal(errs.ErrValidation.Error()))
			Expect(body.Fields).To(HaveKey("email"))
			Expect(body.Fields).To(HaveKey("password"))
		})

		Specify("sad path - unknown fields", func() {
			rec := s.json(http.MethodPost, "/api/v1/auth/login", "", map[string]string{
				"email":    "a@b.test",
				"password": "password123",
				"admin":    "true",
			})
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrBadRequest.Error()))
		})

		Specify("sad path - wrong password", func() {
			s.seedUser(entity.RoleParent, "parent@example.com")
			rec := s.json(http.MethodPost, "/api/v1/auth/login", "", service.LoginInput{
				Email:    "parent@example.com",
				Password: "password124",
			})
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrInvalidEmailOrPassword.Error()))
		})

		Specify("sad path - missing token", func() {
			rec := s.json(http.MethodGet, "/api/v1/users/me", "", nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrUnauthorized.Error()))
		})

		Specify("sad path - garbage token", func() {
			rec := s.json(http.MethodGet, "/api/v1/users/me", "not.a.jwt", nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrJWT.Error()))
		})

		Specify("sad path - token of a deactivated account", func() {
			sa := s.seedUser(entity.RoleSuperAdmin, "root@example.com")
			parent := s.seedUser(entity.RoleParent, "parent@example.com")
			token := s.token(parent)

			rec := s.json(http.MethodGet, "/api/v1/users/me", token, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = s.json(http.MethodPatch, "/api/v1/users/"+parent.ID.Hex()+"/status", s.token(sa), map[string]bool{"active": false})
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = s.json(http.MethodGet, "/api/v1/users/me", token, nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrAccountDisabled.Error()))
		})

		Specify("sad path - token of an unknown account", func() {
			ghost := &entity.User{ID: primitive.NewObjectID(), Email: "ghost@example.com", Role: entity.RoleParent, IsActive: true}
			rec := s.json(http.MethodGet, "/api/v1/users/me", s.token(ghost), nil)
			Expect(rec.Code).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrUnauthorized.Error()))
		})

		Specify("forgot password always accepts", func() {
			rec := s.json(http.MethodPost, "/api/v1/auth/forgot-password", "", map[string]string{"email": "nobody@example.com"})
			Expect(rec.Code).To(Equal(http.StatusAccepted))
		})
	})

	Describe("roles", func() {
		Specify("sad path - parent listing schools", func() {
			parent := s.seedUser(entity.RoleParent, "parent@example.com")
			rec := s.json(http.MethodGet, "/api/v1/schools", s.token(parent), nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrForbidden.Error()))
		})

		Specify("super admin listing schools", func() {
			sa := s.seedUser(entity.RoleSuperAdmin, "root@example.com")
			rec := s.json(http.MethodGet, "/api/v1/schools", s.token(sa), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		Specify("sad path - student creating a challenge", func() {
			student := s.seedUser(entity.RoleStudent, "student@example.com")
			rec := s.json(http.MethodPost, "/api/v1/challenges", s.token(student), map[string]string{"title": "x"})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
		})

		Specify("sad path - unverified mentor publishing", func() {
			mentor := s.seedUser(entity.RoleMentor, "mentor@example.com")
			rec := s.json(http.MethodPost, "/api/v1/contents", s.token(mentor), map[string]interface{}{
				"title": "Fractions",
				"type":  "article",
			})
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrMentorNotVerified.Error()))
		})
	})

	Describe("requests", func() {
		var token string

		BeforeEach(func() {
			token = s.token(s.seedUser(entity.RoleParent, "parent@example.com"))
		})

		Specify("sad path - unknown route", func() {
			rec := s.json(http.MethodGet, "/api/v1/nothing-here", token, nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		Specify("sad path - malformed id", func() {
			rec := s.json(http.MethodGet, "/api/v1/users/"+strings.Repeat("z", 24), token, nil)
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		Specify("sad path - negative page", func() {
			rec := s.json(http.MethodGet, "/api/v1/communities?skip=-1", token, nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrInvalidPage.Error()))
		})

		Specify("sad path - bad leaderboard limit", func() {
			rec := s.json(http.MethodGet, "/api/v1/leaderboard?limit=many", token, nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		Specify("sad path - bad boolean filter", func() {
			rec := s.json(http.MethodGet, "/api/v1/challenges?open=perhaps", token, nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec).Fields).To(HaveKey("open"))
		})
	})

	Describe("uploads", func() {
		Specify("avatar is stored and served", func() {
			parent := s.seedUser(entity.RoleParent, "parent@example.com")
			rec := s.multipart(http.MethodPost, "/api/v1/users/me/avatar", s.token(parent), nil, "me.png", pngData)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var u entity.User
			decodeBody(rec, &u)
			Expect(u.AvatarURL).To(HavePrefix("http://api.test/files/"))

			rec = s.do(httptest.NewRequest(http.MethodGet, strings.TrimPrefix(u.AvatarURL, "http://api.test"), nil), "")
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.Bytes()).To(Equal(pngData))
		})

		Specify("sad path - avatar without file", func() {
			parent := s.seedUser(entity.RoleParent, "parent@example.com")
			rec := s.multipart(http.MethodPost, "/api/v1/users/me/avatar", s.token(parent), map[string]string{"x": "y"}, "", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(decodeError(rec).Fields).To(HaveKey("file"))
		})

		Specify("sad path - avatar that is not an image", func() {
			parent := s.seedUser(entity.RoleParent, "parent@example.com")
			rec := s.multipart(http.MethodPost, "/api/v1/users/me/avatar", s.token(parent), nil, "me.png", []byte("plain text, not a picture"))
			Expect(rec.Code).To(Equal(http.StatusUnsupportedMediaType))
		})

		Specify("sad path - directory listing", func() {
			rec := s.do(httptest.NewRequest(http.MethodGet, "/files/avatars/", nil), "")
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		Specify("post with metadata and media", func() {
			parent := s.seedUser(entity.RoleParent, "parent@example.com")
			token := s.token(parent)

			rec := s.multipart(http.MethodPost, "/api/v1/posts", token, map[string]string{
				"metadata": `{"body":"Look at this"}`,
			}, "pic.png", pngData)
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var post entity.Post
			decodeBody(rec, &post)
			Expect(post.Body).To(Equal("Look at this"))
			Expect(post.MediaURL).To(HavePrefix("http://api.test/files/posts/"))

			rec = s.json(http.MethodPost, "/api/v1/posts/"+post.ID.Hex()+"/like", token, nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			decodeBody(rec, &post)
			Expect(post.Likes).To(Equal([]primitive.ObjectID{parent.ID}))

			rec = s.json(http.MethodDelete, "/api/v1/posts/"+post.ID.Hex(), token, nil)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})
	})

	Describe("communities", func() {
		Specify("create, join and leave", func() {
			owner := s.seedUser(entity.RoleMentor, "mentor@example.com")
			member := s.seedUser(entity.RoleParent, "parent@example.com")

			rec := s.json(http.MethodPost, "/api/v1/communities", s.token(owner), service.CommunityInput{Name: "Maths club"})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			var c entity.Community
			decodeBody(rec, &c)

			rec = s.json(http.MethodPost, "/api/v1/communities", s.token(member), service.CommunityInput{Name: "Maths club"})
			Expect(rec.Code).To(Equal(http.StatusConflict))

			rec = s.json(http.MethodPost, "/api/v1/communities/"+c.ID.Hex()+"/join", s.token(member), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			decodeBody(rec, &c)
			Expect(c.Members).To(ConsistOf(owner.ID, member.ID))

			rec = s.json(http.MethodPost, "/api/v1/communities/"+c.ID.Hex()+"/leave", s.token(owner), nil)
			Expect(rec.Code).To(Equal(http.StatusConflict))
			Expect(decodeError(rec).Error).To(Equal(errs.ErrOwnerCantLeave.Error()))

			rec = s.json(http.MethodPost, "/api/v1/communities/"+c.ID.Hex()+"/leave", s.token(member), nil)
			Expect(rec.Code).To(Equal(http.StatusNoContent))
		})

		Specify("private communities are invite only", func() {
			owner := s.seedUser(entity.RoleMentor, "mentor@example.com")
			member := s.seedUser(entity.RoleParent, "parent@example.com")

			rec := s.json(http.MethodPost, "/api/v1/communities", s.token(owner), service.CommunityInput{Name: "Staff room", IsPrivate: true})
			Expect(rec.Code).To(Equal(http.StatusCreated))
			var c entity.Community
			decodeBody(rec, &c)

			rec = s.json(http.MethodPost, "/api/v1/communities/"+c.ID.Hex()+"/join", s.token(member), nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))
			rec = s.json(http.MethodGet, "/api/v1/posts?community_id="+c.ID.Hex(), s.token(member), nil)
			Expect(rec.Code).To(Equal(http.StatusForbidden))

			rec = s.json(http.MethodPost, "/api/v1/communities/"+c.ID.Hex()+"/members", s.token(owner), service.AddMemberInput{UserID: member.ID.Hex()})
			Expect(rec.Code).To(Equal(http.StatusOK))
			decodeBody(rec, &c)
			Expect(c.Members).To(ConsistOf(owner.ID, member.ID))

			rec = s.json(http.MethodGet, "/api/v1/posts?community_id="+c.ID.Hex(), s.token(member), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})

	Describe("schools", func() {
		Specify("public onboarding", func() {
			rec := s.json(http.MethodPost, "/api/v1/schools/register", "", service.OnboardSchoolInput{
				Name:           "Northside",
				Email:          "office@northside.test",
				AdminEmail:     "admin@northside.test",
				AdminFirstName: "Ada",
				AdminLastName:  "Admin",
			})
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var res service.OnboardSchoolResult
			decodeBody(rec, &res)
			Expect(res.School.PaymentStatus).To(Equal(entity.PaymentPending))
			Expect(res.Admin.Role).To(Equal(entity.RoleSchoolAdmin))

			rec = s.json(http.MethodGet, "/api/v1/schools/"+res.School.ID.Hex(), s.token(res.Admin), nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
		})
	})
})

var _ = Describe("Rate limiting", func() {
	var s *server

	BeforeEach(func() {
		s = newServer(2)
	})

	AfterEach(func() {
		s.close()
	})

	Specify("public routes are throttled per client", func() {
		body := service.LoginInput{Email: "nobody@example.com", Password: "password123"}
		Expect(s.json(http.MethodPost, "/api/v1/auth/login", "", body).Code).To(Equal(http.StatusUnauthorized))
		Expect(s.json(http.MethodPost, "/api/v1/auth/login", "", body).Code).To(Equal(http.StatusUnauthorized))

		rec := s.json(http.MethodPost, "/api/v1/auth/login", "", body)
		Expect(rec.Code).To(Equal(http.StatusTooManyRequests))
		Expect(rec.Header().Get("Retry-After")).NotTo(BeEmpty())
		Expect(decodeError(rec).Error).To(Equal(errs.ErrRateLimited.Error()))

		Expect(s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil), "").Code).To(Equal(http.StatusOK))
	})
})
