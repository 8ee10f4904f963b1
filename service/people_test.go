package service_test

import (
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"eduplatform-backend/blob"
	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/service"
)

var _ = Describe("Parents", func() {
	var (
		e      *env
		parent *entity.User
		staged *entity.TempStudent
	)

	BeforeEach(func() {
		e = newEnv()
		parent = e.seedUser(entity.RoleParent, "parent@example.test")

		var err error
		staged, err = e.services.Students.StageStudent(e.ctx, actorOf(parent), service.StageStudentInput{
			Email: "kid@example.test", FirstName: "Kim", LastName: "Kid", Grade: 4,
		})
		Expect(err).To(BeNil())
	})
	AfterEach(func() {
		e.close()
	})

	register := func(ref string) (*entity.Transaction, error) {
		return e.services.Transactions.Create(e.ctx, actorOf(parent), service.CreateTransactionInput{
			Type: "registration", Amount: 2500, Currency: "EUR", PaymentMethod: "mobile_money",
			Reference: ref, TempStudentID: staged.ID.Hex(), Months: 1,
		})
	}

	Specify("staged students are listed until they expire", func() {
		pending, err := e.services.Students.ListPendingStudents(e.ctx, actorOf(parent))
		Expect(err).To(BeNil())
		Expect(pending).To(HaveLen(1))

		e.advance(49 * time.Hour)
		pending, err = e.services.Students.ListPendingStudents(e.ctx, actorOf(parent))
		Expect(err).To(BeNil())
		Expect(pending).To(BeEmpty())
	})

	Specify("registration payment creates the student", func() {
		tx, err := register("P-1")
		Expect(err).To(BeNil())
		Expect(tx.StudentID).NotTo(BeNil())

		kid, err := e.store.Users().Get(e.ctx, *tx.StudentID)
		Expect(err).To(BeNil())
		Expect(kid.Role).To(Equal(entity.RoleStudent))
		Expect(*kid.ParentID).To(Equal(parent.ID))
		Expect(*kid.SubscriptionExpiresAt).To(Equal(e.clock.AddDate(0, 1, 0)))

		_, err = e.store.TempStudents().Get(e.ctx, staged.ID)
		Expect(err).NotTo(BeNil())

		password := mailedPassword(e, "parent@example.test")
		_, err = e.services.Auth.Login(e.ctx, service.LoginInput{Email: "kid@example.test", Password: password})
		Expect(err).To(BeNil())

		children, err := e.services.Students.ListChildren(e.ctx, actorOf(parent), service.Page{})
		Expect(err).To(BeNil())
		Expect(children).To(HaveLen(1))
	})

	Specify("subscription renews an own child", func() {
		tx, err := register("P-1")
		Expect(err).To(BeNil())

		_, err = e.services.Transactions.Create(e.ctx, actorOf(parent), service.CreateTransactionInput{
			Type: "subscription", Amount: 2500, Currency: "EUR", PaymentMethod: "card",
			Reference: "P-2", StudentID: tx.StudentID.Hex(), Months: 2,
		})
		Expect(err).To(BeNil())

		kid, err := e.store.Users().Get(e.ctx, *tx.StudentID)
		Expect(err).To(BeNil())
		Expect(*kid.SubscriptionExpiresAt).To(Equal(e.clock.AddDate(0, 1, 0).AddDate(0, 2, 0)))

		other := e.seedUser(entity.RoleParent, "other@example.test")
		_, err = e.services.Transactions.Create(e.ctx, actorOf(other), service.CreateTransactionInput{
			Type: "subscription", Amount: 2500, Currency: "EUR", PaymentMethod: "card",
			Reference: "P-3", StudentID: tx.StudentID.Hex(), Months: 2,
		})
		Expect(err).To(MatchBackendError(errs.ErrNotStudent))
	})

	Specify("sad path - expired staging", func() {
		e.advance(49 * time.Hour)
		_, err := register("P-1")
		Expect(err).To(MatchBackendError(errs.ErrStagingExpired))
	})

	Specify("sad path - tier is not for parents", func() {
		_, err := e.services.Transactions.Create(e.ctx, actorOf(parent), service.CreateTransactionInput{
			Type: "tier", Amount: 100, Currency: "EUR", PaymentMethod: "card", Reference: "P-9", Months: 1,
		})
		Expect(err).To(MatchBackendError(errs.ErrInvalidTarget))
	})

	Specify("sad path - someone else's staging", func() {
		other := e.seedUser(entity.RoleParent, "other@example.test")
		_, err := e.services.Transactions.Create(e.ctx, actorOf(other), service.CreateTransactionInput{
			Type: "registration", Amount: 2500, Currency: "EUR", PaymentMethod: "card",
			Reference: "P-1", TempStudentID: staged.ID.Hex(), Months: 1,
		})
		Expect(err).To(MatchBackendError(errs.ErrNotFound))
	})

	Specify("cancel removes the staging", func() {
		Expect(e.services.Students.CancelPendingStudent(e.ctx, actorOf(parent), staged.ID)).To(Succeed())
		_, err := register("P-1")
		Expect(err).To(MatchBackendError(errs.ErrNotFound))
	})
})

var _ = Describe("Mentors", func() {
	var (
		e      *env
		root   *entity.User
		mentor *entity.User
	)

	BeforeEach(func() {
		e = newEnv()
		root = e.seedUser(entity.RoleSuperAdmin, "root@platform.test")

		res, err := e.services.Mentors.OnboardMentor(e.ctx, actorOf(root), service.OnboardMentorInput{
			Email: "mo@mentors.test", FirstName: "Mo", LastName: "Mentor", Expertise: []string{"math"},
		})
		Expect(err).To(BeNil())
		Expect(res.CredentialsSent).To(BeTrue())
		mentor = res.User
	})
	AfterEach(func() {
		e.close()
	})

	upload := func() *entity.MentorCredential {
		c, err := e.services.Mentors.UploadCredential(e.ctx, actorOf(mentor), "Teaching licence", &blob.File{
			Name: "licence.pdf", Data: []byte("%PDF-1.4\n%test document\n"),
		})
		Expect(err).To(BeNil())
		return c
	}

	Specify("approval verifies the mentor", func() {
		c := upload()
		Expect(c.Status).To(Equal(entity.CredentialPending))
		Expect(c.DocumentURL).To(HavePrefix("http://api.test/files/credentials/"))

		reviewed, err := e.services.Mentors.ReviewCredential(e.ctx, actorOf(root), c.ID, service.ReviewCredentialInput{Status: "approved"})
		Expect(err).To(BeNil())
		Expect(reviewed.Status).To(Equal(entity.CredentialApproved))

		u, err := e.store.Users().Get(e.ctx, mentor.ID)
		Expect(err).To(BeNil())
		Expect(u.IsVerified).To(BeTrue())
		Expect(u.UpdatedAt.Equal(e.clock)).To(BeTrue())
		Expect(u.FirstName).To(Equal("Mo"))
		Expect(lastMail(e, "mo@mentors.test").Text).To(ContainSubstring("Teaching licence"))

		_, err = e.services.Mentors.ReviewCredential(e.ctx, actorOf(root), c.ID, service.ReviewCredentialInput{Status: "rejected", Reason: "late"})
		Expect(err).To(MatchBackendError(errs.ErrAlreadyReviewed))
	})

	Specify("sad path - rejection needs a reason", func() {
		c := upload()
		_, err := e.services.Mentors.ReviewCredential(e.ctx, actorOf(root), c.ID, service.ReviewCredentialInput{Status: "rejected"})
		Expect(err).To(MatchBackendError(errs.ErrReasonRequired))
	})

	Specify("sad path - unsupported document", func() {
		_, err := e.services.Mentors.UploadCredential(e.ctx, actorOf(mentor), "Notes", &blob.File{
			Name: "notes.txt", Data: []byte("just some text"),
		})
		Expect(err).To(MatchBackendError(errs.ErrUnsupportedFile))
	})

	Specify("only super admins review", func() {
		c := upload()
		_, err := e.services.Mentors.ReviewCredential(e.ctx, actorOf(mentor), c.ID, service.ReviewCredentialInput{Status: "approved"})
		Expect(err).To(MatchBackendError(errs.ErrForbidden))
	})

	Specify("list filters by verification", func() {
		verified := true
		ms, err := e.services.Mentors.List(e.ctx, service.MentorQuery{Verified: &verified})
		Expect(err).To(BeNil())
		Expect(ms).To(BeEmpty())

		ms, err = e.services.Mentors.List(e.ctx, service.MentorQuery{Search: "mo"})
		Expect(err).To(BeNil())
		Expect(ms).To(HaveLen(1))
	})
})

var _ = Describe("Users", func() {
	var (
		e    *env
		root *entity.User
		pat  *entity.User
	)

	BeforeEach(func() {
		e = newEnv()
		root = e.seedUser(entity.RoleSuperAdmin, "root@platform.test")
		pat = e.seedUser(entity.RoleParent, "pat@example.test")
	})
	AfterEach(func() {
		e.close()
	})

	Specify("profile update", func() {
		bio := "hello"
		u, err := e.services.Users.UpdateProfile(e.ctx, actorOf(pat), service.UpdateProfileInput{Bio: &bio})
		Expect(err).To(BeNil())
		Expect(u.Bio).To(Equal("hello"))

		grade := uint32(3)
		_, err = e.services.Users.UpdateProfile(e.ctx, actorOf(pat), service.UpdateProfileInput{Grade: &grade})
		Expect(err).To(MatchBackendError(errs.ErrValidation))
	})

	Specify("avatar upload replaces the url", func() {
		u, err := e.services.Users.UploadAvatar(e.ctx, actorOf(pat), &blob.File{Name: "me.png", Data: pngData})
		Expect(err).To(BeNil())
		Expect(u.AvatarURL).To(HaveSuffix(".png"))
	})

	Specify("parents can't see strangers", func() {
		other := e.seedUser(entity.RoleParent, "other@example.test")
		_, err := e.services.Users.Get(e.ctx, actorOf(pat), other.ID)
		Expect(err).To(MatchBackendError(errs.ErrForbidden))

		_, err = e.services.Users.Get(e.ctx, actorOf(root), other.ID)
		Expect(err).To(BeNil())
	})

	Specify("deactivation blocks login", func() {
		_, err := e.services.Users.SetActive(e.ctx, actorOf(root), pat.ID, false)
		Expect(err).To(BeNil())

		_, err = e.services.Auth.Login(e.ctx, service.LoginInput{Email: "pat@example.test", Password: "password123"})
		Expect(err).To(MatchBackendError(errs.ErrAccountDisabled))
	})

	Specify("super admin can't delete themself", func() {
		err := e.services.Users.Delete(e.ctx, actorOf(root), root.ID)
		Expect(err).To(MatchBackendError(errs.ErrCannotDeleteSelf))

		Expect(e.services.Users.Delete(e.ctx, actorOf(root), pat.ID)).To(Succeed())
		_, err = e.services.Users.Get(e.ctx, actorOf(root), pat.ID)
		Expect(err).To(MatchBackendError(errs.ErrNotFound))
	})
})
