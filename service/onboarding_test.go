package service_test

import (
	"errors"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"eduplatform-backend/cache"
	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/log"
	"eduplatform-backend/mail"
	"eduplatform-backend/service"
)

var _ = Describe("School onboarding", func() {
	var (
		e   *env
		res *service.OnboardSchoolResult
	)

	BeforeEach(func() {
		e = newEnv()
		var err error
		res, err = e.services.Onboarding.OnboardSchool(e.ctx, service.OnboardSchoolInput{
			Name:           "Northside",
			Email:          "office@northside.test",
			AdminEmail:     "Admin@Northside.test",
			AdminFirstName: "Ada",
			AdminLastName:  "Admin",
		})
		Expect(err).To(BeNil())
	})
	AfterEach(func() {
		e.close()
	})

	registration := func(ref string) service.CreateTransactionInput {
		return service.CreateTransactionInput{
			Type: "registration", Amount: 50000, Currency: "USD", PaymentMethod: "card",
			Reference: ref, Seats: 2, Months: 12,
		}
	}

	Specify("school starts pending with the password cached", func() {
		Expect(res.School.PaymentStatus).To(Equal(entity.PaymentPending))
		Expect(res.Admin.Role).To(Equal(entity.RoleSchoolAdmin))
		Expect(*res.Admin.SchoolID).To(Equal(res.School.ID))
		Expect(res.Admin.MustChangePassword).To(BeTrue())

		_, err := e.cache.Get(e.ctx, cache.TempPasswordKey(res.School.ID.Hex()))
		Expect(err).To(BeNil())

		notice := lastMail(e, "admin@northside.test")
		Expect(notice.Text).NotTo(ContainSubstring("Temporary password"))
	})

	Specify("sad path - admin email taken", func() {
		_, err := e.services.Onboarding.OnboardSchool(e.ctx, service.OnboardSchoolInput{
			Name: "Other", Email: "office@other.test", AdminEmail: "admin@northside.test",
			AdminFirstName: "B", AdminLastName: "B",
		})
		Expect(err).To(MatchBackendError(errs.ErrAlreadyExists))
	})

	Describe("registration payment", func() {
		Specify("happy path", func() {
			tx, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())
			Expect(tx.Status).To(Equal("completed"))
			Expect(*tx.SchoolID).To(Equal(res.School.ID))

			school, err := e.store.Schools().Get(e.ctx, res.School.ID)
			Expect(err).To(BeNil())
			Expect(school.Paid()).To(BeTrue())
			Expect(school.StudentQuota).To(Equal(int64(2)))
			Expect(school.Transactions).To(ContainElement(tx.ID))
			Expect(*school.SubscriptionExpiresAt).To(Equal(e.clock.AddDate(0, 12, 0)))

			password := mailedPassword(e, "admin@northside.test")
			_, err = e.services.Auth.Login(e.ctx, service.LoginInput{Email: "admin@northside.test", Password: password})
			Expect(err).To(BeNil())

			_, err = e.cache.Get(e.ctx, cache.TempPasswordKey(res.School.ID.Hex()))
			Expect(err).To(MatchError(cache.ErrMiss))

			Expect(lastMail(e, "office@northside.test").Subject).To(ContainSubstring("REG-1"))
		})
		Specify("expired password is regenerated", func() {
			e.advance(25 * time.Hour)
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())

			password := mailedPassword(e, "admin@northside.test")
			_, err = e.services.Auth.Login(e.ctx, service.LoginInput{Email: "admin@northside.test", Password: password})
			Expect(err).To(BeNil())
		})
		Specify("failed delivery keeps the password cached", func() {
			e.outbox.SetErr(errors.New("smtp down"))
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())

			_, err = e.cache.Get(e.ctx, cache.TempPasswordKey(res.School.ID.Hex()))
			Expect(err).To(BeNil())
		})
		Specify("sad path - already paid", func() {
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())
			_, err = e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-2"))
			Expect(err).To(MatchBackendError(errs.ErrAlreadyPaid))
		})
		Specify("concurrent registrations complete the school once", func() {
			const n = 8
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				succeeded int
			)
			for i := 0; i < n; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration(fmt.Sprintf("REG-%d", i)))
					if err != nil {
						Expect(err).To(MatchBackendError(errs.ErrAlreadyPaid))
						return
					}
					mu.Lock()
					succeeded++
					mu.Unlock()
				}(i)
			}
			wg.Wait()
			Expect(succeeded).To(Equal(1))

			school, err := e.store.Schools().Get(e.ctx, res.School.ID)
			Expect(err).To(BeNil())
			Expect(school.Transactions).To(HaveLen(1))
			Expect(school.StudentQuota).To(BeEquivalentTo(2))
		})
		Specify("sad path - duplicate reference rolls back", func() {
			other := e.seedUser(entity.RoleSuperAdmin, "root@platform.test")
			school2, err := e.services.Onboarding.OnboardSchool(e.ctx, service.OnboardSchoolInput{
				Name: "Southside", Email: "office@southside.test", AdminEmail: "admin@southside.test",
				AdminFirstName: "S", AdminLastName: "S",
			})
			Expect(err).To(BeNil())

			_, err = e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())

			in := registration("REG-1")
			in.SchoolID = school2.School.ID.Hex()
			_, err = e.services.Transactions.Create(e.ctx, actorOf(other), in)
			Expect(err).To(MatchBackendError(errs.ErrDuplicateTransaction))

			school, err := e.store.Schools().Get(e.ctx, school2.School.ID)
			Expect(err).To(BeNil())
			Expect(school.Paid()).To(BeFalse())
		})
		Specify("sad path - tier before registration", func() {
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), service.CreateTransactionInput{
				Type: "tier", Amount: 1000, Currency: "USD", PaymentMethod: "cash", Reference: "T-1", Seats: 5,
			})
			Expect(err).To(MatchBackendError(errs.ErrPaymentRequired))
		})
	})

	Describe("subscription and tier", func() {
		BeforeEach(func() {
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())
		})

		Specify("subscription extends from the current expiry", func() {
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), service.CreateTransactionInput{
				Type: "subscription", Amount: 1000, Currency: "USD", PaymentMethod: "bank_transfer", Reference: "SUB-1", Months: 3,
			})
			Expect(err).To(BeNil())

			school, err := e.store.Schools().Get(e.ctx, res.School.ID)
			Expect(err).To(BeNil())
			Expect(*school.SubscriptionExpiresAt).To(Equal(e.clock.AddDate(0, 12, 0).AddDate(0, 3, 0)))
		})
		Specify("tier adds seats", func() {
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), service.CreateTransactionInput{
				Type: "tier", Amount: 1000, Currency: "USD", PaymentMethod: "card", Reference: "T-1", Seats: 5,
			})
			Expect(err).To(BeNil())

			school, err := e.store.Schools().Get(e.ctx, res.School.ID)
			Expect(err).To(BeNil())
			Expect(school.StudentQuota).To(Equal(int64(7)))
		})
		Specify("school admin only sees own transactions", func() {
			txs, err := e.services.Transactions.List(e.ctx, actorOf(res.Admin), service.TransactionQuery{})
			Expect(err).To(BeNil())
			Expect(txs).To(HaveLen(1))

			parent := e.seedUser(entity.RoleParent, "parent@example.test")
			_, err = e.services.Transactions.Get(e.ctx, actorOf(parent), txs[0].ID)
			Expect(err).To(MatchBackendError(errs.ErrForbidden))
		})
	})

	Describe("ResendCredentials", func() {
		Specify("pending school gets a fresh cached password", func() {
			root := e.seedUser(entity.RoleSuperAdmin, "root@platform.test")
			key := cache.TempPasswordKey(res.School.ID.Hex())
			before, err := e.cache.Get(e.ctx, key)
			Expect(err).To(BeNil())

			Expect(e.services.Onboarding.ResendCredentials(e.ctx, actorOf(root), res.School.ID)).To(Succeed())
			after, err := e.cache.Get(e.ctx, key)
			Expect(err).To(BeNil())
			Expect(after).NotTo(Equal(before))
		})
		Specify("sad path - paid school with mail and cache down", func() {
			root := e.seedUser(entity.RoleSuperAdmin, "root@platform.test")
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())

			core, logs := observer.New(zap.ErrorLevel)
			prev := log.Logger
			log.Logger = zap.New(core)
			defer func() { log.Logger = prev }()

			e.outbox.SetErr(errors.New("smtp down"))
			e.services.Onboarding.Cache = brokenCache{Cache: e.cache}

			err = e.services.Onboarding.ResendCredentials(e.ctx, actorOf(root), res.School.ID)
			Expect(err).To(MatchBackendError(errs.ErrMail))
			restore := logs.FilterMessage("failed to restore temporary password")
			Expect(restore.Len()).To(Equal(1))
			Expect(restore.All()[0].ContextMap()).To(HaveKeyWithValue("schoolID", res.School.ID.Hex()))
		})
		Specify("sad path - not a super admin", func() {
			err := e.services.Onboarding.ResendCredentials(e.ctx, actorOf(res.Admin), res.School.ID)
			Expect(err).To(MatchBackendError(errs.ErrForbidden))
		})
	})

	Describe("OnboardStudent", func() {
		Specify("sad path - unpaid school", func() {
			_, err := e.services.Schools.OnboardStudent(e.ctx, actorOf(res.Admin), service.OnboardStudentInput{
				Email: "kid@northside.test", FirstName: "K", LastName: "K",
			})
			Expect(err).To(MatchBackendError(errs.ErrPaymentRequired))
		})
		Specify("seats are consumed and released", func() {
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())
			admin := actorOf(res.Admin)

			var students []*entity.User
			for _, email := range []string{"a@northside.test", "b@northside.test"} {
				r, err := e.services.Schools.OnboardStudent(e.ctx, admin, service.OnboardStudentInput{
					Email: email, FirstName: "S", LastName: "S", Grade: 5,
				})
				Expect(err).To(BeNil())
				Expect(r.CredentialsSent).To(BeTrue())
				Expect(mailedPassword(e, email)).NotTo(BeEmpty())
				students = append(students, r.User)
			}

			_, err = e.services.Schools.OnboardStudent(e.ctx, admin, service.OnboardStudentInput{
				Email: "c@northside.test", FirstName: "S", LastName: "S",
			})
			Expect(err).To(MatchBackendError(errs.ErrQuotaExceeded))
			_, err = e.store.Users().GetByEmail(e.ctx, "c@northside.test")
			Expect(err).NotTo(BeNil())

			Expect(e.services.Schools.RemoveStudent(e.ctx, admin, res.School.ID, students[0].ID)).To(Succeed())
			_, err = e.services.Schools.OnboardStudent(e.ctx, admin, service.OnboardStudentInput{
				Email: "c@northside.test", FirstName: "S", LastName: "S",
			})
			Expect(err).To(BeNil())
		})
		Specify("mail failure still creates the account", func() {
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())

			e.outbox.SetErr(errors.New("smtp down"))
			r, err := e.services.Schools.OnboardStudent(e.ctx, actorOf(res.Admin), service.OnboardStudentInput{
				Email: "a@northside.test", FirstName: "S", LastName: "S",
			})
			Expect(err).To(BeNil())
			Expect(r.CredentialsSent).To(BeFalse())
		})
		Specify("sad path - lapsed subscription", func() {
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())
			e.advance(400 * 24 * time.Hour)

			_, err = e.services.Schools.OnboardStudent(e.ctx, actorOf(res.Admin), service.OnboardStudentInput{
				Email: "a@northside.test", FirstName: "S", LastName: "S",
			})
			Expect(err).To(MatchBackendError(errs.ErrSubscriptionExpired))
		})
	})

	Describe("ExpireSubscriptions", func() {
		Specify("notifies each lapsed school once", func() {
			_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-1"))
			Expect(err).To(BeNil())
			e.advance(400 * 24 * time.Hour)

			n, err := e.services.Schools.ExpireSubscriptions(e.ctx)
			Expect(err).To(BeNil())
			Expect(n).To(Equal(1))
			Expect(lastMail(e, "office@northside.test").Subject).NotTo(BeEmpty())

			n, err = e.services.Schools.ExpireSubscriptions(e.ctx)
			Expect(err).To(BeNil())
			Expect(n).To(Equal(0))
		})
	})

	Specify("receipt formats the amount", func() {
		_, err := e.services.Transactions.Create(e.ctx, actorOf(res.Admin), registration("REG-9"))
		Expect(err).To(BeNil())

		var receipt *mail.Message
		for _, m := range e.outbox.To("office@northside.test") {
			if m.Subject == "Payment receipt REG-9" {
				receipt = m
			}
		}
		Expect(receipt).NotTo(BeNil())
		Expect(receipt.Text).To(ContainSubstring("500.00 USD"))
	})
})
