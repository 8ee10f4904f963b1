package memstore_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduplatform-backend/entity"
	"eduplatform-backend/store"
	"eduplatform-backend/store/memstore"
)

var _ = Describe("Memstore", func() {
	var (
		ctx context.Context
		s   *memstore.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		s = memstore.New()
	})

	Describe("Users", func() {
		Specify("email is unique", func() {
			Expect(s.Users().Create(ctx, &entity.User{ID: primitive.NewObjectID(), Email: "a@test.test"})).To(Succeed())
			err := s.Users().Create(ctx, &entity.User{ID: primitive.NewObjectID(), Email: "a@test.test"})
			Expect(err).To(MatchError(store.ErrDuplicate))
		})
		Specify("returned documents are copies", func() {
			u := &entity.User{ID: primitive.NewObjectID(), Email: "a@test.test", FirstName: "A"}
			Expect(s.Users().Create(ctx, u)).To(Succeed())
			u.FirstName = "B"

			got, err := s.Users().Get(ctx, u.ID)
			Expect(err).To(BeNil())
			Expect(got.FirstName).To(Equal("A"))
		})
		Specify("list is newest first and paginated", func() {
			var ids []primitive.ObjectID
			for i := 0; i < 3; i++ {
				u := &entity.User{ID: primitive.NewObjectID(), Email: string(rune('a'+i)) + "@test.test", Role: entity.RoleMentor}
				ids = append(ids, u.ID)
				Expect(s.Users().Create(ctx, u)).To(Succeed())
			}

			page, err := s.Users().List(ctx, store.UserFilter{Role: entity.RoleMentor}, store.Page{Skip: 1, Limit: 1})
			Expect(err).To(BeNil())
			Expect(page).To(HaveLen(1))
			Expect(page[0].ID).To(Equal(ids[1]))
		})
		Specify("missing user", func() {
			_, err := s.Users().Get(ctx, primitive.NewObjectID())
			Expect(err).To(MatchError(store.ErrNotFound))
		})
		Specify("verification leaves other fields alone", func() {
			u := &entity.User{ID: primitive.NewObjectID(), Email: "m@test.test", FirstName: "Old", Role: entity.RoleMentor}
			Expect(s.Users().Create(ctx, u)).To(Succeed())

			// an edit that lands between loading the mentor and verifying them
			edited := *u
			edited.FirstName = "New"
			Expect(s.Users().Replace(ctx, &edited)).To(Succeed())

			at := time.Now().UTC().Truncate(time.Millisecond)
			Expect(s.Users().SetVerified(ctx, u.ID, true, at)).To(Succeed())

			got, err := s.Users().Get(ctx, u.ID)
			Expect(err).To(BeNil())
			Expect(got.IsVerified).To(BeTrue())
			Expect(got.FirstName).To(Equal("New"))
			Expect(got.UpdatedAt.Equal(at)).To(BeTrue())

			Expect(s.Users().SetVerified(ctx, primitive.NewObjectID(), true, at)).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("Schools", func() {
		var school *entity.School

		BeforeEach(func() {
			school = &entity.School{ID: primitive.NewObjectID(), Name: "Test", PaymentStatus: entity.PaymentPending}
			Expect(s.Schools().Create(ctx, school)).To(Succeed())
		})

		Specify("seats can't be reserved before payment", func() {
			err := s.Schools().ReserveSeat(ctx, school.ID, primitive.NewObjectID())
			Expect(err).To(MatchError(store.ErrConflict))
		})
		Specify("seats are consumed and released", func() {
			to := time.Now().Add(time.Hour)
			Expect(s.Schools().ApplyPayment(ctx, school.ID, entity.SchoolPayment{
				TransactionID:  primitive.NewObjectID(),
				MarkCompleted:  true,
				Seats:          1,
				SubscriptionTo: &to,
			})).To(Succeed())

			student := primitive.NewObjectID()
			Expect(s.Schools().ReserveSeat(ctx, school.ID, student)).To(Succeed())
			Expect(s.Schools().ReserveSeat(ctx, school.ID, primitive.NewObjectID())).To(MatchError(store.ErrConflict))

			got, err := s.Schools().Get(ctx, school.ID)
			Expect(err).To(BeNil())
			Expect(got.StudentQuota).To(BeZero())
			Expect(got.Students).To(Equal([]primitive.ObjectID{student}))
			Expect(got.Transactions).To(HaveLen(1))

			Expect(s.Schools().ReleaseSeat(ctx, school.ID, student)).To(Succeed())
			got, err = s.Schools().Get(ctx, school.ID)
			Expect(err).To(BeNil())
			Expect(got.StudentQuota).To(BeEquivalentTo(1))
			Expect(got.Students).To(BeEmpty())
		})
		Specify("only a pending school can be marked completed", func() {
			payment := entity.SchoolPayment{TransactionID: primitive.NewObjectID(), MarkCompleted: true, Seats: 3}
			Expect(s.Schools().ApplyPayment(ctx, school.ID, payment)).To(Succeed())

			payment.TransactionID = primitive.NewObjectID()
			Expect(s.Schools().ApplyPayment(ctx, school.ID, payment)).To(MatchError(store.ErrConflict))

			got, err := s.Schools().Get(ctx, school.ID)
			Expect(err).To(BeNil())
			Expect(got.StudentQuota).To(BeEquivalentTo(3))
			Expect(got.Transactions).To(HaveLen(1))

			// renewals don't touch the status and still apply
			Expect(s.Schools().ApplyPayment(ctx, school.ID, entity.SchoolPayment{
				TransactionID: primitive.NewObjectID(),
				Seats:         2,
			})).To(Succeed())
			got, err = s.Schools().Get(ctx, school.ID)
			Expect(err).To(BeNil())
			Expect(got.StudentQuota).To(BeEquivalentTo(5))

			Expect(s.Schools().ApplyPayment(ctx, primitive.NewObjectID(), payment)).To(MatchError(store.ErrNotFound))
		})
		Specify("lapsed schools are listed until notified", func() {
			past := time.Now().Add(-time.Hour)
			Expect(s.Schools().ApplyPayment(ctx, school.ID, entity.SchoolPayment{
				TransactionID:  primitive.NewObjectID(),
				MarkCompleted:  true,
				SubscriptionTo: &past,
			})).To(Succeed())

			lapsed, err := s.Schools().ListLapsed(ctx, time.Now())
			Expect(err).To(BeNil())
			Expect(lapsed).To(HaveLen(1))

			Expect(s.Schools().MarkExpiryNotified(ctx, school.ID)).To(Succeed())
			lapsed, err = s.Schools().ListLapsed(ctx, time.Now())
			Expect(err).To(BeNil())
			Expect(lapsed).To(BeEmpty())
		})
	})

	Describe("WithTransaction", func() {
		Specify("rolls back on error", func() {
			boom := errors.New("boom")
			err := s.WithTransaction(ctx, func(ctx context.Context) error {
				Expect(s.Users().Create(ctx, &entity.User{ID: primitive.NewObjectID(), Email: "a@test.test"})).To(Succeed())
				return boom
			})
			Expect(err).To(MatchError(boom))

			_, err = s.Users().GetByEmail(ctx, "a@test.test")
			Expect(err).To(MatchError(store.ErrNotFound))
		})
		Specify("commits on success", func() {
			Expect(s.WithTransaction(ctx, func(ctx context.Context) error {
				return s.Users().Create(ctx, &entity.User{ID: primitive.NewObjectID(), Email: "a@test.test"})
			})).To(Succeed())

			_, err := s.Users().GetByEmail(ctx, "a@test.test")
			Expect(err).To(BeNil())
		})
	})

	Describe("Completions", func() {
		Specify("one completion per user and challenge", func() {
			c := &entity.ChallengeCompletion{ID: primitive.NewObjectID(), ChallengeID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Score: 5}
			Expect(s.Completions().Create(ctx, c)).To(Succeed())
			c2 := *c
			c2.ID = primitive.NewObjectID()
			Expect(s.Completions().Create(ctx, &c2)).To(MatchError(store.ErrDuplicate))
		})
		Specify("leaderboard sums scores", func() {
			alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
			for _, c := range []*entity.ChallengeCompletion{
				{ID: primitive.NewObjectID(), ChallengeID: primitive.NewObjectID(), UserID: alice, Score: 5},
				{ID: primitive.NewObjectID(), ChallengeID: primitive.NewObjectID(), UserID: alice, Score: 5},
				{ID: primitive.NewObjectID(), ChallengeID: primitive.NewObjectID(), UserID: bob, Score: 20},
			} {
				Expect(s.Completions().Create(ctx, c)).To(Succeed())
			}

			board, err := s.Completions().Leaderboard(ctx, 10)
			Expect(err).To(BeNil())
			Expect(board).To(HaveLen(2))
			Expect(board[0].UserID).To(Equal(bob))
			Expect(board[0].Points).To(BeEquivalentTo(20))
			Expect(board[1].Completed).To(BeEquivalentTo(2))
		})
	})

	Describe("Credentials", func() {
		Specify("only pending credentials are reviewed", func() {
			c := &entity.MentorCredential{ID: primitive.NewObjectID(), MentorID: primitive.NewObjectID(), Status: entity.CredentialPending}
			Expect(s.Credentials().Create(ctx, c)).To(Succeed())

			review := entity.CredentialReview{Status: entity.CredentialApproved, VerifiedBy: primitive.NewObjectID(), ReviewedAt: time.Now()}
			Expect(s.Credentials().Review(ctx, c.ID, review)).To(Succeed())
			Expect(s.Credentials().Review(ctx, c.ID, review)).To(MatchError(store.ErrConflict))
			Expect(s.Credentials().Review(ctx, primitive.NewObjectID(), review)).To(MatchError(store.ErrNotFound))
		})
	})

	Describe("Contents", func() {
		Specify("drafts are only visible to their author", func() {
			author := primitive.NewObjectID()
			Expect(s.Contents().Create(ctx, &entity.Content{ID: primitive.NewObjectID(), Title: "draft", CreatedBy: author})).To(Succeed())
			Expect(s.Contents().Create(ctx, &entity.Content{ID: primitive.NewObjectID(), Title: "live", Published: true, CreatedBy: author})).To(Succeed())

			public, err := s.Contents().List(ctx, store.ContentFilter{}, store.Page{})
			Expect(err).To(BeNil())
			Expect(public).To(HaveLen(1))

			own, err := s.Contents().List(ctx, store.ContentFilter{PublishedOr: &author}, store.Page{})
			Expect(err).To(BeNil())
			Expect(own).To(HaveLen(2))
		})
	})
})
