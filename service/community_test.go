package service_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduplatform-backend/blob"
	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/service"
)

var _ = Describe("Community", func() {
	var (
		e       *env
		owner   *entity.User
		member  *entity.User
		visitor *entity.User
		club    *entity.Community
	)

	BeforeEach(func() {
		e = newEnv()
		owner = e.seedUser(entity.RoleMentor, "owner@example.test")
		member = e.seedUser(entity.RoleStudent, "member@example.test")
		visitor = e.seedUser(entity.RoleParent, "visitor@example.test")

		var err error
		club, err = e.services.Communities.Create(e.ctx, actorOf(owner), service.CommunityInput{Name: "Chess club", IsPrivate: true})
		Expect(err).To(BeNil())
		Expect(club.Members).To(Equal([]primitive.ObjectID{owner.ID}))

		_, err = e.services.Communities.AddMember(e.ctx, actorOf(owner), club.ID, service.AddMemberInput{UserID: member.ID.Hex()})
		Expect(err).To(BeNil())
	})
	AfterEach(func() {
		e.close()
	})

	post := func(u *entity.User, body string, f *blob.File) (*entity.Post, error) {
		return e.services.Posts.Create(e.ctx, actorOf(u), service.CreatePostInput{CommunityID: club.ID.Hex(), Body: body}, f)
	}

	Describe("Communities", func() {
		Specify("sad path - name taken", func() {
			_, err := e.services.Communities.Create(e.ctx, actorOf(member), service.CommunityInput{Name: "Chess club"})
			Expect(err).To(MatchBackendError(errs.ErrCommunityExists))
		})
		Specify("adding a member is idempotent", func() {
			c, err := e.services.Communities.AddMember(e.ctx, actorOf(owner), club.ID, service.AddMemberInput{UserID: member.ID.Hex()})
			Expect(err).To(BeNil())
			Expect(c.Members).To(HaveLen(2))
		})
		Specify("sad path - stranger joins a private community", func() {
			_, err := e.services.Communities.Join(e.ctx, actorOf(visitor), club.ID)
			Expect(err).To(MatchBackendError(errs.ErrForbidden))
			_, err = e.services.Communities.AddMember(e.ctx, actorOf(member), club.ID, service.AddMemberInput{UserID: visitor.ID.Hex()})
			Expect(err).To(MatchBackendError(errs.ErrForbidden))

			_, err = e.services.Posts.List(e.ctx, actorOf(visitor), service.PostQuery{CommunityID: club.ID.Hex()})
			Expect(err).To(MatchBackendError(errs.ErrNotMember))

			got, err := e.services.Communities.Get(e.ctx, club.ID)
			Expect(err).To(BeNil())
			Expect(got.HasMember(visitor.ID)).To(BeFalse())
		})
		Specify("super admins join private communities", func() {
			root := e.seedUser(entity.RoleSuperAdmin, "root@example.test")
			c, err := e.services.Communities.Join(e.ctx, actorOf(root), club.ID)
			Expect(err).To(BeNil())
			Expect(c.HasMember(root.ID)).To(BeTrue())
		})
		Specify("public communities are open", func() {
			pub, err := e.services.Communities.Create(e.ctx, actorOf(owner), service.CommunityInput{Name: "Go club"})
			Expect(err).To(BeNil())
			c, err := e.services.Communities.Join(e.ctx, actorOf(visitor), pub.ID)
			Expect(err).To(BeNil())
			Expect(c.Members).To(ConsistOf(owner.ID, visitor.ID))
		})
		Specify("sad path - adding an unknown user", func() {
			_, err := e.services.Communities.AddMember(e.ctx, actorOf(owner), club.ID, service.AddMemberInput{UserID: primitive.NewObjectID().Hex()})
			Expect(err).To(MatchBackendError(errs.ErrNotFound))
			_, err = e.services.Communities.AddMember(e.ctx, actorOf(owner), club.ID, service.AddMemberInput{UserID: "nope"})
			Expect(err).To(MatchBackendError(errs.ErrValidation))
		})
		Specify("leave", func() {
			Expect(e.services.Communities.Leave(e.ctx, actorOf(owner), club.ID)).To(MatchBackendError(errs.ErrOwnerCantLeave))
			Expect(e.services.Communities.Leave(e.ctx, actorOf(visitor), club.ID)).To(MatchBackendError(errs.ErrNotMember))
			Expect(e.services.Communities.Leave(e.ctx, actorOf(member), club.ID)).To(Succeed())

			_, err := post(member, "still here?", nil)
			Expect(err).To(MatchBackendError(errs.ErrNotMember))
		})
		Specify("delete cascades posts and media", func() {
			p, err := post(member, "look", &blob.File{Name: "board.png", Data: pngData})
			Expect(err).To(BeNil())
			path := filepath.Join(e.blobDir, filepath.FromSlash(p.MediaKey))

			Expect(e.services.Communities.Delete(e.ctx, actorOf(member), club.ID)).To(MatchBackendError(errs.ErrForbidden))
			Expect(e.services.Communities.Delete(e.ctx, actorOf(owner), club.ID)).To(Succeed())

			_, err = e.store.Posts().Get(e.ctx, p.ID)
			Expect(err).NotTo(BeNil())
			_, err = os.Stat(path)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Describe("Posts", func() {
		Specify("private feeds are members only", func() {
			_, err := post(member, "e4!", nil)
			Expect(err).To(BeNil())

			feed, err := e.services.Posts.List(e.ctx, actorOf(member), service.PostQuery{CommunityID: club.ID.Hex()})
			Expect(err).To(BeNil())
			Expect(feed).To(HaveLen(1))

			_, err = e.services.Posts.List(e.ctx, actorOf(visitor), service.PostQuery{CommunityID: club.ID.Hex()})
			Expect(err).To(MatchBackendError(errs.ErrNotMember))

			public, err := e.services.Posts.List(e.ctx, actorOf(visitor), service.PostQuery{})
			Expect(err).To(BeNil())
			Expect(public).To(BeEmpty())
		})
		Specify("public posts", func() {
			p, err := e.services.Posts.Create(e.ctx, actorOf(visitor), service.CreatePostInput{Body: "hello world"}, nil)
			Expect(err).To(BeNil())
			Expect(p.CommunityID).To(BeNil())

			public, err := e.services.Posts.List(e.ctx, actorOf(member), service.PostQuery{})
			Expect(err).To(BeNil())
			Expect(public).To(HaveLen(1))
		})
		Specify("likes are a set", func() {
			p, err := post(member, "e4!", nil)
			Expect(err).To(BeNil())

			for i := 0; i < 2; i++ {
				p, err = e.services.Posts.Like(e.ctx, actorOf(owner), p.ID)
				Expect(err).To(BeNil())
			}
			Expect(p.Likes).To(Equal([]primitive.ObjectID{owner.ID}))

			p, err = e.services.Posts.Unlike(e.ctx, actorOf(owner), p.ID)
			Expect(err).To(BeNil())
			Expect(p.Likes).To(BeEmpty())

			_, err = e.services.Posts.Like(e.ctx, actorOf(visitor), p.ID)
			Expect(err).To(MatchBackendError(errs.ErrNotMember))
		})
		Specify("edit and delete permissions", func() {
			p, err := post(member, "e4!", nil)
			Expect(err).To(BeNil())

			_, err = e.services.Posts.Update(e.ctx, actorOf(owner), p.ID, service.UpdatePostInput{Body: "d5"})
			Expect(err).To(MatchBackendError(errs.ErrForbidden))
			updated, err := e.services.Posts.Update(e.ctx, actorOf(member), p.ID, service.UpdatePostInput{Body: "e4 e5"})
			Expect(err).To(BeNil())
			Expect(updated.Body).To(Equal("e4 e5"))

			Expect(e.services.Posts.Delete(e.ctx, actorOf(visitor), p.ID)).To(MatchBackendError(errs.ErrForbidden))
			Expect(e.services.Posts.Delete(e.ctx, actorOf(owner), p.ID)).To(Succeed())
		})
		Specify("sad path - unsupported media", func() {
			_, err := post(member, "see attached", &blob.File{Name: "a.txt", Data: []byte("plain text")})
			Expect(err).To(MatchBackendError(errs.ErrUnsupportedFile))
		})
	})
})
