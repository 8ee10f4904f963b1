package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"eduplatform-backend/blob"
	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/log"
	"eduplatform-backend/store"
)

type CommunityService struct {
	*Deps
}

type CommunityInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	IsPrivate   bool   `json:"is_private"`
}

func (s *CommunityService) Create(ctx context.Context, actor *Actor, in CommunityInput) (*entity.Community, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	now := s.now()
	c := &entity.Community{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		IsPrivate:   in.IsPrivate,
		CreatedBy:   actor.ID,
		Members:     []primitive.ObjectID{actor.ID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Communities().Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.ErrCommunityExists
		}
		return nil, dbErr(err, nil, "failed to create community", zap.String("userID", actor.ID.Hex()))
	}
	return c, nil
}

func (s *CommunityService) List(ctx context.Context, p Page) ([]*entity.Community, error) {
	cs, err := s.Store.Communities().List(ctx, p.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list communities")
	}
	return cs, nil
}

func (s *CommunityService) Get(ctx context.Context, id primitive.ObjectID) (*entity.Community, error) {
	c, err := s.Store.Communities().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load community", zap.String("communityID", id.Hex()))
	}
	return c, nil
}

// Join adds the caller to a public community. Members of a private community
// are added by its creator or a super admin through AddMember.
func (s *CommunityService) Join(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.Community, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsPrivate && !ownsCommunity(actor, c) {
		return nil, errs.ErrForbidden
	}

	if err := s.Store.Communities().AddMember(ctx, id, actor.ID); err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to join community", zap.String("communityID", id.Hex()))
	}
	return s.Get(ctx, id)
}

type AddMemberInput struct {
	UserID string `json:"user_id" validate:"required,objectid"`
}

func (s *CommunityService) AddMember(ctx context.Context, actor *Actor, id primitive.ObjectID, in AddMemberInput) (*entity.Community, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	userID, err := parseID(in.UserID)
	if err != nil {
		return nil, err
	}

	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ownsCommunity(actor, c) {
		return nil, errs.ErrForbidden
	}
	if _, err := s.getUser(ctx, userID); err != nil {
		return nil, err
	}

	if err := s.Store.Communities().AddMember(ctx, id, userID); err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to add community member",
			zap.String("communityID", id.Hex()), zap.String("userID", userID.Hex()))
	}
	log.Logger.Info("community member added", zap.String("communityID", id.Hex()), zap.String("userID", userID.Hex()))
	return s.Get(ctx, id)
}

func ownsCommunity(actor *Actor, c *entity.Community) bool {
	return c.CreatedBy == actor.ID || actor.SuperAdmin()
}

func (s *CommunityService) Leave(ctx context.Context, actor *Actor, id primitive.ObjectID) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if c.CreatedBy == actor.ID {
		return errs.ErrOwnerCantLeave
	}
	if !c.HasMember(actor.ID) {
		return errs.ErrNotMember
	}
	err = s.Store.Communities().RemoveMember(ctx, id, actor.ID)
	return dbErr(err, errs.ErrNotFound, "failed to leave community", zap.String("communityID", id.Hex()))
}

// Delete removes the community, its posts and their media.
func (s *CommunityService) Delete(ctx context.Context, actor *Actor, id primitive.ObjectID) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ownsCommunity(actor, c) {
		return errs.ErrForbidden
	}

	var keys []string
	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		keys = keys[:0]
		page := store.Page{Limit: store.MaxLimit}
		for {
			posts, err := s.Store.Posts().List(ctx, store.PostFilter{CommunityID: &id}, page)
			if err != nil {
				return err
			}
			for _, p := range posts {
				if p.MediaKey != "" {
					keys = append(keys, p.MediaKey)
				}
			}
			if int64(len(posts)) < page.Limit {
				break
			}
			page.Skip += page.Limit
		}

		if err := s.Store.Posts().DeleteByCommunity(ctx, id); err != nil {
			return err
		}
		return s.Store.Communities().Delete(ctx, id)
	})
	if err != nil {
		return dbErr(err, errs.ErrNotFound, "failed to delete community", zap.String("communityID", id.Hex()))
	}

	for _, k := range keys {
		s.removeBlob(ctx, k)
	}
	log.Logger.Info("community deleted", zap.String("communityID", id.Hex()), zap.Int("media", len(keys)))
	return nil
}

type PostService struct {
	*Deps
}

type CreatePostInput struct {
	CommunityID string `json:"community_id" validate:"omitempty,objectid"`
	Body        string `json:"body" validate:"required,max=5000"`
}

type UpdatePostInput struct {
	Body string `json:"body" validate:"required,max=5000"`
}

type PostQuery struct {
	CommunityID string
	AuthorID    string
	Page
}

func (s *PostService) community(ctx context.Context, id primitive.ObjectID) (*entity.Community, error) {
	c, err := s.Store.Communities().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load community", zap.String("communityID", id.Hex()))
	}
	return c, nil
}

// visible hides posts of private communities from non-members.
func (s *PostService) visible(ctx context.Context, actor *Actor, p *entity.Post) error {
	if p.CommunityID == nil || actor.SuperAdmin() {
		return nil
	}
	c, err := s.community(ctx, *p.CommunityID)
	if err != nil {
		return err
	}
	if c.IsPrivate && !c.HasMember(actor.ID) {
		return errs.ErrNotMember
	}
	return nil
}

func (s *PostService) Create(ctx context.Context, actor *Actor, in CreatePostInput, f *blob.File) (*entity.Post, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	communityID, err := parseOptionalID(in.CommunityID)
	if err != nil {
		return nil, err
	}
	if communityID != nil {
		c, err := s.community(ctx, *communityID)
		if err != nil {
			return nil, err
		}
		if !c.HasMember(actor.ID) {
			return nil, errs.ErrNotMember
		}
	}

	now := s.now()
	p := &entity.Post{
		ID:          primitive.NewObjectID(),
		CommunityID: communityID,
		AuthorID:    actor.ID,
		Body:        strings.TrimSpace(in.Body),
		Likes:       []primitive.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if f != nil {
		p.MediaKey, p.MediaURL, err = s.upload(ctx, "posts", f, blob.Images)
		if err != nil {
			return nil, err
		}
	}

	if err := s.Store.Posts().Create(ctx, p); err != nil {
		s.removeBlob(ctx, p.MediaKey)
		return nil, dbErr(err, nil, "failed to create post", zap.String("userID", actor.ID.Hex()))
	}
	return p, nil
}

func (s *PostService) List(ctx context.Context, actor *Actor, q PostQuery) ([]*entity.Post, error) {
	var f store.PostFilter
	var err error
	if f.AuthorID, err = parseOptionalID(q.AuthorID); err != nil {
		return nil, err
	}
	if f.CommunityID, err = parseOptionalID(q.CommunityID); err != nil {
		return nil, err
	}

	if f.CommunityID == nil {
		f.NoCommunity = true
	} else if !actor.SuperAdmin() {
		c, err := s.community(ctx, *f.CommunityID)
		if err != nil {
			return nil, err
		}
		if c.IsPrivate && !c.HasMember(actor.ID) {
			return nil, errs.ErrNotMember
		}
	}

	ps, err := s.Store.Posts().List(ctx, f, q.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list posts")
	}
	return ps, nil
}

func (s *PostService) load(ctx context.Context, id primitive.ObjectID) (*entity.Post, error) {
	p, err := s.Store.Posts().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load post", zap.String("postID", id.Hex()))
	}
	return p, nil
}

func (s *PostService) Get(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.Post, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visible(ctx, actor, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostService) Update(ctx context.Context, actor *Actor, id primitive.ObjectID, in UpdatePostInput) (*entity.Post, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != actor.ID {
		return nil, errs.ErrForbidden
	}

	p.Body = strings.TrimSpace(in.Body)
	p.UpdatedAt = s.now()
	if err := s.Store.Posts().Replace(ctx, p); err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to update post", zap.String("postID", id.Hex()))
	}
	return p, nil
}

func (s *PostService) Delete(ctx context.Context, actor *Actor, id primitive.ObjectID) error {
	p, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	allowed := p.AuthorID == actor.ID || actor.SuperAdmin()
	if !allowed && p.CommunityID != nil {
		c, err := s.community(ctx, *p.CommunityID)
		if err != nil {
			return err
		}
		allowed = c.CreatedBy == actor.ID
	}
	if !allowed {
		return errs.ErrForbidden
	}

	if err := s.Store.Posts().Delete(ctx, id); err != nil {
		return dbErr(err, errs.ErrNotFound, "failed to delete post", zap.String("postID", id.Hex()))
	}
	s.removeBlob(ctx, p.MediaKey)
	return nil
}

func (s *PostService) Like(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.Post, error) {
	return s.react(ctx, actor, id, s.Store.Posts().Like)
}

func (s *PostService) Unlike(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.Post, error) {
	return s.react(ctx, actor, id, s.Store.Posts().Unlike)
}

func (s *PostService) react(ctx context.Context, actor *Actor, id primitive.ObjectID, op func(context.Context, primitive.ObjectID, primitive.ObjectID) error) (*entity.Post, error) {
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := op(ctx, p.ID, actor.ID); err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to update likes", zap.String("postID", id.Hex()))
	}
	return s.load(ctx, id)
}
