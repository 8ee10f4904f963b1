package service

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"eduplatform-backend/blob"
	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/log"
	"eduplatform-backend/store"
)

type CategoryService struct {
	*Deps
}

type CategoryInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func (s *CategoryService) Create(ctx context.Context, actor *Actor, in CategoryInput) (*entity.Category, error) {
	if !actor.SuperAdmin() {
		return nil, errs.ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	slug := slugify(in.Name)
	if slug == "" {
		return nil, fieldError("name", "name must contain letters or digits")
	}

	now := s.now()
	c := &entity.Category{
		ID:          primitive.NewObjectID(),
		Name:        strings.TrimSpace(in.Name),
		Slug:        slug,
		Description: strings.TrimSpace(in.Description),
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Categories().Create(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.ErrCategoryExists
		}
		return nil, dbErr(err, nil, "failed to create category", zap.String("slug", slug))
	}
	return c, nil
}

func (s *CategoryService) List(ctx context.Context, p Page) ([]*entity.Category, error) {
	cs, err := s.Store.Categories().List(ctx, p.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list categories")
	}
	return cs, nil
}

func (s *CategoryService) Get(ctx context.Context, id primitive.ObjectID) (*entity.Category, error) {
	c, err := s.Store.Categories().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrCategoryNotFound, "failed to load category", zap.String("categoryID", id.Hex()))
	}
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, actor *Actor, id primitive.ObjectID, in CategoryInput) (*entity.Category, error) {
	if !actor.SuperAdmin() {
		return nil, errs.ErrForbidden
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	slug := slugify(in.Name)
	if slug == "" {
		return nil, fieldError("name", "name must contain letters or digits")
	}
	c.Name = strings.TrimSpace(in.Name)
	c.Slug = slug
	c.Description = strings.TrimSpace(in.Description)
	c.UpdatedAt = s.now()

	if err := s.Store.Categories().Replace(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, errs.ErrCategoryExists
		}
		return nil, dbErr(err, errs.ErrCategoryNotFound, "failed to update category", zap.String("categoryID", id.Hex()))
	}
	return c, nil
}

func (s *CategoryService) Delete(ctx context.Context, actor *Actor, id primitive.ObjectID) error {
	if !actor.SuperAdmin() {
		return errs.ErrForbidden
	}
	err := s.Store.Categories().Delete(ctx, id)
	return dbErr(err, errs.ErrCategoryNotFound, "failed to delete category", zap.String("categoryID", id.Hex()))
}

// ensureCategories fails with ErrCategoryNotFound if any id is unknown.
func (d *Deps) ensureCategories(ctx context.Context, ids []primitive.ObjectID) error {
	for _, id := range ids {
		if _, err := d.Store.Categories().Get(ctx, id); err != nil {
			return dbErr(err, errs.ErrCategoryNotFound, "failed to load category", zap.String("categoryID", id.Hex()))
		}
	}
	return nil
}

type ContentService struct {
	*Deps
}

type CreateContentInput struct {
	Title       string   `json:"title" validate:"required,max=200"`
	Description string   `json:"description" validate:"max=5000"`
	Type        string   `json:"type" validate:"required,oneof=video article document audio"`
	CategoryIDs []string `json:"category_ids" validate:"dive,objectid"`
	Tags        []string `json:"tags" validate:"max=20,dive,max=50"`
	AgeGroup    string   `json:"age_group" validate:"max=50"`
	Published   bool     `json:"published"`
}

type UpdateContentInput struct {
	Title       *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string   `json:"description" validate:"omitempty,max=5000"`
	CategoryIDs *[]string `json:"category_ids" validate:"omitempty,dive,objectid"`
	Tags        *[]string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	AgeGroup    *string   `json:"age_group" validate:"omitempty,max=50"`
	Published   *bool     `json:"published"`
}

type ContentQuery struct {
	CategoryID string
	Type       string
	AuthorID   string
	Search     string
	Page
}

// canPublish lets verified mentors and administrators author content.
func (s *ContentService) canPublish(ctx context.Context, actor *Actor) error {
	switch actor.Role {
	case entity.RoleSuperAdmin, entity.RoleSchoolAdmin:
		return nil
	case entity.RoleMentor:
		u, err := s.getUser(ctx, actor.ID)
		if err != nil {
			return err
		}
		if !u.IsVerified {
			return errs.ErrMentorNotVerified
		}
		return nil
	}
	return errs.ErrForbidden
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func (s *ContentService) Create(ctx context.Context, actor *Actor, in CreateContentInput, f *blob.File) (*entity.Content, error) {
	if err := s.canPublish(ctx, actor); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	categories, err := parseIDs(in.CategoryIDs)
	if err != nil {
		return nil, err
	}
	if err := s.ensureCategories(ctx, categories); err != nil {
		return nil, err
	}

	now := s.now()
	c := &entity.Content{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		Type:        entity.ContentType(in.Type),
		CategoryIDs: categories,
		Tags:        cleanTags(in.Tags),
		AgeGroup:    strings.TrimSpace(in.AgeGroup),
		Published:   in.Published,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if f != nil {
		c.BlobKey, c.FileURL, err = s.upload(ctx, "content", f, blob.Media)
		if err != nil {
			return nil, err
		}
	}

	if err := s.Store.Contents().Create(ctx, c); err != nil {
		s.removeBlob(ctx, c.BlobKey)
		return nil, dbErr(err, nil, "failed to create content", zap.String("userID", actor.ID.Hex()))
	}
	log.Logger.Info("content created", zap.String("contentID", c.ID.Hex()), zap.String("userID", actor.ID.Hex()))
	return c, nil
}

func (s *ContentService) load(ctx context.Context, id primitive.ObjectID) (*entity.Content, error) {
	c, err := s.Store.Contents().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load content", zap.String("contentID", id.Hex()))
	}
	return c, nil
}

// Get hides drafts from everyone but their author and super admins.
func (s *ContentService) Get(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.Content, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Published && c.CreatedBy != actor.ID && !actor.SuperAdmin() {
		return nil, errs.ErrNotFound
	}
	return c, nil
}

func (s *ContentService) List(ctx context.Context, actor *Actor, q ContentQuery) ([]*entity.Content, error) {
	f := store.ContentFilter{Type: entity.ContentType(q.Type), Search: strings.TrimSpace(q.Search)}
	switch f.Type {
	case "", entity.ContentVideo, entity.ContentArticle, entity.ContentDocument, entity.ContentAudio:
	default:
		return nil, fieldError("type", "must be video, article, document or audio")
	}

	var err error
	if f.CategoryID, err = parseOptionalID(q.CategoryID); err != nil {
		return nil, err
	}
	if f.CreatedBy, err = parseOptionalID(q.AuthorID); err != nil {
		return nil, err
	}
	if actor.SuperAdmin() {
		f.AllStates = true
	} else {
		f.PublishedOr = &actor.ID
	}

	cs, err := s.Store.Contents().List(ctx, f, q.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list content")
	}
	return cs, nil
}

func (s *ContentService) editable(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.Content, error) {
	c, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.CreatedBy != actor.ID && !actor.SuperAdmin() {
		return nil, errs.ErrForbidden
	}
	return c, nil
}

func (s *ContentService) Update(ctx context.Context, actor *Actor, id primitive.ObjectID, in UpdateContentInput, f *blob.File) (*entity.Content, error) {
	if err := s.canPublish(ctx, actor); err != nil {
		return nil, err
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		c.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.CategoryIDs != nil {
		categories, err := parseIDs(*in.CategoryIDs)
		if err != nil {
			return nil, err
		}
		if err := s.ensureCategories(ctx, categories); err != nil {
			return nil, err
		}
		c.CategoryIDs = categories
	}
	if in.Tags != nil {
		c.Tags = cleanTags(*in.Tags)
	}
	if in.AgeGroup != nil {
		c.AgeGroup = strings.TrimSpace(*in.AgeGroup)
	}
	if in.Published != nil {
		c.Published = *in.Published
	}

	oldKey := ""
	if f != nil {
		key, url, err := s.upload(ctx, "content", f, blob.Media)
		if err != nil {
			return nil, err
		}
		oldKey = c.BlobKey
		c.BlobKey, c.FileURL = key, url
	}
	c.UpdatedAt = s.now()

	if err := s.Store.Contents().Replace(ctx, c); err != nil {
		if f != nil {
			s.removeBlob(ctx, c.BlobKey)
		}
		return nil, dbErr(err, errs.ErrNotFound, "failed to update content", zap.String("contentID", id.Hex()))
	}
	s.removeBlob(ctx, oldKey)
	return c, nil
}

func (s *ContentService) Delete(ctx context.Context, actor *Actor, id primitive.ObjectID) error {
	c, err := s.editable(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.Store.Contents().Delete(ctx, c.ID); err != nil {
		return dbErr(err, errs.ErrNotFound, "failed to delete content", zap.String("contentID", id.Hex()))
	}
	s.removeBlob(ctx, c.BlobKey)
	return nil
}
