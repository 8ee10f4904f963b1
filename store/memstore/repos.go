package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"eduplatform-backend/entity"
	"eduplatform-backend/store"
)

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *entity.User) error {
	t := r.s.lock()
	defer r.s.unlock()
	if t.users.exists(func(v *entity.User) bool { return v.Email == u.Email }) {
		return store.ErrDuplicate
	}
	return t.users.insert(u)
}

func (r userRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.User, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.users.get(id)
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.users.first(func(v *entity.User) bool { return v.Email == email })
}

func (r userRepo) Replace(_ context.Context, u *entity.User) error {
	t := r.s.lock()
	defer r.s.unlock()
	if t.users.exists(func(v *entity.User) bool { return v.Email == u.Email && v.ID != u.ID }) {
		return store.ErrDuplicate
	}
	return t.users.replace(u)
}

func (r userRepo) SetVerified(_ context.Context, id primitive.ObjectID, verified bool, at time.Time) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.users.update(id, func(v *entity.User) error {
		v.IsVerified = verified
		v.UpdatedAt = at
		return nil
	})
}

func (r userRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.users.delete(id)
}

func (r userRepo) List(_ context.Context, f store.UserFilter, p store.Page) ([]*entity.User, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.users.find(func(v *entity.User) bool {
		switch {
		case f.Role != "" && v.Role != f.Role:
			return false
		case f.SchoolID != nil && !v.BelongsToSchool(*f.SchoolID):
			return false
		case f.ParentID != nil && (v.ParentID == nil || *v.ParentID != *f.ParentID):
			return false
		case f.Verified != nil && v.IsVerified != *f.Verified:
			return false
		case f.Search != "" && !containsFold(v.FirstName, f.Search) &&
			!containsFold(v.LastName, f.Search) && !containsFold(v.Email, f.Search):
			return false
		}
		return true
	})
	return paginate(rows, p), nil
}

type schoolRepo struct{ s *Store }

func (r schoolRepo) Create(_ context.Context, s *entity.School) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.schools.insert(s)
}

func (r schoolRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.School, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.schools.get(id)
}

func (r schoolRepo) Replace(_ context.Context, s *entity.School) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.schools.replace(s)
}

func (r schoolRepo) List(_ context.Context, f store.SchoolFilter, p store.Page) ([]*entity.School, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.schools.find(func(v *entity.School) bool {
		if f.PaymentStatus != "" && v.PaymentStatus != f.PaymentStatus {
			return false
		}
		return f.Search == "" || containsFold(v.Name, f.Search)
	})
	return paginate(rows, p), nil
}

func (r schoolRepo) ApplyPayment(_ context.Context, id primitive.ObjectID, payment entity.SchoolPayment) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.schools.update(id, func(v *entity.School) error {
		if payment.MarkCompleted {
			if v.PaymentStatus != entity.PaymentPending {
				return store.ErrConflict
			}
			v.PaymentStatus = entity.PaymentCompleted
		}
		if payment.SubscriptionTo != nil {
			to := *payment.SubscriptionTo
			v.SubscriptionExpiresAt = &to
			v.ExpiryNotified = false
		}
		v.StudentQuota += payment.Seats
		v.Transactions = append(v.Transactions, payment.TransactionID)
		v.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r schoolRepo) ReserveSeat(_ context.Context, id, studentID primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.schools.update(id, func(v *entity.School) error {
		if !v.Paid() || v.StudentQuota <= 0 {
			return store.ErrConflict
		}
		v.StudentQuota--
		if !hasID(v.Students, studentID) {
			v.Students = append(v.Students, studentID)
		}
		v.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r schoolRepo) ReleaseSeat(_ context.Context, id, studentID primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.schools.update(id, func(v *entity.School) error {
		if !hasID(v.Students, studentID) {
			return store.ErrNotFound
		}
		v.StudentQuota++
		v.Students = withoutID(v.Students, studentID)
		v.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r schoolRepo) ListLapsed(_ context.Context, now time.Time) ([]*entity.School, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.schools.find(func(v *entity.School) bool {
		return v.Paid() && !v.ExpiryNotified &&
			v.SubscriptionExpiresAt != nil && !v.SubscriptionExpiresAt.After(now)
	})
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SubscriptionExpiresAt.Before(*rows[j].SubscriptionExpiresAt)
	})
	return rows, nil
}

func (r schoolRepo) MarkExpiryNotified(_ context.Context, id primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.schools.update(id, func(v *entity.School) error {
		v.ExpiryNotified = true
		return nil
	})
}

type transactionRepo struct{ s *Store }

func (r transactionRepo) Create(_ context.Context, tx *entity.Transaction) error {
	t := r.s.lock()
	defer r.s.unlock()
	if t.transactions.exists(func(v *entity.Transaction) bool { return v.Reference == tx.Reference }) {
		return store.ErrDuplicate
	}
	return t.transactions.insert(tx)
}

func (r transactionRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.Transaction, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.transactions.get(id)
}

func (r transactionRepo) List(_ context.Context, f store.TransactionFilter, p store.Page) ([]*entity.Transaction, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.transactions.find(func(v *entity.Transaction) bool {
		switch {
		case f.Type != "" && v.Type != f.Type:
			return false
		case f.SchoolID != nil && (v.SchoolID == nil || *v.SchoolID != *f.SchoolID):
			return false
		case f.ParentID != nil && (v.ParentID == nil || *v.ParentID != *f.ParentID):
			return false
		}
		return true
	})
	return paginate(rows, p), nil
}

type categoryRepo struct{ s *Store }

func (r categoryRepo) Create(_ context.Context, c *entity.Category) error {
	t := r.s.lock()
	defer r.s.unlock()
	if t.categories.exists(func(v *entity.Category) bool { return v.Slug == c.Slug }) {
		return store.ErrDuplicate
	}
	return t.categories.insert(c)
}

func (r categoryRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.Category, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.categories.get(id)
}

func (r categoryRepo) Replace(_ context.Context, c *entity.Category) error {
	t := r.s.lock()
	defer r.s.unlock()
	if t.categories.exists(func(v *entity.Category) bool { return v.Slug == c.Slug && v.ID != c.ID }) {
		return store.ErrDuplicate
	}
	return t.categories.replace(c)
}

func (r categoryRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.categories.delete(id)
}

func (r categoryRepo) List(_ context.Context, p store.Page) ([]*entity.Category, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return paginate(t.categories.find(nil), p), nil
}

type contentRepo struct{ s *Store }

func (r contentRepo) Create(_ context.Context, c *entity.Content) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.contents.insert(c)
}

func (r contentRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.Content, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.contents.get(id)
}

func (r contentRepo) Replace(_ context.Context, c *entity.Content) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.contents.replace(c)
}

func (r contentRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.contents.delete(id)
}

func (r contentRepo) List(_ context.Context, f store.ContentFilter, p store.Page) ([]*entity.Content, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.contents.find(func(v *entity.Content) bool {
		switch {
		case f.CategoryID != nil && !hasID(v.CategoryIDs, *f.CategoryID):
			return false
		case f.Type != "" && v.Type != f.Type:
			return false
		case f.CreatedBy != nil && v.CreatedBy != *f.CreatedBy:
			return false
		case f.Search != "" && !containsFold(v.Title, f.Search):
			return false
		case f.AllStates:
			return true
		case f.PublishedOr != nil:
			return v.Published || v.CreatedBy == *f.PublishedOr
		}
		return v.Published
	})
	return paginate(rows, p), nil
}

type challengeRepo struct{ s *Store }

func (r challengeRepo) Create(_ context.Context, c *entity.Challenge) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.challenges.insert(c)
}

func (r challengeRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.Challenge, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.challenges.get(id)
}

func (r challengeRepo) Replace(_ context.Context, c *entity.Challenge) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.challenges.replace(c)
}

func (r challengeRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.challenges.delete(id)
}

func (r challengeRepo) List(_ context.Context, f store.ChallengeFilter, p store.Page) ([]*entity.Challenge, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.challenges.find(func(v *entity.Challenge) bool {
		switch {
		case f.CategoryID != nil && !hasID(v.CategoryIDs, *f.CategoryID):
			return false
		case f.Difficulty != "" && v.Difficulty != f.Difficulty:
			return false
		case f.OpenAt != nil && !v.OpenAt(*f.OpenAt):
			return false
		}
		return true
	})
	return paginate(rows, p), nil
}

type completionRepo struct{ s *Store }

func (r completionRepo) Create(_ context.Context, c *entity.ChallengeCompletion) error {
	t := r.s.lock()
	defer r.s.unlock()
	if t.completions.exists(func(v *entity.ChallengeCompletion) bool {
		return v.UserID == c.UserID && v.ChallengeID == c.ChallengeID
	}) {
		return store.ErrDuplicate
	}
	return t.completions.insert(c)
}

func (r completionRepo) ListByChallenge(_ context.Context, challengeID primitive.ObjectID, p store.Page) ([]*entity.ChallengeCompletion, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.completions.find(func(v *entity.ChallengeCompletion) bool { return v.ChallengeID == challengeID })
	return paginate(rows, p), nil
}

func (r completionRepo) ListByUser(_ context.Context, userID primitive.ObjectID, p store.Page) ([]*entity.ChallengeCompletion, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.completions.find(func(v *entity.ChallengeCompletion) bool { return v.UserID == userID })
	return paginate(rows, p), nil
}

func (r completionRepo) DeleteByChallenge(_ context.Context, challengeID primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	t.completions.deleteWhere(func(v *entity.ChallengeCompletion) bool { return v.ChallengeID == challengeID })
	return nil
}

func (r completionRepo) Leaderboard(_ context.Context, limit int64) ([]*entity.LeaderboardEntry, error) {
	t := r.s.lock()
	defer r.s.unlock()
	if limit <= 0 || limit > store.MaxLimit {
		limit = store.DefaultLimit
	}

	byUser := map[primitive.ObjectID]*entity.LeaderboardEntry{}
	for _, c := range t.completions.rows {
		e, ok := byUser[c.UserID]
		if !ok {
			e = &entity.LeaderboardEntry{UserID: c.UserID}
			byUser[c.UserID] = e
		}
		e.Points += c.Score
		e.Completed++
	}

	out := make([]*entity.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].UserID.Hex() < out[j].UserID.Hex()
	})
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

type communityRepo struct{ s *Store }

func (r communityRepo) Create(_ context.Context, c *entity.Community) error {
	t := r.s.lock()
	defer r.s.unlock()
	if t.communities.exists(func(v *entity.Community) bool { return v.Name == c.Name }) {
		return store.ErrDuplicate
	}
	return t.communities.insert(c)
}

func (r communityRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.Community, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.communities.get(id)
}

func (r communityRepo) Replace(_ context.Context, c *entity.Community) error {
	t := r.s.lock()
	defer r.s.unlock()
	if t.communities.exists(func(v *entity.Community) bool { return v.Name == c.Name && v.ID != c.ID }) {
		return store.ErrDuplicate
	}
	return t.communities.replace(c)
}

func (r communityRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.communities.delete(id)
}

func (r communityRepo) List(_ context.Context, p store.Page) ([]*entity.Community, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return paginate(t.communities.find(nil), p), nil
}

func (r communityRepo) AddMember(_ context.Context, id, userID primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.communities.update(id, func(v *entity.Community) error {
		if !hasID(v.Members, userID) {
			v.Members = append(v.Members, userID)
		}
		v.UpdatedAt = time.Now().UTC()
		return nil
	})
}

func (r communityRepo) RemoveMember(_ context.Context, id, userID primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.communities.update(id, func(v *entity.Community) error {
		v.Members = withoutID(v.Members, userID)
		v.UpdatedAt = time.Now().UTC()
		return nil
	})
}

type postRepo struct{ s *Store }

func (r postRepo) Create(_ context.Context, p *entity.Post) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.posts.insert(p)
}

func (r postRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.Post, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.posts.get(id)
}

func (r postRepo) Replace(_ context.Context, p *entity.Post) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.posts.replace(p)
}

func (r postRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.posts.delete(id)
}

func (r postRepo) DeleteByCommunity(_ context.Context, communityID primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	t.posts.deleteWhere(func(v *entity.Post) bool {
		return v.CommunityID != nil && *v.CommunityID == communityID
	})
	return nil
}

func (r postRepo) List(_ context.Context, f store.PostFilter, p store.Page) ([]*entity.Post, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.posts.find(func(v *entity.Post) bool {
		switch {
		case f.CommunityID != nil && (v.CommunityID == nil || *v.CommunityID != *f.CommunityID):
			return false
		case f.AuthorID != nil && v.AuthorID != *f.AuthorID:
			return false
		case f.NoCommunity && v.CommunityID != nil:
			return false
		}
		return true
	})
	return paginate(rows, p), nil
}

func (r postRepo) Like(_ context.Context, id, userID primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.posts.update(id, func(v *entity.Post) error {
		if !hasID(v.Likes, userID) {
			v.Likes = append(v.Likes, userID)
		}
		return nil
	})
}

func (r postRepo) Unlike(_ context.Context, id, userID primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.posts.update(id, func(v *entity.Post) error {
		v.Likes = withoutID(v.Likes, userID)
		return nil
	})
}

type credentialRepo struct{ s *Store }

func (r credentialRepo) Create(_ context.Context, c *entity.MentorCredential) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.credentials.insert(c)
}

func (r credentialRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.MentorCredential, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.credentials.get(id)
}

func (r credentialRepo) List(_ context.Context, f store.CredentialFilter, p store.Page) ([]*entity.MentorCredential, error) {
	t := r.s.lock()
	defer r.s.unlock()
	rows := t.credentials.find(func(v *entity.MentorCredential) bool {
		if f.MentorID != nil && v.MentorID != *f.MentorID {
			return false
		}
		return f.Status == "" || v.Status == f.Status
	})
	return paginate(rows, p), nil
}

func (r credentialRepo) Review(_ context.Context, id primitive.ObjectID, rv entity.CredentialReview) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.credentials.update(id, func(v *entity.MentorCredential) error {
		if v.Status != entity.CredentialPending {
			return store.ErrConflict
		}
		by, at := rv.VerifiedBy, rv.ReviewedAt
		v.Status = rv.Status
		v.VerifiedBy = &by
		v.Reason = rv.Reason
		v.ReviewedAt = &at
		return nil
	})
}

type tempStudentRepo struct{ s *Store }

func (r tempStudentRepo) Create(_ context.Context, ts *entity.TempStudent) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.tempStudents.insert(ts)
}

func (r tempStudentRepo) Get(_ context.Context, id primitive.ObjectID) (*entity.TempStudent, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.tempStudents.get(id)
}

func (r tempStudentRepo) ListByParent(_ context.Context, parentID primitive.ObjectID) ([]*entity.TempStudent, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.tempStudents.find(func(v *entity.TempStudent) bool { return v.ParentID == parentID }), nil
}

func (r tempStudentRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	return t.tempStudents.delete(id)
}

type passwordResetRepo struct{ s *Store }

func (r passwordResetRepo) Create(_ context.Context, pr *entity.PasswordReset) error {
	t := r.s.lock()
	defer r.s.unlock()
	if t.passwordResets.exists(func(v *entity.PasswordReset) bool { return v.Token == pr.Token }) {
		return store.ErrDuplicate
	}
	return t.passwordResets.insert(pr)
}

func (r passwordResetRepo) GetByToken(_ context.Context, token string) (*entity.PasswordReset, error) {
	t := r.s.lock()
	defer r.s.unlock()
	return t.passwordResets.first(func(v *entity.PasswordReset) bool { return v.Token == token })
}

func (r passwordResetRepo) DeleteByUser(_ context.Context, userID primitive.ObjectID) error {
	t := r.s.lock()
	defer r.s.unlock()
	t.passwordResets.deleteWhere(func(v *entity.PasswordReset) bool { return v.UserID == userID })
	return nil
}
