package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"eduplatform-backend/entity"
	"eduplatform-backend/errs"
	"eduplatform-backend/log"
	"eduplatform-backend/mail"
	"eduplatform-backend/metrics"
	"eduplatform-backend/store"
)

const statusCompleted = "completed"

// TransactionService records payments that were already confirmed by the
// payment provider and applies their effect to the school or student.
type TransactionService struct {
	*Deps
	onboarding *SchoolOnboardingService
}

type CreateTransactionInput struct {
	Type          string `json:"type" validate:"required,oneof=subscription tier registration"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Currency      string `json:"currency" validate:"required,len=3,alpha"`
	PaymentMethod string `json:"payment_method" validate:"required,oneof=card bank_transfer mobile_money cash"`
	Reference     string `json:"reference" validate:"required,max=100"`
	SchoolID      string `json:"school_id" validate:"omitempty,objectid"`
	StudentID     string `json:"student_id" validate:"omitempty,objectid"`
	TempStudentID string `json:"temp_student_id" validate:"omitempty,objectid"`
	Seats         int64  `json:"seats" validate:"gte=0,lte=100000"`
	Months        int64  `json:"months" validate:"gte=0,lte=60"`
}

type TransactionQuery struct {
	Type     string
	SchoolID string
	Page
}

func addMonths(t time.Time, months int64) time.Time {
	return t.AddDate(0, int(months), 0)
}

func formatAmount(amount int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", amount/100, amount%100, currency)
}

func (s *TransactionService) Create(ctx context.Context, actor *Actor, in CreateTransactionInput) (*entity.Transaction, error) {
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	in.Reference = strings.TrimSpace(in.Reference)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	tx := &entity.Transaction{
		ID:            primitive.NewObjectID(),
		Type:          entity.TransactionType(in.Type),
		Amount:        in.Amount,
		Currency:      in.Currency,
		PaymentMethod: entity.PaymentMethod(in.PaymentMethod),
		Reference:     in.Reference,
		Status:        statusCompleted,
		Seats:         in.Seats,
		Months:        in.Months,
		CreatedBy:     actor.ID,
		CreatedAt:     s.now(),
	}

	switch actor.Role {
	case entity.RoleSchoolAdmin, entity.RoleSuperAdmin:
		return s.createForSchool(ctx, actor, in, tx)
	case entity.RoleParent:
		return s.createForParent(ctx, actor, in, tx)
	}
	return nil, errs.ErrForbidden
}

func (s *TransactionService) insert(ctx context.Context, tx *entity.Transaction) error {
	err := s.Store.Transactions().Create(ctx, tx)
	if errors.Is(err, store.ErrDuplicate) {
		return errs.ErrDuplicateTransaction
	}
	return err
}

func (s *TransactionService) createForSchool(ctx context.Context, actor *Actor, in CreateTransactionInput, tx *entity.Transaction) (*entity.Transaction, error) {
	if in.StudentID != "" || in.TempStudentID != "" {
		return nil, errs.ErrInvalidTarget
	}

	var schoolID primitive.ObjectID
	if actor.SuperAdmin() {
		if in.SchoolID == "" {
			return nil, errs.ErrInvalidTarget
		}
		schoolID, _ = primitive.ObjectIDFromHex(in.SchoolID)
	} else {
		if actor.SchoolID == nil {
			return nil, errs.ErrNoSchool
		}
		schoolID = *actor.SchoolID
		if in.SchoolID != "" && in.SchoolID != schoolID.Hex() {
			return nil, errs.ErrForbidden
		}
	}

	school, err := s.Store.Schools().Get(ctx, schoolID)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load school", zap.String("schoolID", schoolID.Hex()))
	}
	tx.SchoolID = &school.ID

	payment := entity.SchoolPayment{TransactionID: tx.ID}
	now := tx.CreatedAt
	switch tx.Type {
	case entity.TransactionRegistration:
		if school.Paid() {
			return nil, errs.ErrAlreadyPaid
		}
		if in.Months < 1 {
			return nil, fieldError("months", "months must be at least 1")
		}
		to := addMonths(now, in.Months)
		payment.MarkCompleted = true
		payment.Seats = in.Seats
		payment.SubscriptionTo = &to
	case entity.TransactionTier:
		if !school.Paid() {
			return nil, errs.ErrPaymentRequired
		}
		if in.Seats < 1 {
			return nil, fieldError("seats", "seats must be at least 1")
		}
		payment.Seats = in.Seats
	case entity.TransactionSubscription:
		if !school.Paid() {
			return nil, errs.ErrPaymentRequired
		}
		if in.Months < 1 {
			return nil, fieldError("months", "months must be at least 1")
		}
		to := addMonths(laterOf(now, school.SubscriptionExpiresAt), in.Months)
		payment.SubscriptionTo = &to
	}

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.insert(ctx, tx); err != nil {
			return err
		}
		err := s.Store.Schools().ApplyPayment(ctx, school.ID, payment)
		if errors.Is(err, store.ErrConflict) {
			return errs.ErrAlreadyPaid
		}
		return err
	})
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to record transaction", zap.String("schoolID", school.ID.Hex()))
	}

	logger := log.Logger.With(zap.String("schoolID", school.ID.Hex()), zap.String("transactionID", tx.ID.Hex()))
	logger.Info("school transaction recorded", zap.String("type", string(tx.Type)))
	metrics.RecordTransaction(string(tx.Type), "school")

	if tx.Type == entity.TransactionRegistration {
		if err := s.onboarding.DeliverCredentials(ctx, school); err != nil {
			logger.Error("school credentials not delivered", zap.Error(err))
		}
	}

	s.receipt(ctx, school.Email, school.Name, tx)
	return tx, nil
}

func (s *TransactionService) createForParent(ctx context.Context, actor *Actor, in CreateTransactionInput, tx *entity.Transaction) (*entity.Transaction, error) {
	if in.SchoolID != "" {
		return nil, errs.ErrInvalidTarget
	}
	if in.Months < 1 {
		return nil, fieldError("months", "months must be at least 1")
	}

	parent, err := s.getUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	tx.ParentID = &parent.ID
	now := tx.CreatedAt

	switch tx.Type {
	case entity.TransactionRegistration:
		if in.TempStudentID == "" || in.StudentID != "" {
			return nil, errs.ErrInvalidTarget
		}
		tempID, _ := primitive.ObjectIDFromHex(in.TempStudentID)
		return s.registerChild(ctx, parent, tempID, tx, addMonths(now, in.Months))
	case entity.TransactionSubscription:
		if in.StudentID == "" || in.TempStudentID != "" {
			return nil, errs.ErrInvalidTarget
		}
		studentID, _ := primitive.ObjectIDFromHex(in.StudentID)
		return s.renewChild(ctx, parent, studentID, tx, in.Months)
	}
	return nil, errs.ErrInvalidTarget
}

// registerChild turns a staged student into an account paid for by parent.
func (s *TransactionService) registerChild(ctx context.Context, parent *entity.User, tempID primitive.ObjectID, tx *entity.Transaction, until time.Time) (*entity.Transaction, error) {
	ts, err := s.Store.TempStudents().Get(ctx, tempID)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load staged student", zap.String("id", tempID.Hex()))
	}
	if ts.ParentID != parent.ID {
		return nil, errs.ErrNotFound
	}
	if ts.Expired(tx.CreatedAt) {
		return nil, errs.ErrStagingExpired
	}

	password, hash, err := newTemporaryPassword()
	if err != nil {
		return nil, err
	}

	student := &entity.User{
		ID:                    primitive.NewObjectID(),
		Email:                 ts.Email,
		Password:              hash,
		Role:                  entity.RoleStudent,
		ParentID:              &parent.ID,
		FirstName:             ts.FirstName,
		LastName:              ts.LastName,
		Grade:                 ts.Grade,
		IsActive:              true,
		MustChangePassword:    true,
		SubscriptionExpiresAt: &until,
		CreatedAt:             tx.CreatedAt,
		UpdatedAt:             tx.CreatedAt,
	}
	tx.StudentID = &student.ID

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.insert(ctx, tx); err != nil {
			return err
		}
		if err := s.Store.Users().Create(ctx, student); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return errs.ErrAlreadyExists
			}
			return err
		}
		return s.Store.TempStudents().Delete(ctx, ts.ID)
	})
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to register student", zap.String("userID", parent.ID.Hex()))
	}

	metrics.RecordTransaction(string(tx.Type), "parent")
	metrics.RecordOnboarding("student")
	log.Logger.Info("student registered by parent", zap.String("userID", parent.ID.Hex()),
		zap.String("studentID", student.ID.Hex()), zap.String("transactionID", tx.ID.Hex()))

	if err := s.notify(ctx, mail.TemplateAccountCredentials, parent.Email, "Your child's student account", mail.CredentialsData{
		Name:     student.FullName(),
		Email:    student.Email,
		Password: password,
		Role:     "student",
	}); err != nil {
		log.Logger.Warn("student credentials not sent", zap.String("studentID", student.ID.Hex()))
	}

	s.receipt(ctx, parent.Email, parent.FullName(), tx)
	return tx, nil
}

func (s *TransactionService) renewChild(ctx context.Context, parent *entity.User, studentID primitive.ObjectID, tx *entity.Transaction, months int64) (*entity.Transaction, error) {
	student, err := s.getUser(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student.Role != entity.RoleStudent || student.ParentID == nil || *student.ParentID != parent.ID {
		return nil, errs.ErrNotStudent
	}

	until := addMonths(laterOf(tx.CreatedAt, student.SubscriptionExpiresAt), months)
	student.SubscriptionExpiresAt = &until
	student.UpdatedAt = tx.CreatedAt
	tx.StudentID = &student.ID

	err = s.Store.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.insert(ctx, tx); err != nil {
			return err
		}
		return s.Store.Users().Replace(ctx, student)
	})
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to renew student", zap.String("studentID", studentID.Hex()))
	}

	metrics.RecordTransaction(string(tx.Type), "parent")
	s.receipt(ctx, parent.Email, parent.FullName(), tx)
	return tx, nil
}

func (s *TransactionService) receipt(ctx context.Context, to, name string, tx *entity.Transaction) {
	if to == "" {
		return
	}
	if err := s.notify(ctx, mail.TemplatePaymentReceipt, to, "Payment receipt "+tx.Reference, mail.PaymentReceiptData{
		Name:      name,
		Reference: tx.Reference,
		Type:      string(tx.Type),
		Amount:    formatAmount(tx.Amount, tx.Currency),
		Method:    strings.ReplaceAll(string(tx.PaymentMethod), "_", " "),
		Date:      tx.CreatedAt,
	}); err != nil {
		log.Logger.Warn("receipt not sent", zap.String("transactionID", tx.ID.Hex()))
	}
}

func (s *TransactionService) canView(actor *Actor, tx *entity.Transaction) bool {
	switch {
	case actor.SuperAdmin():
		return true
	case tx.SchoolID != nil && actor.AdminOf(*tx.SchoolID):
		return true
	case tx.ParentID != nil && *tx.ParentID == actor.ID:
		return true
	}
	return false
}

func (s *TransactionService) Get(ctx context.Context, actor *Actor, id primitive.ObjectID) (*entity.Transaction, error) {
	tx, err := s.Store.Transactions().Get(ctx, id)
	if err != nil {
		return nil, dbErr(err, errs.ErrNotFound, "failed to load transaction", zap.String("transactionID", id.Hex()))
	}
	if !s.canView(actor, tx) {
		return nil, errs.ErrForbidden
	}
	return tx, nil
}

func (s *TransactionService) List(ctx context.Context, actor *Actor, q TransactionQuery) ([]*entity.Transaction, error) {
	f := store.TransactionFilter{Type: entity.TransactionType(q.Type)}
	switch f.Type {
	case "", entity.TransactionRegistration, entity.TransactionTier, entity.TransactionSubscription:
	default:
		return nil, fieldError("type", "must be subscription, tier or registration")
	}

	schoolID, err := parseOptionalID(q.SchoolID)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case entity.RoleSuperAdmin:
		f.SchoolID = schoolID
	case entity.RoleSchoolAdmin:
		if actor.SchoolID == nil {
			return nil, errs.ErrNoSchool
		}
		f.SchoolID = actor.SchoolID
	case entity.RoleParent:
		f.ParentID = &actor.ID
	default:
		return nil, errs.ErrForbidden
	}

	txs, err := s.Store.Transactions().List(ctx, f, q.store())
	if err != nil {
		return nil, dbErr(err, nil, "failed to list transactions")
	}
	return txs, nil
}
