package errs

import (
	"errors"
	"sort"
	"strings"
)

var sentinels []error

func newErr(msg string) error {
	err := errors.New(msg)
	sentinels = append(sentinels, err)
	return err
}

var (
	ErrEmailRequired          = newErr("E0001: email is required")
	ErrPasswordRequired       = newErr("E0002: password is required")
	ErrInvalidEmailOrPassword = newErr("E0003: invalid email or password")
	ErrDatabase               = newErr("E0004: database error")
	ErrCryptographic          = newErr("E0005: cryptographic failure")
	ErrJWT                    = newErr("E0006: JWT failure")
	ErrAlreadyExists          = newErr("E0010: user already registered")
	ErrTokenExpired           = newErr("E0011: token expired")
	ErrUnauthorized           = newErr("E0012: unauthorized")
	ErrInvalidPage            = newErr("E0013: invalid page")
	ErrNotFound               = newErr("E0014: not found")
	ErrInvalidID              = newErr("E0015: invalid ID")
	ErrNoSchool               = newErr("E0016: account not attached to a school")
	ErrNotStudent             = newErr("E0017: not a student of this account")
	ErrMail                   = newErr("E0018: error sending email")
	ErrInvalidResetToken      = newErr("E0019: reset token invalid")
	ErrQueue                  = newErr("E0020: queue error")
	ErrValidation             = newErr("E0021: validation failed")
	ErrForbidden              = newErr("E0022: forbidden")
	ErrAccountDisabled        = newErr("E0023: account disabled")
	ErrWrongPassword          = newErr("E0024: current password incorrect")
	ErrPaymentRequired        = newErr("E0025: school payment not completed")
	ErrQuotaExceeded          = newErr("E0026: student quota exceeded")
	ErrSubscriptionExpired    = newErr("E0027: subscription expired")
	ErrAlreadyPaid            = newErr("E0028: school registration already paid")
	ErrDuplicateTransaction   = newErr("E0029: transaction reference already recorded")
	ErrInvalidTarget          = newErr("E0030: invalid transaction target")
	ErrStagingExpired         = newErr("E0031: pending registration expired")
	ErrAlreadyReviewed        = newErr("E0032: credential already reviewed")
	ErrReasonRequired         = newErr("E0033: rejection reason is required")
	ErrMentorNotVerified      = newErr("E0034: mentor not verified")
	ErrCategoryExists         = newErr("E0035: category already exists")
	ErrCategoryNotFound       = newErr("E0036: category not found")
	ErrChallengeClosed        = newErr("E0037: challenge not open")
	ErrAlreadyCompleted       = newErr("E0038: challenge already completed")
	ErrCommunityExists        = newErr("E0039: community already exists")
	ErrNotMember              = newErr("E0040: not a community member")
	ErrOwnerCantLeave         = newErr("E0041: owner can't leave")
	ErrUnsupportedFile        = newErr("E0042: unsupported file type")
	ErrFileTooLarge           = newErr("E0043: file too large")
	ErrStorage                = newErr("E0044: storage error")
	ErrCache                  = newErr("E0045: cache error")
	ErrRateLimited            = newErr("E0046: too many requests")
	ErrBadRequest             = newErr("E0047: malformed request")
	ErrCannotDeleteSelf       = newErr("E0048: cannot delete own account")
)

// Known reports whether err is or wraps one of the coded errors above.
func Known(err error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// ValidationError reports per-field failures, keyed by JSON field name.
type ValidationError struct {
	Fields map[string]string
}

func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
