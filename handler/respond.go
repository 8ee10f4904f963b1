package handler

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"eduplatform-backend/blob"
	"eduplatform-backend/errs"
	"eduplatform-backend/jwt"
	"eduplatform-backend/service"
)

const maxJSONBody = 1 << 20

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

var statuses = map[error]int{
	errs.ErrEmailRequired:          http.StatusBadRequest,
	errs.ErrPasswordRequired:       http.StatusBadRequest,
	errs.ErrInvalidPage:            http.StatusBadRequest,
	errs.ErrInvalidID:              http.StatusBadRequest,
	errs.ErrValidation:             http.StatusBadRequest,
	errs.ErrBadRequest:             http.StatusBadRequest,
	errs.ErrInvalidResetToken:      http.StatusBadRequest,
	errs.ErrWrongPassword:          http.StatusBadRequest,
	errs.ErrInvalidTarget:          http.StatusBadRequest,
	errs.ErrReasonRequired:         http.StatusBadRequest,
	errs.ErrInvalidEmailOrPassword: http.StatusUnauthorized,
	errs.ErrJWT:                    http.StatusUnauthorized,
	errs.ErrTokenExpired:           http.StatusUnauthorized,
	errs.ErrUnauthorized:           http.StatusUnauthorized,
	errs.ErrPaymentRequired:        http.StatusPaymentRequired,
	errs.ErrSubscriptionExpired:    http.StatusPaymentRequired,
	errs.ErrQuotaExceeded:          http.StatusPaymentRequired,
	errs.ErrForbidden:              http.StatusForbidden,
	errs.ErrAccountDisabled:        http.StatusForbidden,
	errs.ErrNoSchool:               http.StatusForbidden,
	errs.ErrNotStudent:             http.StatusForbidden,
	errs.ErrMentorNotVerified:      http.StatusForbidden,
	errs.ErrNotMember:              http.StatusForbidden,
	errs.ErrCannotDeleteSelf:       http.StatusForbidden,
	errs.ErrNotFound:               http.StatusNotFound,
	errs.ErrCategoryNotFound:       http.StatusNotFound,
	errs.ErrAlreadyExists:          http.StatusConflict,
	errs.ErrAlreadyPaid:            http.StatusConflict,
	errs.ErrDuplicateTransaction:   http.StatusConflict,
	errs.ErrAlreadyReviewed:        http.StatusConflict,
	errs.ErrCategoryExists:         http.StatusConflict,
	errs.ErrChallengeClosed:        http.StatusConflict,
	errs.ErrAlreadyCompleted:       http.StatusConflict,
	errs.ErrCommunityExists:        http.StatusConflict,
	errs.ErrOwnerCantLeave:         http.StatusConflict,
	errs.ErrStagingExpired:         http.StatusGone,
	errs.ErrFileTooLarge:           http.StatusRequestEntityTooLarge,
	errs.ErrUnsupportedFile:        http.StatusUnsupportedMediaType,
	errs.ErrRateLimited:            http.StatusTooManyRequests,
}

func statusOf(err error) int {
	for target, status := range statuses {
		if errors.Is(err, target) {
			return status
		}
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{Error: err.Error()}

	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		body.Error = errs.ErrValidation.Error()
		body.Fields = ve.Fields
	}

	if status == http.StatusInternalServerError {
		if !errs.Known(err) {
			body.Error = "internal error"
		}
		requestLogger(r).Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

func writeNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errs.ErrFileTooLarge
		}
		return errs.ErrBadRequest
	}
	if dec.More() {
		return errs.ErrBadRequest
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

// parseMultipart bounds the request body to one upload plus form fields.
func parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, blob.MaxUploadSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxJSONBody); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return errs.ErrFileTooLarge
		}
		return errs.ErrBadRequest
	}
	return nil
}

// formFile returns the named upload, or nil when the part is absent.
func formFile(r *http.Request, name string) (*blob.File, error) {
	f, header, err := r.FormFile(name)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.ErrBadRequest
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, blob.MaxUploadSize+1))
	if err != nil {
		return nil, errs.ErrBadRequest
	}
	if len(data) > blob.MaxUploadSize {
		return nil, errs.ErrFileTooLarge
	}
	return &blob.File{Name: header.Filename, Data: data}, nil
}

// decodeWithFile accepts either a JSON body or a multipart form with a JSON
// "metadata" field and an optional "file" part.
func decodeWithFile(w http.ResponseWriter, r *http.Request, v interface{}) (*blob.File, error) {
	if !isMultipart(r) {
		return nil, decode(w, r, v)
	}
	if err := parseMultipart(w, r); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(strings.NewReader(r.FormValue("metadata")))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return nil, errs.ErrBadRequest
	}
	return formFile(r, "file")
}

func requireFile(w http.ResponseWriter, r *http.Request) (*blob.File, error) {
	if !isMultipart(r) {
		return nil, errs.ErrBadRequest
	}
	if err := parseMultipart(w, r); err != nil {
		return nil, err
	}
	f, err := formFile(r, "file")
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, requiredField("file")
	}
	return f, nil
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		return primitive.NilObjectID, errs.ErrInvalidID
	}
	return id, nil
}

func page(r *http.Request) (service.Page, error) {
	var p service.Page
	q := r.URL.Query()

	for name, dst := range map[string]*int64{"skip": &p.Skip, "limit": &p.Limit} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 0 {
			return p, errs.ErrInvalidPage
		}
		*dst = n
	}
	return p, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, errs.NewValidationError(map[string]string{name: name + " must be true or false"})
	}
	return &b, nil
}

func actor(r *http.Request) (*service.Actor, error) {
	claims, ok := jwt.GetClaimsFromCtx(r.Context())
	if !ok {
		return nil, errs.ErrUnauthorized
	}
	return service.ActorFromClaims(claims)
}

func requiredField(name string) error {
	return errs.NewValidationError(map[string]string{name: "this field is required"})
}
