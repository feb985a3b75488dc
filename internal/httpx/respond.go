// internal/httpx/respond.go
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"clubledger/internal/errs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Field  string `json:"field,omitempty"`
	Detail any    `json:"detail,omitempty"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// StatusOf maps an error kind to an HTTP status.
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest, "validation"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, errs.ErrDependency):
		return http.StatusServiceUnavailable, "dependency"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// Error writes err using its kind. Internal errors are logged and hidden.
func Error(w http.ResponseWriter, log *zap.Logger, err error) {
	ErrorWithDetail(w, log, err, nil)
}

// ErrorWithDetail is Error plus a structured detail payload.
func ErrorWithDetail(w http.ResponseWriter, log *zap.Logger, err error, detail any) {
	status, kind := StatusOf(err)
	body := ErrorBody{Error: err.Error(), Kind: kind, Detail: detail}
	var ve *errs.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
	}
	if status >= http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	JSON(w, status, body)
}

// Decode reads a JSON body into v and validates it.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Invalid("body", "%v", err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return errs.Invalid(strings.ToLower(verrs[0].Field()), "failed %q rule", verrs[0].Tag())
		}
		return errs.Invalid("body", "%v", err)
	}
	return nil
}

// UUIDParam parses a chi URL parameter as a uuid.
func UUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errs.Invalid(name, "not a valid id")
	}
	return id, nil
}
