package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/FieldInventory/internal/auth"
	"github.com/atinyakov/FieldInventory/internal/middleware"
	"github.com/atinyakov/FieldInventory/internal/models"
)

// ErrorBody is the payload of every failed request.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a stable machine code and a human message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const genericInternalMessage = "internal server error"

// classify maps an error to its HTTP status and stable code. Order matters:
// the specific authentication failures wrap ErrUnauthenticated.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, models.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials"
	case errors.Is(err, models.ErrIdentityInactive):
		return http.StatusUnauthorized, "inactive_identity"
	case errors.Is(err, models.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrDuplicateKey):
		return http.StatusConflict, "duplicate_key"
	case errors.Is(err, models.ErrAlreadyExists):
		return http.StatusConflict, "already_exists"
	case errors.Is(err, models.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// errorWriter returns the ErrorWriter used by handlers and middleware.
// Internal errors are logged in full and answered with a generic message.
func errorWriter(log *zap.Logger) middleware.ErrorWriter {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		status, code := classify(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			fields := []zap.Field{
				zap.Error(err),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())),
			}
			if u, ok := auth.UserFromContext(r.Context()); ok {
				fields = append(fields, zap.String("actor", u.Username))
			}
			log.Error("request failed", fields...)
			msg = genericInternalMessage
		}
		if status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		}
		writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: msg}})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads exactly one JSON value from the body into dst. Unknown
// fields, trailing data and oversized bodies are validation errors.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return models.Validationf("request body is empty")
		case errors.As(err, &maxErr):
			return models.Validationf("request body exceeds %d bytes", maxErr.Limit)
		case errors.As(err, &typeErr):
			return models.Validationf("field %q has the wrong type", typeErr.Field)
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			return models.Validationf("unknown field %s", strings.TrimPrefix(err.Error(), "json: unknown field "))
		default:
			return models.Validationf("malformed JSON: %v", err)
		}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return models.Validationf("request body must contain a single JSON object")
	}
	return nil
}

// currentUser returns the identity put in the context by the auth middleware.
func currentUser(r *http.Request) (*models.User, error) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		return nil, models.ErrUnauthenticated
	}
	return u, nil
}

func attachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
