package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"imaginify/internal/apperror"
	"imaginify/internal/middleware"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Router is the subset of http.ServeMux the handlers register on.
type Router interface {
	Handle(pattern string, handler http.Handler)
}

// Middleware wraps a handler.
type Middleware func(http.Handler) http.Handler

// Limiter returns the rate limiting middleware for a route.
type Limiter func(route string) Middleware

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError logs server side failures and writes the error response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if apperror.StatusCode(err) >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	}
	middleware.WriteError(w, err, nil)
}

// decodeJSON reads a single JSON object of at most 1MB, rejecting unknown
// fields, and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, validate *validator.Validate, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.New("request body too large", http.StatusRequestEntityTooLarge, apperror.CodeValidation)
		}
		return apperror.Validation("invalid JSON payload: " + err.Error())
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return apperror.Validation("request body must contain a single JSON object")
	}
	if err := validate.Struct(v); err != nil {
		return apperror.Validation("validation failed: " + validationMessage(err))
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// subject returns the authenticated caller, writing a 401 when absent.
func subject(w http.ResponseWriter, r *http.Request) (string, bool) {
	sub, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, apperror.Unauthenticated("user not found in context"), nil)
		return "", false
	}
	return sub, true
}

// queryInt parses an optional integer query parameter. Absent yields 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.Validation(fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}
