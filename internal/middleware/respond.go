package middleware

import (
	"encoding/json"
	"net/http"

	"imaginify/internal/apperror"
)

// WriteError writes err as {"error", "code"} plus any extra fields. Errors
// that are not *apperror.Error are reported as internal errors without
// leaking their text.
func WriteError(w http.ResponseWriter, err error, extra map[string]string) {
	status := http.StatusInternalServerError
	body := map[string]string{
		"error": "internal server error",
		"code":  apperror.CodeInternal,
	}
	if ae, ok := apperror.As(err); ok {
		status = ae.StatusCode
		body["error"] = ae.Message
		body["code"] = ae.Code
	}
	for k, v := range extra {
		body[k] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
