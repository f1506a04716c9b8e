package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ariefcatur/go-shop-core/internal/apperr"
	"github.com/ariefcatur/go-shop-core/internal/format"
	"github.com/ariefcatur/go-shop-core/internal/validation"
)

const maxErrorMessage = 500

type meta struct {
	Version string `json:"version"`
	Format  string `json:"format"`
}

type successBody struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
	Meta   meta   `json:"meta"`
}

type errorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, successBody{
		Status: "success",
		Data:   data,
		Meta:   meta{Version: "1.0", Format: "json"},
	})
}

func writeErrorCode(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: format.Truncate(msg, maxErrorMessage)}})
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidTransition, apperr.KindInsufficientStock:
		return http.StatusConflict
	case apperr.KindValidation:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError renders domain errors with their code; anything else is a 500
// with a generic message and the detail goes to the log.
func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		log.Error("request failed", zap.Error(err))
		writeErrorCode(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	code := ae.Code
	if code == "" {
		code = string(ae.Kind)
	}
	body := errorDetail{Code: code, Message: format.Truncate(ae.Message, maxErrorMessage)}
	var ve validatorv10.ValidationErrors
	if errors.As(ae.Err, &ve) {
		body.Fields = validation.FieldErrors(ve)
	}
	writeJSON(w, statusFor(ae.Kind), errorBody{Error: body})
}

// decode binds the JSON body into out and validates its tags.
func decode(r *http.Request, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return apperr.Wrap(apperr.KindValidation, "INVALID_JSON", "invalid json body", err)
	}
	if err := validation.Struct(out); err != nil {
		return apperr.Wrap(apperr.KindValidation, "INVALID_REQUEST", "request failed validation", err)
	}
	return nil
}
