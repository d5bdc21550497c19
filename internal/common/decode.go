package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	validator "github.com/go-playground/validator/v10"
)

// MaxBodyBytes caps request bodies decoded by DecodeJSON.
const MaxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validator returns the shared struct validator.
func Validator() *validator.Validate {
	return validate
}

// FieldError is one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// DecodeJSON reads a single JSON document into dst and validates it. Failures
// come back as *AppError with a 400 or 422 status.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return NewAppError("BAD_REQUEST", "request body is empty", http.StatusBadRequest, err)
		}
		return NewAppError("BAD_REQUEST", fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest, err)
	}
	if dec.More() {
		return NewAppError("BAD_REQUEST", "request body must hold a single JSON document", http.StatusBadRequest, nil)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]FieldError, 0, len(verrs))
			for _, fe := range verrs {
				field := fe.Namespace()
				if i := strings.Index(field, "."); i >= 0 {
					field = field[i+1:]
				}
				fields = append(fields, FieldError{Field: field, Rule: fe.Tag()})
			}
			return NewAppError("VALIDATION_FAILED", "request failed validation", http.StatusUnprocessableEntity, err).WithDetails(fields)
		}
		return NewAppError("VALIDATION_FAILED", err.Error(), http.StatusUnprocessableEntity, err)
	}
	return nil
}
