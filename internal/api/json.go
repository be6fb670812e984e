package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/roach88/logbase/internal/entry"
	"github.com/roach88/logbase/internal/rowstore"
)

const maxBodyBytes = 1 << 20

type resultEnvelope struct {
	Result any `json:"result"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// Error codes for failures that are not entry codes.
const (
	codeTimeout     = "timeout"
	codeUnavailable = "unavailable"
	codeInternal    = "internal"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, resultEnvelope{Result: v})
}

// writeError maps err onto a status code and the error envelope.
func (app *Application) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		FromContext(r.Context()).Tag("error", err.Error())
	}
	if status == http.StatusInternalServerError {
		app.logger.Error("unhandled error", zap.Error(err), zap.String("path", r.URL.Path))
	}
	writeJSON(w, status, errorEnvelope{Error: body})
}

func classify(err error) (int, errorBody) {
	var e *entry.Error
	if errors.As(err, &e) {
		body := errorBody{Code: string(e.Code), Message: e.Message, Field: e.Field}
		switch e.Code {
		case entry.CodeNotFound:
			return http.StatusNotFound, body
		default:
			return http.StatusBadRequest, body
		}
	}

	switch {
	case errors.Is(err, rowstore.ErrTimeout):
		return http.StatusGatewayTimeout, errorBody{Code: codeTimeout, Message: "storage timed out"}
	case errors.Is(err, rowstore.ErrUnavailable):
		return http.StatusServiceUnavailable, errorBody{Code: codeUnavailable, Message: "storage unavailable"}
	default:
		return http.StatusInternalServerError, errorBody{Code: codeInternal, Message: "internal error"}
	}
}

// readJSON decodes a single JSON object from the request body.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return entry.NewValidationError("", fmt.Sprintf("malformed request body: %v", err))
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return entry.NewValidationError("", "request body must contain a single JSON object")
	}
	return nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct validation and converts the first failure to a
// validation error naming the JSON field.
func (app *Application) check(v any) error {
	err := app.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return entry.NewValidationError("", err.Error())
	}
	fe := verrs[0]
	return entry.NewValidationError(fe.Field(), describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must have at least %s items", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}
