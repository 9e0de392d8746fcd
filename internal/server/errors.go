package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/smallbiznis/schoolbilling/internal/apperror"
)

const (
	errorTypeNotFound         = "not_found"
	errorTypeAlreadyExists    = "already_exists"
	errorTypeInvalidOperation = "invalid_operation"
	errorTypeValidation       = "validation_error"
	errorTypeInvalidRequest   = "invalid_request"
	errorTypeUnauthorized     = "unauthorized"
	errorTypeForbidden        = "forbidden"
	errorTypeRateLimited      = "rate_limited"
	errorTypeInternal         = "internal_error"
)

var (
	ErrUnauthorized    = errors.New("missing_api_key")
	ErrForbidden       = errors.New("invalid_api_key")
	ErrTooManyRequests = errors.New("rate_limited")
	ErrInvalidID       = errors.New("invalid_id")
)

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Field   string            `json:"field,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// requestError marks a failure to read the request itself: malformed JSON,
// bad query values or path ids.
type requestError struct {
	message string
	fields  map[string]string
	cause   error
}

func (e *requestError) Error() string { return e.message }

func (e *requestError) Unwrap() error { return e.cause }

func invalidRequest(message string, cause error) error {
	return &requestError{message: message, cause: cause}
}

func invalidField(field, message string) error {
	return &requestError{message: message, fields: map[string]string{field: message}}
}

// bindError turns a gin binding failure into a request error, keeping the
// per-field validator messages when there are any.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[snakeCase(fe.Field())] = validationMessage(fe)
		}
		return &requestError{message: "Request validation failed", fields: fields, cause: err}
	}
	return invalidRequest("Malformed request body", err)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "is invalid"
	}
}

// ErrorHandlingMiddleware renders the last error attached to the context
// when no handler has written a response.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		status, payload := mapError(c.Errors.Last().Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

// AbortWithError records err for the logging middleware and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    errorTypeInvalidRequest,
			Message: reqErr.message,
			Errors:  reqErr.fields,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{Type: errorTypeUnauthorized, Message: "API key required"}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{Type: errorTypeForbidden, Message: "Invalid API key"}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{Type: errorTypeRateLimited, Message: "Too many requests"}
	case errors.Is(err, ErrInvalidID):
		return http.StatusBadRequest, errorPayload{Type: errorTypeInvalidRequest, Message: "Invalid id"}
	}

	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, errorPayload{Type: errorTypeInternal, Message: "Internal server error"}
	}

	switch appErr.Kind {
	case apperror.KindNotFound:
		return http.StatusNotFound, errorPayload{Type: errorTypeNotFound, Message: appErr.Message}
	case apperror.KindAlreadyExists:
		return http.StatusConflict, errorPayload{Type: errorTypeAlreadyExists, Message: appErr.Message, Field: appErr.Field}
	case apperror.KindInvalidOperation:
		return http.StatusBadRequest, errorPayload{Type: errorTypeInvalidOperation, Message: appErr.Message}
	case apperror.KindValidation:
		return http.StatusBadRequest, errorPayload{Type: errorTypeValidation, Message: appErr.Message, Field: appErr.Field}
	default:
		return http.StatusInternalServerError, errorPayload{Type: errorTypeInternal, Message: appErr.Message}
	}
}

// classifyErrorForLog labels errors for the request log line.
func classifyErrorForLog(err error) string {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return errorTypeInvalidRequest
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return errorTypeUnauthorized
	case errors.Is(err, ErrForbidden):
		return errorTypeForbidden
	case errors.Is(err, ErrTooManyRequests):
		return errorTypeRateLimited
	case errors.Is(err, ErrInvalidID):
		return errorTypeInvalidRequest
	}
	if kind := apperror.KindOf(err); kind != "" {
		return string(kind)
	}
	return errorTypeInternal
}

func snakeCase(name string) string {
	out := make([]byte, 0, len(name)+4)
	for i := 0; i < len(name); i++ {
		ch := name[i]
		if ch >= 'A' && ch <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			ch += 'a' - 'A'
		}
		out = append(out, ch)
	}
	return string(out)
}
