package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"keyrelay/internal/domain"
)

type ApiError struct {
	// Code is the HTTP status code
	Code int `json:"code"`
	// Message is the error message
	Message string `json:"message"`
}

func ApiErrorf(c *gin.Context, code int, format string, args ...interface{}) ApiError {
	ar := ApiError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
	c.AbortWithStatusJSON(code, ar)
	return ar
}

func ValidatorErrorToUser(err validator.ValidationErrors) string {
	var errorMessages []string
	for _, err := range err {
		switch err.Tag() {
		case "required":
			errorMessages = append(errorMessages, fmt.Sprintf("%s is required", err.Field()))
		case "max":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be at most %s", err.Field(), err.Param()))
		case "min":
			errorMessages = append(errorMessages, fmt.Sprintf("%s must be at least %s", err.Field(), err.Param()))
		default:
			errorMessages = append(errorMessages, fmt.Sprintf("validation failed on field %s", err.Field()))
		}
	}
	return strings.Join(errorMessages, ". ")
}

// statusFor maps a service error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSignature), errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConcurrentUpdate),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	// ErrMissingSignedPreKey lands here: the stored record is broken, not the request.
	return http.StatusInternalServerError
}

// abortWithError writes err as an ApiError. Server-side failures are logged
// and reported without detail.
func (a *KeysApi) abortWithError(c *gin.Context, err error) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.logError(c, err)
		ApiErrorf(c, code, "%s", http.StatusText(code))
		return
	}
	ApiErrorf(c, code, "%s", err.Error())
}

// bindJSON decodes and validates the request body into v. It writes the
// error response itself and reports whether the handler should continue.
func (a *KeysApi) bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := a.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			ApiErrorf(c, http.StatusBadRequest, "%s", ValidatorErrorToUser(verrs))
			return false
		}
		ApiErrorf(c, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
