package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gadsdencode/vybechex-sub000/internal/domain/errs"
)

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RateLimitError struct {
	Code          string    `json:"code"`
	Message       string    `json:"message"`
	RetryAfterSec int64     `json:"retry_after_sec"`
	ResetAt       time.Time `json:"reset_at"`
}

func Write(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Status maps a domain error onto its HTTP status.
func Status(err error) int {
	switch {
	case stderrors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case stderrors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case stderrors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case stderrors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case stderrors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case stderrors.Is(err, errs.ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteDomain renders a domain error. Internal failures never expose their cause.
func WriteDomain(w http.ResponseWriter, err error) {
	status := Status(err)
	code := errs.Code(err)

	var limited errs.RateLimitedError
	if stderrors.As(err, &limited) {
		retryAfter := int64(limited.RetryAfter / time.Second)
		if retryAfter <= 0 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
		Write(w, status, RateLimitError{
			Code:          code,
			Message:       "too many match requests",
			RetryAfterSec: retryAfter,
			ResetAt:       limited.ResetAt,
		})
		return
	}

	message := err.Error()
	switch status {
	case http.StatusInternalServerError:
		message = "internal error"
	case http.StatusServiceUnavailable:
		message = "temporarily unavailable"
	case http.StatusNotFound:
		message = "not found"
		if stderrors.Is(err, errs.ErrMatchNotAccepted) {
			message = "match not accepted"
		}
	}

	Write(w, status, APIError{Code: code, Message: message})
}
