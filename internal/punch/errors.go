package punch

import (
	"errors"
	"net/http"
)

var (
	ErrMalformedPayload = errors.New("malformed payload")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrDeviceInactive   = errors.New("device inactive")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpired          = errors.New("expired")
	ErrAlreadyUsed      = errors.New("payload already used")
	ErrCodeNotFound     = errors.New("code not found")
	ErrPersistence      = errors.New("persistence failure")
)

// HTTPStatus maps a punch error to a status code and the short reason shown
// to the caller. Unknown errors are treated as persistence failures.
func HTTPStatus(err error) (int, string) {
	switch {
	case errors.Is(err, ErrMalformedPayload):
		return http.StatusBadRequest, "malformed payload"
	case errors.Is(err, ErrDeviceNotFound):
		return http.StatusNotFound, "unknown device"
	case errors.Is(err, ErrDeviceInactive):
		return http.StatusForbidden, "device inactive"
	case errors.Is(err, ErrInvalidSignature):
		return http.StatusUnauthorized, "invalid signature"
	case errors.Is(err, ErrExpired):
		return http.StatusBadRequest, "expired"
	case errors.Is(err, ErrAlreadyUsed):
		return http.StatusConflict, "already used"
	case errors.Is(err, ErrCodeNotFound):
		return http.StatusNotFound, "code not found"
	default:
		return http.StatusInternalServerError, "punch failed"
	}
}
