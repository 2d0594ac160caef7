package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"notevault-server/internal/domain"
)

type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

func JSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: statusCode < 400,
		Data:    data,
	})
}

func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

func Error(w http.ResponseWriter, statusCode int, code domain.Kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(Response{
		Success: false,
		Error:   msg,
		Code:    string(code),
	})
}

func BadRequest(w http.ResponseWriter, msg string) {
	Error(w, http.StatusBadRequest, domain.KindInvalidBody, msg)
}

func Unauthorized(w http.ResponseWriter, msg string) {
	Error(w, http.StatusUnauthorized, domain.KindUnauthorized, msg)
}

func Forbidden(w http.ResponseWriter, msg string) {
	Error(w, http.StatusForbidden, domain.KindForbidden, msg)
}

// FromError maps a kinded error to its HTTP status. Unrecognized errors are
// reported as opaque internal failures.
func FromError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)

	msg := err.Error()
	var kerr *domain.Error
	if !errors.As(err, &kerr) {
		msg = "internal error"
	}

	Error(w, statusFor(kind), kind, msg)
}

func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidBody:
		return http.StatusBadRequest
	case domain.KindUnauthorized, domain.KindDeviceRevoked:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindNotFound, domain.KindHandshakeNotFound:
		return http.StatusNotFound
	case domain.KindVaultNotInitialized, domain.KindVaultAlreadyInitialized,
		domain.KindLastDevice, domain.KindAlreadyJoined,
		domain.KindAlreadyConfirmed, domain.KindNoJoinYet,
		domain.KindCodeConflict:
		return http.StatusConflict
	case domain.KindHandshakeExpired:
		return http.StatusGone
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
