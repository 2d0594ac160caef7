package domain

import "errors"

// Kind classifies an error for transport to the client. Handlers map kinds to
// HTTP statuses; clients branch on the string, not the message.
type Kind string

const (
	KindInvalidBody             Kind = "INVALID_BODY"
	KindVaultNotInitialized     Kind = "VAULT_NOT_INITIALIZED"
	KindVaultAlreadyInitialized Kind = "VAULT_ALREADY_INITIALIZED"
	KindUnauthorized            Kind = "UNAUTHORIZED"
	KindDeviceRevoked           Kind = "DEVICE_REVOKED"
	KindForbidden               Kind = "FORBIDDEN"
	KindLastDevice              Kind = "LAST_DEVICE"
	KindNotFound                Kind = "NOT_FOUND"
	KindHandshakeNotFound       Kind = "HANDSHAKE_NOT_FOUND"
	KindHandshakeExpired        Kind = "HANDSHAKE_EXPIRED"
	KindAlreadyJoined           Kind = "ALREADY_JOINED"
	KindAlreadyConfirmed        Kind = "ALREADY_CONFIRMED"
	KindNoJoinYet               Kind = "NO_JOIN_YET"
	KindCodeConflict            Kind = "CODE_CONFLICT"
	KindRateLimited             Kind = "RATE_LIMITED"
	KindMisconfigured           Kind = "MISCONFIGURED"
	KindInternal                Kind = "INTERNAL"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a kinded error with a caller-facing message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from err, or KindInternal if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
