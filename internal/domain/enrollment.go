package domain

import "time"

// DeviceEnrollment is a one-time token authorizing a new device to register
// without a live pairing session. Only the token's hash is stored; the row is
// deleted on first successful use or lazily once expired.
type DeviceEnrollment struct {
	TokenHash string
	OwnerID   string
	CreatedAt time.Time
	ExpiresAt time.Time
}

type CreateEnrollmentResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

type ClaimEnrollmentRequest struct {
	Token        string `json:"token" validate:"required"`
	CredentialID string `json:"credential_id" validate:"required,max=512"`
	PublicKey    string `json:"public_key" validate:"required"`
	Label        string `json:"label" validate:"required,min=1,max=100"`
	KeySalt      string `json:"key_salt" validate:"required"`
	WrappedKey   string `json:"wrapped_key" validate:"required"`
	WrappedKeyIV string `json:"wrapped_key_iv" validate:"required"`
	Attestation  string `json:"attestation" validate:"required"`
}
