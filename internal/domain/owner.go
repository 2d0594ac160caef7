package domain

import "time"

// VaultOwner is the single account a deployment serves. The storage layer
// guarantees that at most one row ever exists; every code path that would
// create a second fails with VAULT_ALREADY_INITIALIZED instead.
type VaultOwner struct {
	ID                string     `json:"id"`
	DisplayName       string     `json:"display_name"`
	Challenge         string     `json:"-"`
	ChallengeIssuedAt *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
}

type InitVaultRequest struct {
	DisplayName  string `json:"display_name" validate:"required,min=1,max=100"`
	CredentialID string `json:"credential_id" validate:"required,max=512"`
	PublicKey    string `json:"public_key" validate:"required"`
	Label        string `json:"label" validate:"required,min=1,max=100"`
	KeySalt      string `json:"key_salt" validate:"required"`
	WrappedKey   string `json:"wrapped_key" validate:"required"`
	WrappedKeyIV string `json:"wrapped_key_iv" validate:"required"`
	// Attestation is the opaque authenticator registration response; it is
	// handed to the configured ceremony verifier untouched.
	Attestation string `json:"attestation" validate:"required"`
}

type ChallengeResponse struct {
	Challenge string `json:"challenge"`
	ExpiresAt int64  `json:"expires_at"`
}

type LoginVerifyRequest struct {
	CredentialID string `json:"credential_id" validate:"required,max=512"`
	// Assertion is the opaque authenticator assertion response.
	Assertion string `json:"assertion" validate:"required"`
}

type WrappedKeyResponse struct {
	KeySalt      string `json:"key_salt"`
	WrappedKey   string `json:"wrapped_key"`
	WrappedKeyIV string `json:"wrapped_key_iv"`
}
