package domain

import "time"

// Credential is one trusted device: its authenticator-issued key pair plus
// the vault master key wrapped under that device's local unwrapping key.
// The server only ever sees the wrapped form.
type Credential struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"-"`
	PublicKey    string    `json:"-"`
	Label        string    `json:"label"`
	SignCount    uint32    `json:"-"`
	KeySalt      string    `json:"-"`
	WrappedKey   string    `json:"-"`
	WrappedKeyIV string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	LastUsedAt   time.Time `json:"last_used_at"`
}

type DeviceResponse struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	Current    bool      `json:"current"`
}
