package domain

import "time"

type HandshakeStatus string

const (
	HandshakeAwaitingJoin    HandshakeStatus = "awaiting_join"
	HandshakeAwaitingConfirm HandshakeStatus = "awaiting_confirm"
	HandshakeFinished        HandshakeStatus = "finished"
)

// Handshake is a live pairing session. Only the hash of the session secret is
// stored; the plaintext is returned to the initiator exactly once, at init.
// JoinerKey is empty until join, Payload until confirm.
type Handshake struct {
	Code         string
	OwnerID      string
	SecretHash   string
	InitiatorKey string
	JoinerKey    string
	Payload      string
	PayloadIV    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Status derives the state-machine position from which fields are populated.
func (h *Handshake) Status() HandshakeStatus {
	switch {
	case h.Payload != "":
		return HandshakeFinished
	case h.JoinerKey != "":
		return HandshakeAwaitingConfirm
	default:
		return HandshakeAwaitingJoin
	}
}

func (h *Handshake) ExpiredAt(now time.Time) bool {
	return now.After(h.ExpiresAt)
}

type InitHandshakeRequest struct {
	PublicKey string `json:"publicKey" validate:"required"`
	// SessionCode lets the initiator pick its own code; left empty the server
	// generates one.
	SessionCode string `json:"sessionCode" validate:"omitempty,len=6,numeric"`
}

type InitHandshakeResponse struct {
	SessionCode   string `json:"sessionCode"`
	SessionSecret string `json:"sessionSecret"`
	ExpiresAt     int64  `json:"expiresAt"`
}

type JoinHandshakeRequest struct {
	SessionCode   string `json:"sessionCode" validate:"omitempty,len=6,numeric"`
	SessionSecret string `json:"sessionSecret" validate:"required"`
	PublicKey     string `json:"publicKey" validate:"required"`
}

type JoinHandshakeResponse struct {
	ExpiresAt int64 `json:"expiresAt"`
}

// HandshakeRef identifies a live session by code, secret, or both. When the
// code is present the secret must still match the stored hash.
type HandshakeRef struct {
	SessionCode   string `json:"sessionCode" validate:"omitempty,len=6,numeric"`
	SessionSecret string `json:"sessionSecret" validate:"required"`
}

type HandshakeStatusResponse struct {
	Status        HandshakeStatus `json:"status"`
	ExpiresAt     int64           `json:"expiresAt"`
	PeerPublicKey string          `json:"peerPublicKey,omitempty"`
	// EncryptedPayload and IV are populated only in the joiner's view, and
	// only once the session is finished.
	EncryptedPayload string `json:"encryptedPayload,omitempty"`
	IV               string `json:"iv,omitempty"`
}

type ConfirmHandshakeRequest struct {
	SessionCode      string `json:"sessionCode" validate:"omitempty,len=6,numeric"`
	SessionSecret    string `json:"sessionSecret" validate:"required"`
	EncryptedPayload string `json:"encryptedPayload" validate:"required"`
	IV               string `json:"iv" validate:"required"`
}
