package domain

import "time"

// NoteConflict preserves a losing write verbatim. Rows are only ever created
// and later bulk-deleted once a human has merged the divergence; several may
// accumulate per note if devices race repeatedly.
type NoteConflict struct {
	ID            string    `json:"id"`
	NoteID        string    `json:"note_id"`
	OwnerID       string    `json:"-"`
	EncryptedData string    `json:"encrypted_data"`
	IV            string    `json:"iv"`
	DeviceLabel   string    `json:"device_label"`
	CreatedAt     time.Time `json:"created_at"`
}

type ConflictListResponse struct {
	Note      *Note           `json:"note"`
	Conflicts []*NoteConflict `json:"conflicts"`
}
