package domain

// Note is an opaque encrypted document. The version column is the sole
// concurrency token: a write is accepted only while the caller's base_version
// still matches the stored version at write time. Timestamps are integer
// milliseconds since the Unix epoch so they double as sync cursors.
type Note struct {
	ID            string `json:"id"`
	OwnerID       string `json:"-"`
	Version       int64  `json:"version"`
	UpdatedAt     int64  `json:"updated_at"`
	IsDeleted     bool   `json:"is_deleted"`
	EncryptedData string `json:"encrypted_data"`
	IV            string `json:"iv"`
}

// NoteWrite is one entry of a push batch. BaseVersion is ignored when the
// note does not exist yet (first write wins at version 1).
type NoteWrite struct {
	ID            string `json:"id" validate:"required,max=128"`
	EncryptedData string `json:"encrypted_data" validate:"required"`
	IV            string `json:"iv" validate:"required"`
	BaseVersion   int64  `json:"base_version" validate:"gte=0"`
	IsDeleted     bool   `json:"is_deleted"`
}

type SavedNote struct {
	ID        string `json:"id"`
	Version   int64  `json:"version"`
	UpdatedAt int64  `json:"updated_at"`
}

// PushNotesResponse is deliberately not all-or-nothing: Saved and Conflicts
// are reported side by side and callers must inspect both.
type PushNotesResponse struct {
	Saved     []SavedNote `json:"saved"`
	Conflicts []string    `json:"conflicts"`
}

type ChangesResponse struct {
	Notes []*Note `json:"notes"`
}
