package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
)

type mockOwnerRepo struct {
	owner *domain.VaultOwner
}

func (m *mockOwnerRepo) CreateIfAbsent(ctx context.Context, owner *domain.VaultOwner) (bool, error) {
	if m.owner != nil {
		return false, nil
	}
	cp := *owner
	m.owner = &cp
	return true, nil
}

func (m *mockOwnerRepo) Get(ctx context.Context) (*domain.VaultOwner, error) {
	if m.owner == nil {
		return nil, nil
	}
	cp := *m.owner
	return &cp, nil
}

func (m *mockOwnerRepo) SetChallenge(ctx context.Context, ownerID, challenge string, issuedAt time.Time) error {
	if m.owner == nil || m.owner.ID != ownerID {
		return errors.New("owner not found")
	}
	m.owner.Challenge = challenge
	m.owner.ChallengeIssuedAt = &issuedAt
	return nil
}

func (m *mockOwnerRepo) ClearChallenge(ctx context.Context, ownerID string) error {
	if m.owner == nil || m.owner.ID != ownerID {
		return errors.New("owner not found")
	}
	m.owner.Challenge = ""
	m.owner.ChallengeIssuedAt = nil
	return nil
}

type mockCredentialRepo struct {
	credentials map[string]*domain.Credential
}

func newMockCredentialRepo() *mockCredentialRepo {
	return &mockCredentialRepo{credentials: make(map[string]*domain.Credential)}
}

func (m *mockCredentialRepo) Create(ctx context.Context, cred *domain.Credential) error {
	if _, exists := m.credentials[cred.ID]; exists {
		return errors.New("credential already exists")
	}
	cp := *cred
	m.credentials[cred.ID] = &cp
	return nil
}

func (m *mockCredentialRepo) FindByID(ctx context.Context, id string) (*domain.Credential, error) {
	cred, exists := m.credentials[id]
	if !exists {
		return nil, nil
	}
	cp := *cred
	return &cp, nil
}

func (m *mockCredentialRepo) List(ctx context.Context, ownerID string) ([]*domain.Credential, error) {
	var creds []*domain.Credential
	for _, c := range m.credentials {
		if c.OwnerID == ownerID {
			cp := *c
			creds = append(creds, &cp)
		}
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].CreatedAt.Before(creds[j].CreatedAt) })
	return creds, nil
}

func (m *mockCredentialRepo) Count(ctx context.Context, ownerID string) (int, error) {
	n := 0
	for _, c := range m.credentials {
		if c.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

func (m *mockCredentialRepo) DeleteGuarded(ctx context.Context, ownerID, id string) (bool, error) {
	cred, exists := m.credentials[id]
	if !exists || cred.OwnerID != ownerID {
		return false, nil
	}

	n, _ := m.Count(ctx, ownerID)
	if n <= 1 {
		return false, nil
	}

	delete(m.credentials, id)
	return true, nil
}

func (m *mockCredentialRepo) Touch(ctx context.Context, id string, signCount uint32, at time.Time) error {
	cred, exists := m.credentials[id]
	if !exists {
		return errors.New("credential not found")
	}
	cred.SignCount = signCount
	cred.LastUsedAt = at
	return nil
}

type mockNoteRepo struct {
	notes map[string]*domain.Note
}

func newMockNoteRepo() *mockNoteRepo {
	return &mockNoteRepo{notes: make(map[string]*domain.Note)}
}

func (m *mockNoteRepo) Get(ctx context.Context, ownerID, id string) (*domain.Note, error) {
	note, exists := m.notes[id]
	if !exists || note.OwnerID != ownerID {
		return nil, nil
	}
	cp := *note
	return &cp, nil
}

func (m *mockNoteRepo) ListChanges(ctx context.Context, ownerID string, since int64) ([]*domain.Note, error) {
	var notes []*domain.Note
	for _, n := range m.notes {
		if n.OwnerID == ownerID && n.UpdatedAt > since {
			cp := *n
			notes = append(notes, &cp)
		}
	}
	sort.Slice(notes, func(i, j int) bool { return notes[i].UpdatedAt < notes[j].UpdatedAt })
	return notes, nil
}

func (m *mockNoteRepo) InsertIfAbsent(ctx context.Context, note *domain.Note) (bool, error) {
	if _, exists := m.notes[note.ID]; exists {
		return false, nil
	}
	cp := *note
	m.notes[note.ID] = &cp
	return true, nil
}

func (m *mockNoteRepo) UpdateCAS(ctx context.Context, note *domain.Note, expectedVersion int64) (bool, error) {
	stored, exists := m.notes[note.ID]
	if !exists || stored.OwnerID != note.OwnerID || stored.Version != expectedVersion {
		return false, nil
	}
	stored.Version++
	stored.UpdatedAt = note.UpdatedAt
	stored.IsDeleted = note.IsDeleted
	stored.EncryptedData = note.EncryptedData
	stored.IV = note.IV
	return true, nil
}

type mockConflictRepo struct {
	conflicts []*domain.NoteConflict
}

func (m *mockConflictRepo) Create(ctx context.Context, conflict *domain.NoteConflict) error {
	cp := *conflict
	m.conflicts = append(m.conflicts, &cp)
	return nil
}

func (m *mockConflictRepo) ListByNote(ctx context.Context, ownerID, noteID string) ([]*domain.NoteConflict, error) {
	var out []*domain.NoteConflict
	for _, c := range m.conflicts {
		if c.OwnerID == ownerID && c.NoteID == noteID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockConflictRepo) DeleteByNote(ctx context.Context, ownerID, noteID string) (int64, error) {
	var kept []*domain.NoteConflict
	var deleted int64
	for _, c := range m.conflicts {
		if c.OwnerID == ownerID && c.NoteID == noteID {
			deleted++
			continue
		}
		kept = append(kept, c)
	}
	m.conflicts = kept
	return deleted, nil
}

type mockEnrollmentRepo struct {
	enrollments map[string]*domain.DeviceEnrollment
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{enrollments: make(map[string]*domain.DeviceEnrollment)}
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *domain.DeviceEnrollment) error {
	cp := *enrollment
	m.enrollments[enrollment.TokenHash] = &cp
	return nil
}

func (m *mockEnrollmentRepo) Find(ctx context.Context, tokenHash string) (*domain.DeviceEnrollment, error) {
	enrollment, exists := m.enrollments[tokenHash]
	if !exists {
		return nil, nil
	}
	cp := *enrollment
	return &cp, nil
}

func (m *mockEnrollmentRepo) Consume(ctx context.Context, tokenHash string) (*domain.DeviceEnrollment, error) {
	enrollment, exists := m.enrollments[tokenHash]
	if !exists {
		return nil, nil
	}
	delete(m.enrollments, tokenHash)
	return enrollment, nil
}

type mockHandshakeRepo struct {
	handshakes map[string]*domain.Handshake
}

func newMockHandshakeRepo() *mockHandshakeRepo {
	return &mockHandshakeRepo{handshakes: make(map[string]*domain.Handshake)}
}

func (m *mockHandshakeRepo) Create(ctx context.Context, h *domain.Handshake) error {
	if _, exists := m.handshakes[h.Code]; exists {
		return repository.ErrCodeTaken
	}
	for _, existing := range m.handshakes {
		if existing.SecretHash == h.SecretHash {
			return repository.ErrCodeTaken
		}
	}
	cp := *h
	m.handshakes[h.Code] = &cp
	return nil
}

func (m *mockHandshakeRepo) FindByCode(ctx context.Context, code string) (*domain.Handshake, error) {
	h, exists := m.handshakes[code]
	if !exists {
		return nil, nil
	}
	cp := *h
	return &cp, nil
}

func (m *mockHandshakeRepo) FindBySecretHash(ctx context.Context, secretHash string) (*domain.Handshake, error) {
	for _, h := range m.handshakes {
		if h.SecretHash == secretHash {
			cp := *h
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockHandshakeRepo) SetJoiner(ctx context.Context, code, joinerKey string, expiresAt time.Time) (bool, error) {
	h, exists := m.handshakes[code]
	if !exists || h.JoinerKey != "" {
		return false, nil
	}
	h.JoinerKey = joinerKey
	h.ExpiresAt = expiresAt
	return true, nil
}

func (m *mockHandshakeRepo) SetPayload(ctx context.Context, code, payload, iv string, expiresAt time.Time) (bool, error) {
	h, exists := m.handshakes[code]
	if !exists || h.Payload != "" {
		return false, nil
	}
	h.Payload = payload
	h.PayloadIV = iv
	h.ExpiresAt = expiresAt
	return true, nil
}

func (m *mockHandshakeRepo) Delete(ctx context.Context, code string) error {
	delete(m.handshakes, code)
	return nil
}

type recordingNotifier struct {
	ownerID  string
	noteIDs  []string
	syncTime int64
	calls    int
}

func (n *recordingNotifier) NotesChanged(ownerID string, noteIDs []string, syncTime int64) {
	n.ownerID = ownerID
	n.noteIDs = noteIDs
	n.syncTime = syncTime
	n.calls++
}
