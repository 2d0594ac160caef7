package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
)

// Notifier tells connected devices that notes changed; they pull the actual
// data through the sync endpoints. A nil-safe no-op implementation is fine.
type Notifier interface {
	NotesChanged(ownerID string, noteIDs []string, syncTime int64)
}

type noopNotifier struct{}

func (noopNotifier) NotesChanged(string, []string, int64) {}

// SyncService is the note sync coordinator. Writes carry the base version the
// device last saw; a write wins only if the stored version still matches, and
// every loser is branched into the conflict table so no ciphertext is ever
// silently dropped.
type SyncService struct {
	notes     repository.NoteRepository
	conflicts repository.ConflictRepository
	notifier  Notifier

	now func() time.Time
}

func NewSyncService(notes repository.NoteRepository, conflicts repository.ConflictRepository, notifier Notifier) *SyncService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &SyncService{
		notes:     notes,
		conflicts: conflicts,
		notifier:  notifier,
		now:       time.Now,
	}
}

// ListChanges returns every note, tombstones included, written after the
// given cursor (milliseconds since epoch; zero pulls everything).
func (s *SyncService) ListChanges(ctx context.Context, ownerID string, since int64) (*domain.ChangesResponse, error) {
	notes, err := s.notes.ListChanges(ctx, ownerID, since)
	if err != nil {
		return nil, err
	}

	return &domain.ChangesResponse{Notes: notes}, nil
}

// ApplyWrites runs each entry independently: a failed compare-and-swap on one
// note never blocks the rest of the batch. The server assigns updated_at so
// the sync cursor moves on a single clock.
func (s *SyncService) ApplyWrites(ctx context.Context, ownerID, deviceLabel string, writes []*domain.NoteWrite) (*domain.PushNotesResponse, error) {
	result := &domain.PushNotesResponse{
		Saved:     []domain.SavedNote{},
		Conflicts: []string{},
	}

	syncTime := s.now().UnixMilli()

	for _, w := range writes {
		note := &domain.Note{
			ID:            w.ID,
			OwnerID:       ownerID,
			Version:       1,
			UpdatedAt:     syncTime,
			IsDeleted:     w.IsDeleted,
			EncryptedData: w.EncryptedData,
			IV:            w.IV,
		}

		var (
			applied bool
			err     error
		)
		if w.BaseVersion == 0 {
			applied, err = s.notes.InsertIfAbsent(ctx, note)
			if err != nil {
				return nil, err
			}
		} else {
			note.Version = w.BaseVersion + 1
			applied, err = s.notes.UpdateCAS(ctx, note, w.BaseVersion)
			if err != nil {
				return nil, err
			}
			if !applied {
				// A stale base version against a note the server has never
				// seen is a first write, not a conflict. Only branch when
				// the note actually exists.
				note.Version = 1
				applied, err = s.notes.InsertIfAbsent(ctx, note)
				if err != nil {
					return nil, err
				}
			}
		}

		if applied {
			result.Saved = append(result.Saved, domain.SavedNote{
				ID:        note.ID,
				Version:   note.Version,
				UpdatedAt: note.UpdatedAt,
			})
			continue
		}

		conflict := &domain.NoteConflict{
			ID:            uuid.NewString(),
			NoteID:        w.ID,
			OwnerID:       ownerID,
			EncryptedData: w.EncryptedData,
			IV:            w.IV,
			DeviceLabel:   deviceLabel,
			CreatedAt:     s.now(),
		}
		if err := s.conflicts.Create(ctx, conflict); err != nil {
			return nil, err
		}
		result.Conflicts = append(result.Conflicts, w.ID)
	}

	if len(result.Saved) > 0 {
		ids := make([]string, 0, len(result.Saved))
		for _, saved := range result.Saved {
			ids = append(ids, saved.ID)
		}
		s.notifier.NotesChanged(ownerID, ids, syncTime)
	}

	return result, nil
}

// ListConflicts returns the current winner alongside every branched loser for
// one note, oldest first.
func (s *SyncService) ListConflicts(ctx context.Context, ownerID, noteID string) (*domain.ConflictListResponse, error) {
	note, err := s.notes.Get(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}

	conflicts, err := s.conflicts.ListByNote(ctx, ownerID, noteID)
	if err != nil {
		return nil, err
	}
	// The note may be nil while conflict rows exist, for example after the
	// winner was tombstoned. Those losers must stay reachable.
	if note == nil && len(conflicts) == 0 {
		return nil, domain.E(domain.KindNotFound, "note not found")
	}

	return &domain.ConflictListResponse{Note: note, Conflicts: conflicts}, nil
}

// ClearConflicts discards the branched losers for a note once the owner has
// resolved them client-side. Clearing a note with no conflicts is a no-op.
func (s *SyncService) ClearConflicts(ctx context.Context, ownerID, noteID string) error {
	_, err := s.conflicts.DeleteByNote(ctx, ownerID, noteID)
	return err
}
