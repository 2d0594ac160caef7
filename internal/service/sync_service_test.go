package service

import (
	"context"
	"testing"
	"time"

	"notevault-server/internal/domain"
)

func newTestSyncService(notes *mockNoteRepo, conflicts *mockConflictRepo, notifier Notifier) *SyncService {
	s := NewSyncService(notes, conflicts, notifier)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	return s
}

func TestSyncService_ApplyWrites_FirstWrite(t *testing.T) {
	notes := newMockNoteRepo()
	conflicts := &mockConflictRepo{}
	s := newTestSyncService(notes, conflicts, nil)

	result, err := s.ApplyWrites(context.Background(), "owner1", "laptop", []*domain.NoteWrite{
		{ID: "n1", EncryptedData: "cipher", IV: "iv", BaseVersion: 0},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Saved) != 1 {
		t.Fatalf("expected 1 saved, got %d", len(result.Saved))
	}
	if result.Saved[0].Version != 1 {
		t.Errorf("expected version 1, got %d", result.Saved[0].Version)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", result.Conflicts)
	}
}

func TestSyncService_ApplyWrites_StaleBaseOnUnknownNoteInserts(t *testing.T) {
	notes := newMockNoteRepo()
	conflicts := &mockConflictRepo{}
	s := newTestSyncService(notes, conflicts, nil)

	// A device can carry a stale base version for a note the server has
	// never stored, for example after a vault reset. The first write wins
	// at version 1 regardless of the version the device claims.
	result, err := s.ApplyWrites(context.Background(), "owner1", "laptop", []*domain.NoteWrite{
		{ID: "n1", EncryptedData: "cipher", IV: "iv", BaseVersion: 3},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Saved) != 1 || result.Saved[0].Version != 1 {
		t.Fatalf("expected first write saved at version 1, got %+v", result)
	}
	if len(result.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %v", result.Conflicts)
	}
	stored := notes.notes["n1"]
	if stored == nil || stored.Version != 1 || stored.EncryptedData != "cipher" {
		t.Errorf("expected stored note at version 1, got %+v", stored)
	}
}

func TestSyncService_ApplyWrites_ConcurrentWritersNeverLoseData(t *testing.T) {
	notes := newMockNoteRepo()
	conflicts := &mockConflictRepo{}
	s := newTestSyncService(notes, conflicts, nil)
	ctx := context.Background()

	notes.notes["n1"] = &domain.Note{
		ID: "n1", OwnerID: "owner1", Version: 3, UpdatedAt: 100,
		EncryptedData: "old", IV: "iv0",
	}

	// Device A wins the race.
	resA, err := s.ApplyWrites(ctx, "owner1", "device-a", []*domain.NoteWrite{
		{ID: "n1", EncryptedData: "from-a", IV: "iv-a", BaseVersion: 3},
	})
	if err != nil {
		t.Fatalf("device A write failed: %v", err)
	}
	if len(resA.Saved) != 1 || resA.Saved[0].Version != 4 {
		t.Fatalf("expected device A to win at version 4, got %+v", resA)
	}

	// Device B still holds base version 3 and must lose into conflicts.
	resB, err := s.ApplyWrites(ctx, "owner1", "device-b", []*domain.NoteWrite{
		{ID: "n1", EncryptedData: "from-b", IV: "iv-b", BaseVersion: 3},
	})
	if err != nil {
		t.Fatalf("device B write failed: %v", err)
	}
	if len(resB.Saved) != 0 {
		t.Errorf("expected device B to save nothing, got %+v", resB.Saved)
	}
	if len(resB.Conflicts) != 1 || resB.Conflicts[0] != "n1" {
		t.Fatalf("expected conflicts [n1], got %v", resB.Conflicts)
	}

	// The winner's ciphertext is current, the loser's is preserved.
	if notes.notes["n1"].EncryptedData != "from-a" {
		t.Errorf("expected stored data from-a, got %s", notes.notes["n1"].EncryptedData)
	}
	branched, _ := conflicts.ListByNote(ctx, "owner1", "n1")
	if len(branched) != 1 {
		t.Fatalf("expected 1 conflict row, got %d", len(branched))
	}
	if branched[0].EncryptedData != "from-b" || branched[0].DeviceLabel != "device-b" {
		t.Errorf("conflict row lost provenance: %+v", branched[0])
	}
}

func TestSyncService_ApplyWrites_MixedBatchContinuesPastConflict(t *testing.T) {
	notes := newMockNoteRepo()
	conflicts := &mockConflictRepo{}
	s := newTestSyncService(notes, conflicts, nil)

	notes.notes["stale"] = &domain.Note{ID: "stale", OwnerID: "owner1", Version: 5}

	result, err := s.ApplyWrites(context.Background(), "owner1", "phone", []*domain.NoteWrite{
		{ID: "stale", EncryptedData: "x", IV: "i", BaseVersion: 2},
		{ID: "fresh", EncryptedData: "y", IV: "j", BaseVersion: 0},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if len(result.Conflicts) != 1 || result.Conflicts[0] != "stale" {
		t.Errorf("expected conflicts [stale], got %v", result.Conflicts)
	}
	if len(result.Saved) != 1 || result.Saved[0].ID != "fresh" {
		t.Errorf("expected fresh to save despite the earlier conflict, got %+v", result.Saved)
	}
}

func TestSyncService_ApplyWrites_Tombstone(t *testing.T) {
	notes := newMockNoteRepo()
	s := newTestSyncService(notes, &mockConflictRepo{}, nil)
	ctx := context.Background()

	notes.notes["n1"] = &domain.Note{ID: "n1", OwnerID: "owner1", Version: 1, UpdatedAt: 50}

	result, err := s.ApplyWrites(ctx, "owner1", "laptop", []*domain.NoteWrite{
		{ID: "n1", EncryptedData: "gone", IV: "iv", BaseVersion: 1, IsDeleted: true},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(result.Saved) != 1 {
		t.Fatalf("expected tombstone to save, got %+v", result)
	}

	// The tombstone still flows to pullers.
	changes, err := s.ListChanges(ctx, "owner1", 50)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(changes.Notes) != 1 || !changes.Notes[0].IsDeleted {
		t.Errorf("expected one deleted note in changes, got %+v", changes.Notes)
	}
}

func TestSyncService_ApplyWrites_NotifiesOnlySavedNotes(t *testing.T) {
	notes := newMockNoteRepo()
	notifier := &recordingNotifier{}
	s := newTestSyncService(notes, &mockConflictRepo{}, notifier)

	notes.notes["stale"] = &domain.Note{ID: "stale", OwnerID: "owner1", Version: 9}

	_, err := s.ApplyWrites(context.Background(), "owner1", "laptop", []*domain.NoteWrite{
		{ID: "fresh", EncryptedData: "y", IV: "j", BaseVersion: 0},
		{ID: "stale", EncryptedData: "x", IV: "i", BaseVersion: 1},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if notifier.calls != 1 {
		t.Fatalf("expected one nudge, got %d", notifier.calls)
	}
	if len(notifier.noteIDs) != 1 || notifier.noteIDs[0] != "fresh" {
		t.Errorf("expected nudge for [fresh], got %v", notifier.noteIDs)
	}
}

func TestSyncService_ApplyWrites_AllConflictsNoNudge(t *testing.T) {
	notes := newMockNoteRepo()
	notifier := &recordingNotifier{}
	s := newTestSyncService(notes, &mockConflictRepo{}, notifier)

	notes.notes["n1"] = &domain.Note{ID: "n1", OwnerID: "owner1", Version: 7}

	_, err := s.ApplyWrites(context.Background(), "owner1", "laptop", []*domain.NoteWrite{
		{ID: "n1", EncryptedData: "x", IV: "i", BaseVersion: 6},
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if notifier.calls != 0 {
		t.Errorf("expected no nudge when nothing saved, got %d", notifier.calls)
	}
}

func TestSyncService_ListChanges_CursorExcludesOlderWrites(t *testing.T) {
	notes := newMockNoteRepo()
	s := newTestSyncService(notes, &mockConflictRepo{}, nil)

	notes.notes["old"] = &domain.Note{ID: "old", OwnerID: "owner1", UpdatedAt: 100}
	notes.notes["new"] = &domain.Note{ID: "new", OwnerID: "owner1", UpdatedAt: 200}

	changes, err := s.ListChanges(context.Background(), "owner1", 100)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(changes.Notes) != 1 || changes.Notes[0].ID != "new" {
		t.Errorf("expected only the newer note, got %+v", changes.Notes)
	}

	everything, err := s.ListChanges(context.Background(), "owner1", 0)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(everything.Notes) != 2 {
		t.Errorf("expected full pull with since=0, got %d notes", len(everything.Notes))
	}
}

func TestSyncService_ConflictLifecycle(t *testing.T) {
	notes := newMockNoteRepo()
	conflicts := &mockConflictRepo{}
	s := newTestSyncService(notes, conflicts, nil)
	ctx := context.Background()

	notes.notes["n1"] = &domain.Note{ID: "n1", OwnerID: "owner1", Version: 2}
	conflicts.Create(ctx, &domain.NoteConflict{ID: "c1", NoteID: "n1", OwnerID: "owner1", EncryptedData: "loser"})

	listed, err := s.ListConflicts(ctx, "owner1", "n1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if listed.Note.ID != "n1" || len(listed.Conflicts) != 1 {
		t.Fatalf("expected note with one conflict, got %+v", listed)
	}

	if err := s.ClearConflicts(ctx, "owner1", "n1"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	listed, err = s.ListConflicts(ctx, "owner1", "n1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(listed.Conflicts) != 0 {
		t.Errorf("expected conflicts cleared, got %d", len(listed.Conflicts))
	}

	// Clearing again is a no-op.
	if err := s.ClearConflicts(ctx, "owner1", "n1"); err != nil {
		t.Errorf("expected idempotent clear, got %v", err)
	}
}

func TestSyncService_ListConflicts_SurvivesMissingNote(t *testing.T) {
	notes := newMockNoteRepo()
	conflicts := &mockConflictRepo{}
	s := newTestSyncService(notes, conflicts, nil)
	ctx := context.Background()

	conflicts.Create(ctx, &domain.NoteConflict{ID: "c1", NoteID: "n1", OwnerID: "owner1", EncryptedData: "loser"})

	listed, err := s.ListConflicts(ctx, "owner1", "n1")
	if err != nil {
		t.Fatalf("expected conflicts to stay reachable, got %v", err)
	}
	if listed.Note != nil {
		t.Errorf("expected nil note, got %+v", listed.Note)
	}
	if len(listed.Conflicts) != 1 || listed.Conflicts[0].EncryptedData != "loser" {
		t.Errorf("expected the preserved loser, got %+v", listed.Conflicts)
	}
}

func TestSyncService_ListConflicts_UnknownNote(t *testing.T) {
	s := newTestSyncService(newMockNoteRepo(), &mockConflictRepo{}, nil)

	_, err := s.ListConflicts(context.Background(), "owner1", "nope")
	if err == nil {
		t.Fatal("expected error for unknown note")
	}
	if domain.KindOf(err) != domain.KindNotFound {
		t.Errorf("expected NOT_FOUND, got %s", domain.KindOf(err))
	}
}
