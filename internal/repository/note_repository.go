package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notevault-server/internal/domain"
)

// NoteRepository gives the sync layer its two write primitives: an
// insert-if-absent for first writes and a compare-and-swap update keyed on
// the stored version. Both report whether they took effect via rows
// affected, never by raising.
type NoteRepository interface {
	Get(ctx context.Context, ownerID, id string) (*domain.Note, error)
	// ListChanges returns every row (tombstones included) with
	// updated_at > since, ascending, so deletions propagate to pullers.
	ListChanges(ctx context.Context, ownerID string, since int64) ([]*domain.Note, error)
	InsertIfAbsent(ctx context.Context, note *domain.Note) (bool, error)
	UpdateCAS(ctx context.Context, note *domain.Note, expectedVersion int64) (bool, error)
}

type noteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Get(ctx context.Context, ownerID, id string) (*domain.Note, error) {
	query := `SELECT id, owner_id, version, updated_at, is_deleted, encrypted_data, iv
		FROM notes WHERE id = $1 AND owner_id = $2`

	var note domain.Note
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(
		&note.ID, &note.OwnerID, &note.Version, &note.UpdatedAt,
		&note.IsDeleted, &note.EncryptedData, &note.IV,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find note: %w", err)
	}

	return &note, nil
}

func (r *noteRepository) ListChanges(ctx context.Context, ownerID string, since int64) ([]*domain.Note, error) {
	query := `SELECT id, owner_id, version, updated_at, is_deleted, encrypted_data, iv
		FROM notes WHERE owner_id = $1 AND updated_at > $2 ORDER BY updated_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		var note domain.Note
		if err := rows.Scan(
			&note.ID, &note.OwnerID, &note.Version, &note.UpdatedAt,
			&note.IsDeleted, &note.EncryptedData, &note.IV,
		); err != nil {
			return nil, err
		}
		notes = append(notes, &note)
	}

	return notes, rows.Err()
}

func (r *noteRepository) InsertIfAbsent(ctx context.Context, note *domain.Note) (bool, error) {
	query := `INSERT INTO notes (id, owner_id, version, updated_at, is_deleted, encrypted_data, iv)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		note.ID, note.OwnerID, note.Version, note.UpdatedAt,
		note.IsDeleted, note.EncryptedData, note.IV,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert note: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (r *noteRepository) UpdateCAS(ctx context.Context, note *domain.Note, expectedVersion int64) (bool, error) {
	query := `UPDATE notes
		SET version = version + 1, updated_at = $4, is_deleted = $5, encrypted_data = $6, iv = $7
		WHERE id = $1 AND owner_id = $2 AND version = $3`

	res, err := r.db.ExecContext(ctx, query,
		note.ID, note.OwnerID, expectedVersion,
		note.UpdatedAt, note.IsDeleted, note.EncryptedData, note.IV,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update note: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}
