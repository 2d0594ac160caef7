package repository

import (
	"context"
	"database/sql"
	"fmt"

	"notevault-server/internal/domain"
)

type ConflictRepository interface {
	Create(ctx context.Context, conflict *domain.NoteConflict) error
	ListByNote(ctx context.Context, ownerID, noteID string) ([]*domain.NoteConflict, error)
	DeleteByNote(ctx context.Context, ownerID, noteID string) (int64, error)
}

type conflictRepository struct {
	db *sql.DB
}

func NewConflictRepository(db *sql.DB) ConflictRepository {
	return &conflictRepository{db: db}
}

func (r *conflictRepository) Create(ctx context.Context, conflict *domain.NoteConflict) error {
	query := `INSERT INTO note_conflicts (id, note_id, owner_id, encrypted_data, iv, device_label, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		conflict.ID, conflict.NoteID, conflict.OwnerID,
		conflict.EncryptedData, conflict.IV, conflict.DeviceLabel, conflict.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create conflict: %w", err)
	}

	return nil
}

func (r *conflictRepository) ListByNote(ctx context.Context, ownerID, noteID string) ([]*domain.NoteConflict, error) {
	query := `SELECT id, note_id, owner_id, encrypted_data, iv, device_label, created_at
		FROM note_conflicts WHERE owner_id = $1 AND note_id = $2 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	defer rows.Close()

	var conflicts []*domain.NoteConflict
	for rows.Next() {
		var c domain.NoteConflict
		if err := rows.Scan(
			&c.ID, &c.NoteID, &c.OwnerID, &c.EncryptedData, &c.IV, &c.DeviceLabel, &c.CreatedAt,
		); err != nil {
			return nil, err
		}
		conflicts = append(conflicts, &c)
	}

	return conflicts, rows.Err()
}

func (r *conflictRepository) DeleteByNote(ctx context.Context, ownerID, noteID string) (int64, error) {
	query := `DELETE FROM note_conflicts WHERE owner_id = $1 AND note_id = $2`

	res, err := r.db.ExecContext(ctx, query, ownerID, noteID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete conflicts: %w", err)
	}

	return res.RowsAffected()
}
