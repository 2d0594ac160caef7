package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"notevault-server/internal/domain"
)

type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) error
	FindByID(ctx context.Context, id string) (*domain.Credential, error)
	List(ctx context.Context, ownerID string) ([]*domain.Credential, error)
	Count(ctx context.Context, ownerID string) (int, error)
	// DeleteGuarded removes a credential only while at least one other
	// credential remains for the owner. It locks the owner's credential
	// rows inside a transaction so concurrent revokes serialize and
	// cannot both count the same survivors.
	DeleteGuarded(ctx context.Context, ownerID, id string) (bool, error)
	Touch(ctx context.Context, id string, signCount uint32, at time.Time) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Create(ctx context.Context, cred *domain.Credential) error {
	query := `INSERT INTO credentials
		(id, owner_id, public_key, label, sign_count, key_salt, wrapped_key, wrapped_key_iv, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		cred.ID, cred.OwnerID, cred.PublicKey, cred.Label, cred.SignCount,
		cred.KeySalt, cred.WrappedKey, cred.WrappedKeyIV, cred.CreatedAt, cred.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	return nil
}

func (r *credentialRepository) FindByID(ctx context.Context, id string) (*domain.Credential, error) {
	query := `SELECT id, owner_id, public_key, label, sign_count, key_salt, wrapped_key, wrapped_key_iv, created_at, last_used_at
		FROM credentials WHERE id = $1`

	var cred domain.Credential
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cred.ID, &cred.OwnerID, &cred.PublicKey, &cred.Label, &cred.SignCount,
		&cred.KeySalt, &cred.WrappedKey, &cred.WrappedKeyIV, &cred.CreatedAt, &cred.LastUsedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credential: %w", err)
	}

	return &cred, nil
}

func (r *credentialRepository) List(ctx context.Context, ownerID string) ([]*domain.Credential, error) {
	query := `SELECT id, owner_id, public_key, label, sign_count, key_salt, wrapped_key, wrapped_key_iv, created_at, last_used_at
		FROM credentials WHERE owner_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer rows.Close()

	var creds []*domain.Credential
	for rows.Next() {
		var cred domain.Credential
		if err := rows.Scan(
			&cred.ID, &cred.OwnerID, &cred.PublicKey, &cred.Label, &cred.SignCount,
			&cred.KeySalt, &cred.WrappedKey, &cred.WrappedKeyIV, &cred.CreatedAt, &cred.LastUsedAt,
		); err != nil {
			return nil, err
		}
		creds = append(creds, &cred)
	}

	return creds, rows.Err()
}

func (r *credentialRepository) Count(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM credentials WHERE owner_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count credentials: %w", err)
	}
	return n, nil
}

func (r *credentialRepository) DeleteGuarded(ctx context.Context, ownerID, id string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin revoke: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT id FROM credentials WHERE owner_id = $1 FOR UPDATE`, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to lock credentials: %w", err)
	}

	count := 0
	found := false
	for rows.Next() {
		var rowID string
		if err := rows.Scan(&rowID); err != nil {
			rows.Close()
			return false, err
		}
		count++
		if rowID == id {
			found = true
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, err
	}

	if !found || count <= 1 {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1 AND owner_id = $2`, id, ownerID); err != nil {
		return false, fmt.Errorf("failed to delete credential: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit revoke: %w", err)
	}

	return true, nil
}

func (r *credentialRepository) Touch(ctx context.Context, id string, signCount uint32, at time.Time) error {
	query := `UPDATE credentials SET sign_count = $2, last_used_at = $3 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id, signCount, at); err != nil {
		return fmt.Errorf("failed to touch credential: %w", err)
	}

	return nil
}
