package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"notevault-server/internal/domain"
)

// OwnerRepository persists the vault owner singleton. Creation is a guarded
// insert so the at-most-one invariant is structural, not checked per call
// site.
type OwnerRepository interface {
	CreateIfAbsent(ctx context.Context, owner *domain.VaultOwner) (bool, error)
	Get(ctx context.Context) (*domain.VaultOwner, error)
	SetChallenge(ctx context.Context, ownerID, challenge string, issuedAt time.Time) error
	ClearChallenge(ctx context.Context, ownerID string) error
}

type ownerRepository struct {
	db *sql.DB
}

func NewOwnerRepository(db *sql.DB) OwnerRepository {
	return &ownerRepository{db: db}
}

func (r *ownerRepository) CreateIfAbsent(ctx context.Context, owner *domain.VaultOwner) (bool, error) {
	query := `INSERT INTO vault_owner (id, display_name, created_at)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (SELECT 1 FROM vault_owner)`

	res, err := r.db.ExecContext(ctx, query, owner.ID, owner.DisplayName, owner.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to create vault owner: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (r *ownerRepository) Get(ctx context.Context) (*domain.VaultOwner, error) {
	query := `SELECT id, display_name, challenge, challenge_issued_at, created_at
		FROM vault_owner LIMIT 1`

	var (
		owner     domain.VaultOwner
		challenge sql.NullString
		issuedAt  sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query).Scan(
		&owner.ID, &owner.DisplayName, &challenge, &issuedAt, &owner.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load vault owner: %w", err)
	}

	owner.Challenge = challenge.String
	if issuedAt.Valid {
		t := issuedAt.Time
		owner.ChallengeIssuedAt = &t
	}

	return &owner, nil
}

func (r *ownerRepository) SetChallenge(ctx context.Context, ownerID, challenge string, issuedAt time.Time) error {
	query := `UPDATE vault_owner SET challenge = $2, challenge_issued_at = $3 WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, ownerID, challenge, issuedAt); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	return nil
}

func (r *ownerRepository) ClearChallenge(ctx context.Context, ownerID string) error {
	query := `UPDATE vault_owner SET challenge = NULL, challenge_issued_at = NULL WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, ownerID); err != nil {
		return fmt.Errorf("failed to clear challenge: %w", err)
	}

	return nil
}
