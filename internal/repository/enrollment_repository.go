package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"notevault-server/internal/domain"
)

type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *domain.DeviceEnrollment) error
	// Find reads the token row without spending it, so a claim can be
	// vetted before the token burns.
	Find(ctx context.Context, tokenHash string) (*domain.DeviceEnrollment, error)
	// Consume deletes the token row and returns it in one statement, so a
	// token can be redeemed at most once even under concurrent claims.
	Consume(ctx context.Context, tokenHash string) (*domain.DeviceEnrollment, error)
}

type enrollmentRepository struct {
	db *sql.DB
}

func NewEnrollmentRepository(db *sql.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) Create(ctx context.Context, enrollment *domain.DeviceEnrollment) error {
	query := `INSERT INTO device_enrollments (token_hash, owner_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query,
		enrollment.TokenHash, enrollment.OwnerID, enrollment.CreatedAt, enrollment.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create enrollment token: %w", err)
	}

	return nil
}

func (r *enrollmentRepository) Find(ctx context.Context, tokenHash string) (*domain.DeviceEnrollment, error) {
	query := `SELECT token_hash, owner_id, created_at, expires_at
		FROM device_enrollments WHERE token_hash = $1`

	var e domain.DeviceEnrollment
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&e.TokenHash, &e.OwnerID, &e.CreatedAt, &e.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find enrollment token: %w", err)
	}

	return &e, nil
}

func (r *enrollmentRepository) Consume(ctx context.Context, tokenHash string) (*domain.DeviceEnrollment, error) {
	query := `DELETE FROM device_enrollments WHERE token_hash = $1
		RETURNING token_hash, owner_id, created_at, expires_at`

	var e domain.DeviceEnrollment
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&e.TokenHash, &e.OwnerID, &e.CreatedAt, &e.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume enrollment token: %w", err)
	}

	return &e, nil
}
