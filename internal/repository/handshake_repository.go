package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"notevault-server/internal/domain"
)

// ErrCodeTaken reports a unique-key collision on insert, so the caller can
// retry with a fresh session code.
var ErrCodeTaken = errors.New("session code already in use")

type HandshakeRepository interface {
	Create(ctx context.Context, h *domain.Handshake) error
	FindByCode(ctx context.Context, code string) (*domain.Handshake, error)
	FindBySecretHash(ctx context.Context, secretHash string) (*domain.Handshake, error)
	// SetJoiner and SetPayload write each slot at most once and report
	// whether the write landed, so racing callers cannot overwrite each
	// other after both passed the status check.
	SetJoiner(ctx context.Context, code, joinerKey string, expiresAt time.Time) (bool, error)
	SetPayload(ctx context.Context, code, payload, iv string, expiresAt time.Time) (bool, error)
	// Delete is idempotent: removing an absent session is not an error.
	Delete(ctx context.Context, code string) error
}

type handshakeRepository struct {
	db *sql.DB
}

func NewHandshakeRepository(db *sql.DB) HandshakeRepository {
	return &handshakeRepository{db: db}
}

const pgUniqueViolation = "23505"

func (r *handshakeRepository) Create(ctx context.Context, h *domain.Handshake) error {
	query := `INSERT INTO handshakes (code, owner_id, secret_hash, initiator_key, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		h.Code, h.OwnerID, h.SecretHash, h.InitiatorKey, h.CreatedAt, h.ExpiresAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrCodeTaken
		}
		return fmt.Errorf("failed to create handshake: %w", err)
	}

	return nil
}

func (r *handshakeRepository) FindByCode(ctx context.Context, code string) (*domain.Handshake, error) {
	return r.findWhere(ctx, "code = $1", code)
}

func (r *handshakeRepository) FindBySecretHash(ctx context.Context, secretHash string) (*domain.Handshake, error) {
	return r.findWhere(ctx, "secret_hash = $1", secretHash)
}

func (r *handshakeRepository) findWhere(ctx context.Context, cond string, arg any) (*domain.Handshake, error) {
	query := `SELECT code, owner_id, secret_hash, initiator_key, joiner_key, payload, payload_iv, created_at, expires_at
		FROM handshakes WHERE ` + cond

	var (
		h         domain.Handshake
		joinerKey sql.NullString
		payload   sql.NullString
		payloadIV sql.NullString
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&h.Code, &h.OwnerID, &h.SecretHash, &h.InitiatorKey,
		&joinerKey, &payload, &payloadIV, &h.CreatedAt, &h.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find handshake: %w", err)
	}

	h.JoinerKey = joinerKey.String
	h.Payload = payload.String
	h.PayloadIV = payloadIV.String

	return &h, nil
}

func (r *handshakeRepository) SetJoiner(ctx context.Context, code, joinerKey string, expiresAt time.Time) (bool, error) {
	query := `UPDATE handshakes SET joiner_key = $2, expires_at = $3
		WHERE code = $1 AND joiner_key IS NULL`

	res, err := r.db.ExecContext(ctx, query, code, joinerKey, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to store joiner key: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (r *handshakeRepository) SetPayload(ctx context.Context, code, payload, iv string, expiresAt time.Time) (bool, error) {
	query := `UPDATE handshakes SET payload = $2, payload_iv = $3, expires_at = $4
		WHERE code = $1 AND payload IS NULL`

	res, err := r.db.ExecContext(ctx, query, code, payload, iv, expiresAt)
	if err != nil {
		return false, fmt.Errorf("failed to store handshake payload: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}

	return n == 1, nil
}

func (r *handshakeRepository) Delete(ctx context.Context, code string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM handshakes WHERE code = $1`, code); err != nil {
		return fmt.Errorf("failed to delete handshake: %w", err)
	}

	return nil
}
