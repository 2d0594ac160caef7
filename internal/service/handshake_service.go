package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
	"notevault-server/pkg/words"
)

const (
	secretWordCount  = 8
	codeGenAttempts  = 5
	sessionCodeSpace = 1000000
)

// HandshakeWindows are the per-phase deadlines of a pairing session. Each
// completed phase replaces the deadline with a fresh window for the next.
type HandshakeWindows struct {
	Join    time.Duration
	Confirm time.Duration
	Fetch   time.Duration
}

// HandshakeService drives the device pairing state machine. A session is
// identified by a short display code and a spoken word secret; the plaintext
// secret is handed to the initiator once and only its digest is kept.
type HandshakeService struct {
	handshakes repository.HandshakeRepository
	windows    HandshakeWindows

	now func() time.Time
}

func NewHandshakeService(handshakes repository.HandshakeRepository, windows HandshakeWindows) *HandshakeService {
	return &HandshakeService{
		handshakes: handshakes,
		windows:    windows,
		now:        time.Now,
	}
}

// Init opens a pairing session on behalf of the authenticated initiator. The
// session code may be client-chosen; a collision with a live session is
// reported rather than silently replaced. Server-generated codes retry a few
// times before giving up.
func (s *HandshakeService) Init(ctx context.Context, ownerID string, req *domain.InitHandshakeRequest) (*domain.InitHandshakeResponse, error) {
	secret, err := words.Secret(secretWordCount)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session secret: %w", err)
	}

	now := s.now()
	h := &domain.Handshake{
		OwnerID:      ownerID,
		SecretHash:   digest(secret),
		InitiatorKey: req.PublicKey,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.windows.Join),
	}

	if req.SessionCode != "" {
		h.Code = req.SessionCode
		if err := s.createOrReap(ctx, h); err != nil {
			if errors.Is(err, repository.ErrCodeTaken) {
				return nil, domain.E(domain.KindCodeConflict, "session code already in use")
			}
			return nil, err
		}
	} else {
		created := false
		for range codeGenAttempts {
			h.Code, err = generateSessionCode()
			if err != nil {
				return nil, err
			}
			err = s.createOrReap(ctx, h)
			if err == nil {
				created = true
				break
			}
			if !errors.Is(err, repository.ErrCodeTaken) {
				return nil, err
			}
		}
		if !created {
			return nil, domain.E(domain.KindCodeConflict, "could not allocate a session code")
		}
	}

	return &domain.InitHandshakeResponse{
		SessionCode:   h.Code,
		SessionSecret: secret,
		ExpiresAt:     h.ExpiresAt.UnixMilli(),
	}, nil
}

// createOrReap inserts the session, first clearing a same-code row that has
// already expired. Live collisions still surface as ErrCodeTaken.
func (s *HandshakeService) createOrReap(ctx context.Context, h *domain.Handshake) error {
	err := s.handshakes.Create(ctx, h)
	if !errors.Is(err, repository.ErrCodeTaken) {
		return err
	}

	existing, findErr := s.handshakes.FindByCode(ctx, h.Code)
	if findErr != nil {
		return findErr
	}
	if existing == nil || !existing.ExpiredAt(s.now()) {
		return err
	}

	if delErr := s.handshakes.Delete(ctx, existing.Code); delErr != nil {
		return delErr
	}

	return s.handshakes.Create(ctx, h)
}

// Join attaches the new device to a session it located by secret (and code,
// when provided). Completing the join grants a fresh confirm window.
func (s *HandshakeService) Join(ctx context.Context, req *domain.JoinHandshakeRequest) (*domain.JoinHandshakeResponse, error) {
	h, err := s.resolve(ctx, req.SessionCode, req.SessionSecret)
	if err != nil {
		return nil, err
	}

	if h.Status() != domain.HandshakeAwaitingJoin {
		return nil, domain.E(domain.KindAlreadyJoined, "a device already joined this session")
	}

	expiresAt := s.now().Add(s.windows.Confirm)
	landed, err := s.handshakes.SetJoiner(ctx, h.Code, req.PublicKey, expiresAt)
	if err != nil {
		return nil, err
	}
	if !landed {
		// Another device won the race between the status check and the write.
		return nil, domain.E(domain.KindAlreadyJoined, "a device already joined this session")
	}

	return &domain.JoinHandshakeResponse{ExpiresAt: expiresAt.UnixMilli()}, nil
}

// InitiatorStatus is the initiator's poll. It reveals the joiner's public key
// once a device joins, and never the payload; the payload is for the joiner.
func (s *HandshakeService) InitiatorStatus(ctx context.Context, ownerID string, ref *domain.HandshakeRef) (*domain.HandshakeStatusResponse, error) {
	h, err := s.resolve(ctx, ref.SessionCode, ref.SessionSecret)
	if err != nil {
		return nil, err
	}
	if h.OwnerID != ownerID {
		return nil, domain.E(domain.KindHandshakeNotFound, "pairing session not found")
	}

	return &domain.HandshakeStatusResponse{
		Status:        h.Status(),
		ExpiresAt:     h.ExpiresAt.UnixMilli(),
		PeerPublicKey: h.JoinerKey,
	}, nil
}

// JoinerStatus is the joining device's poll. Once the session is finished it
// returns the encrypted payload exactly once and deletes the session; a
// second poll finds nothing.
func (s *HandshakeService) JoinerStatus(ctx context.Context, ref *domain.HandshakeRef) (*domain.HandshakeStatusResponse, error) {
	h, err := s.resolve(ctx, ref.SessionCode, ref.SessionSecret)
	if err != nil {
		return nil, err
	}

	resp := &domain.HandshakeStatusResponse{
		Status:        h.Status(),
		ExpiresAt:     h.ExpiresAt.UnixMilli(),
		PeerPublicKey: h.InitiatorKey,
	}

	if h.Status() == domain.HandshakeFinished {
		resp.EncryptedPayload = h.Payload
		resp.IV = h.PayloadIV
		if err := s.handshakes.Delete(ctx, h.Code); err != nil {
			return nil, err
		}
	}

	return resp, nil
}

// Confirm stores the payload the initiator encrypted for the joiner and
// grants the short fetch window.
func (s *HandshakeService) Confirm(ctx context.Context, ownerID string, req *domain.ConfirmHandshakeRequest) (*domain.HandshakeStatusResponse, error) {
	h, err := s.resolve(ctx, req.SessionCode, req.SessionSecret)
	if err != nil {
		return nil, err
	}
	if h.OwnerID != ownerID {
		return nil, domain.E(domain.KindHandshakeNotFound, "pairing session not found")
	}

	switch h.Status() {
	case domain.HandshakeAwaitingJoin:
		return nil, domain.E(domain.KindNoJoinYet, "no device has joined this session")
	case domain.HandshakeFinished:
		return nil, domain.E(domain.KindAlreadyConfirmed, "this session was already confirmed")
	}

	expiresAt := s.now().Add(s.windows.Fetch)
	landed, err := s.handshakes.SetPayload(ctx, h.Code, req.EncryptedPayload, req.IV, expiresAt)
	if err != nil {
		return nil, err
	}
	if !landed {
		return nil, domain.E(domain.KindAlreadyConfirmed, "this session was already confirmed")
	}

	return &domain.HandshakeStatusResponse{
		Status:        domain.HandshakeFinished,
		ExpiresAt:     expiresAt.UnixMilli(),
		PeerPublicKey: h.JoinerKey,
	}, nil
}

// Cancel tears the session down. Either side may bail out at any phase;
// knowing the secret is the authorization. Cancelling a session that is
// already gone succeeds.
func (s *HandshakeService) Cancel(ctx context.Context, ref *domain.HandshakeRef) error {
	h, err := s.resolve(ctx, ref.SessionCode, ref.SessionSecret)
	if err != nil {
		if domain.KindOf(err) == domain.KindHandshakeNotFound || domain.KindOf(err) == domain.KindHandshakeExpired {
			return nil
		}
		return err
	}

	return s.handshakes.Delete(ctx, h.Code)
}

// resolve locates a session by secret, or by code with the secret checked
// against the stored digest. Expired sessions are reaped on touch and
// reported distinctly from ones that never existed.
func (s *HandshakeService) resolve(ctx context.Context, code, secret string) (*domain.Handshake, error) {
	var (
		h   *domain.Handshake
		err error
	)
	if code != "" {
		h, err = s.handshakes.FindByCode(ctx, code)
	} else {
		h, err = s.handshakes.FindBySecretHash(ctx, digest(secret))
	}
	if err != nil {
		return nil, err
	}
	if h == nil || h.SecretHash != digest(secret) {
		return nil, domain.E(domain.KindHandshakeNotFound, "pairing session not found")
	}

	if h.ExpiredAt(s.now()) {
		if err := s.handshakes.Delete(ctx, h.Code); err != nil {
			return nil, err
		}
		return nil, domain.E(domain.KindHandshakeExpired, "pairing session expired")
	}

	return h, nil
}

func generateSessionCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(sessionCodeSpace))
	if err != nil {
		return "", fmt.Errorf("failed to generate session code: %w", err)
	}

	return fmt.Sprintf("%06d", n.Int64()), nil
}
