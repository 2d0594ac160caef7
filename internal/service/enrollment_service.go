package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"notevault-server/internal/authn"
	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
)

const enrollTokenPrefix = "enr_"

// EnrollmentService mints and redeems one-time device enrollment tokens, the
// out-of-band alternative to a live pairing session.
type EnrollmentService struct {
	enrollments repository.EnrollmentRepository
	credentials repository.CredentialRepository
	sessions    *SessionService
	verifier    authn.Verifier
	tokenTTL    time.Duration

	now func() time.Time
}

func NewEnrollmentService(
	enrollments repository.EnrollmentRepository,
	credentials repository.CredentialRepository,
	sessions *SessionService,
	verifier authn.Verifier,
	tokenTTL time.Duration,
) *EnrollmentService {
	return &EnrollmentService{
		enrollments: enrollments,
		credentials: credentials,
		sessions:    sessions,
		verifier:    verifier,
		tokenTTL:    tokenTTL,
		now:         time.Now,
	}
}

// CreateToken mints a token for the given owner. The plaintext is returned
// exactly once; only its digest is stored.
func (s *EnrollmentService) CreateToken(ctx context.Context, ownerID string) (*domain.CreateEnrollmentResponse, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate enrollment token: %w", err)
	}
	plaintext := enrollTokenPrefix + hex.EncodeToString(raw)

	now := s.now()
	expiresAt := now.Add(s.tokenTTL)

	err := s.enrollments.Create(ctx, &domain.DeviceEnrollment{
		TokenHash: digest(plaintext),
		OwnerID:   ownerID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}

	return &domain.CreateEnrollmentResponse{
		Token:     plaintext,
		ExpiresAt: expiresAt.UnixMilli(),
	}, nil
}

// Claim redeems a token and registers the new device's credential, carrying
// the wrapped master key handed over out of band. The claim is vetted
// against an unspent read first, so a failed ceremony or a duplicate
// credential does not burn the token; the consume itself is atomic, so
// concurrent claims of the same token admit at most one device. A session
// for the new device is issued on success.
func (s *EnrollmentService) Claim(ctx context.Context, req *domain.ClaimEnrollmentRequest) (string, error) {
	tokenHash := digest(req.Token)

	pending, err := s.enrollments.Find(ctx, tokenHash)
	if err != nil {
		return "", err
	}
	if pending == nil {
		return "", domain.E(domain.KindUnauthorized, "invalid enrollment token")
	}
	if s.now().After(pending.ExpiresAt) {
		// Expiry spends the token. The reap keeps a dead row from lingering.
		if _, err := s.enrollments.Consume(ctx, tokenHash); err != nil {
			return "", err
		}
		return "", domain.E(domain.KindUnauthorized, "enrollment token expired")
	}

	if err := s.verifier.VerifyRegistration("", req.PublicKey, req.Attestation); err != nil {
		return "", domain.Wrap(domain.KindUnauthorized, "registration ceremony failed", err)
	}

	existing, err := s.credentials.FindByID(ctx, req.CredentialID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", domain.E(domain.KindInvalidBody, "credential id already registered")
	}

	enrollment, err := s.enrollments.Consume(ctx, tokenHash)
	if err != nil {
		return "", err
	}
	if enrollment == nil {
		// A concurrent claim spent the token between the read and here.
		return "", domain.E(domain.KindUnauthorized, "invalid enrollment token")
	}

	now := s.now()
	cred := &domain.Credential{
		ID:           req.CredentialID,
		OwnerID:      enrollment.OwnerID,
		PublicKey:    req.PublicKey,
		Label:        req.Label,
		KeySalt:      req.KeySalt,
		WrappedKey:   req.WrappedKey,
		WrappedKeyIV: req.WrappedKeyIV,
		CreatedAt:    now,
		LastUsedAt:   now,
	}
	if err := s.credentials.Create(ctx, cred); err != nil {
		return "", err
	}

	return s.sessions.Issue(enrollment.OwnerID, cred.ID)
}
