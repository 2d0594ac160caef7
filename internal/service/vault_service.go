package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"notevault-server/internal/authn"
	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
)

// VaultService owns vault setup and login: the one-time owner bootstrap, the
// challenge/assertion login ceremony, and handing a device back its own
// wrapped master key.
type VaultService struct {
	owners       repository.OwnerRepository
	credentials  repository.CredentialRepository
	sessions     *SessionService
	verifier     authn.Verifier
	challengeTTL time.Duration

	now func() time.Time
}

func NewVaultService(
	owners repository.OwnerRepository,
	credentials repository.CredentialRepository,
	sessions *SessionService,
	verifier authn.Verifier,
	challengeTTL time.Duration,
) *VaultService {
	return &VaultService{
		owners:       owners,
		credentials:  credentials,
		sessions:     sessions,
		verifier:     verifier,
		challengeTTL: challengeTTL,
		now:          time.Now,
	}
}

// Init bootstraps the vault: the owner row and the first credential, carrying
// the client-wrapped master key. The guarded insert makes a second init fail
// no matter how the calls interleave.
func (s *VaultService) Init(ctx context.Context, req *domain.InitVaultRequest) (string, error) {
	if err := s.verifier.VerifyRegistration("", req.PublicKey, req.Attestation); err != nil {
		return "", domain.Wrap(domain.KindUnauthorized, "registration ceremony failed", err)
	}

	now := s.now()
	owner := &domain.VaultOwner{
		ID:          uuid.NewString(),
		DisplayName: req.DisplayName,
		CreatedAt:   now,
	}

	created, err := s.owners.CreateIfAbsent(ctx, owner)
	if err != nil {
		return "", err
	}
	if !created {
		return "", domain.E(domain.KindVaultAlreadyInitialized, "this vault is already set up")
	}

	cred := &domain.Credential{
		ID:           req.CredentialID,
		OwnerID:      owner.ID,
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

	return s.sessions.Issue(owner.ID, cred.ID)
}

// Challenge mints a fresh login challenge and stores it on the owner row.
// Issuing a new one invalidates any outstanding challenge.
func (s *VaultService) Challenge(ctx context.Context) (*domain.ChallengeResponse, error) {
	owner, err := s.owners.Get(ctx)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, domain.E(domain.KindVaultNotInitialized, "this vault has not been set up yet")
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}
	challenge := base64.RawURLEncoding.EncodeToString(raw)

	now := s.now()
	if err := s.owners.SetChallenge(ctx, owner.ID, challenge, now); err != nil {
		return nil, err
	}

	return &domain.ChallengeResponse{
		Challenge: challenge,
		ExpiresAt: now.Add(s.challengeTTL).UnixMilli(),
	}, nil
}

// VerifyLogin checks the assertion against the outstanding challenge and, on
// success, issues a session. The challenge is consumed on the attempt, pass
// or fail, so a captured assertion cannot be replayed.
func (s *VaultService) VerifyLogin(ctx context.Context, req *domain.LoginVerifyRequest) (string, error) {
	owner, err := s.owners.Get(ctx)
	if err != nil {
		return "", err
	}
	if owner == nil {
		return "", domain.E(domain.KindVaultNotInitialized, "this vault has not been set up yet")
	}

	if owner.Challenge == "" || owner.ChallengeIssuedAt == nil {
		return "", domain.E(domain.KindUnauthorized, "no login challenge outstanding")
	}
	if err := s.owners.ClearChallenge(ctx, owner.ID); err != nil {
		return "", err
	}
	if s.now().Sub(*owner.ChallengeIssuedAt) > s.challengeTTL {
		return "", domain.E(domain.KindUnauthorized, "login challenge expired")
	}

	cred, err := s.credentials.FindByID(ctx, req.CredentialID)
	if err != nil {
		return "", err
	}
	if cred == nil || cred.OwnerID != owner.ID {
		return "", domain.E(domain.KindUnauthorized, "unknown credential")
	}

	if err := s.verifier.VerifyAssertion(owner.Challenge, cred.PublicKey, req.Assertion); err != nil {
		return "", domain.Wrap(domain.KindUnauthorized, "assertion ceremony failed", err)
	}

	if err := s.credentials.Touch(ctx, cred.ID, cred.SignCount+1, s.now()); err != nil {
		return "", err
	}

	return s.sessions.Issue(owner.ID, cred.ID)
}

// WrappedKey returns the caller's own copy of the vault master key, still
// wrapped under the device's unwrapping key.
func (s *VaultService) WrappedKey(ctx context.Context, credentialID string) (*domain.WrappedKeyResponse, error) {
	cred, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, domain.E(domain.KindDeviceRevoked, "this device was removed from the vault")
	}

	return &domain.WrappedKeyResponse{
		KeySalt:      cred.KeySalt,
		WrappedKey:   cred.WrappedKey,
		WrappedKeyIV: cred.WrappedKeyIV,
	}, nil
}
