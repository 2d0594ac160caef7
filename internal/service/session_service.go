package service

import (
	"context"
	"crypto/sha256"
	"io"
	"sync"
	"time"

	"golang.org/x/crypto/hkdf"

	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
	"notevault-server/pkg/token"
)

const (
	// minSecretLen is the floor below which the deployment secret is
	// rejected as misconfigured.
	minSecretLen = 32

	// maxLifetimeFactor caps a session's total lifetime across sliding
	// renewals at this multiple of the TTL.
	maxLifetimeFactor = 12
)

// SessionService is the session authority plus credential gate: it issues and
// verifies bearer tokens, and on every authenticated request re-checks that
// the bound credential still exists so revocation takes effect immediately,
// not at token expiry.
type SessionService struct {
	secret      string
	ttl         time.Duration
	credentials repository.CredentialRepository

	initOnce   sync.Once
	initErr    error
	signingKey []byte

	now func() time.Time
}

func NewSessionService(secret string, ttl time.Duration, credentials repository.CredentialRepository) *SessionService {
	return &SessionService{
		secret:      secret,
		ttl:         ttl,
		credentials: credentials,
		now:         time.Now,
	}
}

// init derives the signing key once. A weak secret poisons every later call
// rather than being re-checked per request.
func (s *SessionService) init() error {
	s.initOnce.Do(func() {
		if len(s.secret) < minSecretLen {
			s.initErr = domain.E(domain.KindMisconfigured, "VAULT_SECRET must be at least 32 bytes")
			return
		}

		kdf := hkdf.New(sha256.New, []byte(s.secret), nil, []byte("session-signing"))
		key := make([]byte, 32)
		if _, err := io.ReadFull(kdf, key); err != nil {
			s.initErr = domain.Wrap(domain.KindMisconfigured, "failed to derive signing key", err)
			return
		}
		s.signingKey = key
	})

	return s.initErr
}

func (s *SessionService) TTL() time.Duration { return s.ttl }

// Issue signs a fresh token for a newly authenticated device.
func (s *SessionService) Issue(ownerID, credentialID string) (string, error) {
	if err := s.init(); err != nil {
		return "", err
	}

	tok, err := token.Generate(ownerID, credentialID, s.now(), s.ttl, s.signingKey)
	if err != nil {
		return "", domain.Wrap(domain.KindInternal, "failed to sign session token", err)
	}

	return tok, nil
}

// Verify checks authenticity of the claim only; it does not consult storage.
func (s *SessionService) Verify(tokenString string) (*token.Claims, error) {
	if err := s.init(); err != nil {
		return nil, err
	}

	claims, err := token.Validate(tokenString, s.signingKey)
	if err != nil {
		return nil, domain.Wrap(domain.KindUnauthorized, "invalid or expired session", err)
	}

	return claims, nil
}

// Authenticate verifies the token and then confirms the referenced credential
// still exists. A valid token whose credential is gone means the device was
// revoked after issuance; callers surface that distinctly so the client locks
// and re-pairs instead of retrying login.
//
// When less than a third of the TTL remains, a renewed token is returned
// alongside the claims; the original issuance instant travels in the claims
// so renewal never extends a session past its hard lifetime cap.
func (s *SessionService) Authenticate(ctx context.Context, tokenString string) (*token.Claims, string, error) {
	claims, err := s.Verify(tokenString)
	if err != nil {
		return nil, "", err
	}

	cred, err := s.credentials.FindByID(ctx, claims.CredentialID)
	if err != nil {
		return nil, "", err
	}
	if cred == nil || cred.OwnerID != claims.OwnerID {
		return nil, "", domain.E(domain.KindDeviceRevoked, "this device was removed from the vault")
	}

	renewed := ""
	now := s.now()
	firstIssued := time.Unix(claims.FirstIssuedAt, 0)
	if claims.ExpiresAt != nil &&
		claims.ExpiresAt.Sub(now) < s.ttl/3 &&
		now.Sub(firstIssued) < time.Duration(maxLifetimeFactor)*s.ttl {
		renewed, err = token.Generate(claims.OwnerID, claims.CredentialID, firstIssued, s.ttl, s.signingKey)
		if err != nil {
			// The current token is still good; renewal failure is not
			// worth failing the request over.
			renewed = ""
		}
	}

	return claims, renewed, nil
}
