package token

import (
	"testing"
	"time"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func TestGenerateAndValidate(t *testing.T) {
	tests := []struct {
		name         string
		ownerID      string
		credentialID string
		ttl          time.Duration
	}{
		{
			name:         "standard session",
			ownerID:      "owner-123",
			credentialID: "cred-456",
			ttl:          15 * time.Minute,
		},
		{
			name:         "long session",
			ownerID:      "owner-789",
			credentialID: "cred-012",
			ttl:          24 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := Generate(tt.ownerID, tt.credentialID, time.Now(), tt.ttl, testKey)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if token == "" {
				t.Fatal("Generate() returned empty token")
			}

			claims, err := Validate(token, testKey)
			if err != nil {
				t.Fatalf("Validate() error = %v", err)
			}
			if claims.OwnerID != tt.ownerID {
				t.Errorf("owner id = %s, want %s", claims.OwnerID, tt.ownerID)
			}
			if claims.CredentialID != tt.credentialID {
				t.Errorf("credential id = %s, want %s", claims.CredentialID, tt.credentialID)
			}
		})
	}
}

func TestValidate_WrongKey(t *testing.T) {
	token, err := Generate("owner1", "cred1", time.Now(), 15*time.Minute, testKey)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := Validate(token, []byte("another-key-entirely-32-bytes!!!")); err == nil {
		t.Error("Validate() accepted a token signed under a different key")
	}
}

func TestValidate_Expired(t *testing.T) {
	token, err := Generate("owner1", "cred1", time.Now(), -time.Minute, testKey)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if _, err := Validate(token, testKey); err == nil {
		t.Error("Validate() accepted an expired token")
	}
}

func TestValidate_Garbage(t *testing.T) {
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		if _, err := Validate(tok, testKey); err == nil {
			t.Errorf("Validate(%q) accepted garbage", tok)
		}
	}
}

func TestFirstIssuedAtSurvivesRenewal(t *testing.T) {
	firstIssued := time.Now().Add(-time.Hour).Truncate(time.Second)

	token, err := Generate("owner1", "cred1", firstIssued, 15*time.Minute, testKey)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	claims, err := Validate(token, testKey)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.FirstIssuedAt != firstIssued.Unix() {
		t.Errorf("first issued = %d, want %d", claims.FirstIssuedAt, firstIssued.Unix())
	}
}
