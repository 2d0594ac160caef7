// Package authn abstracts the platform-authenticator ceremony. The server
// treats attestation and assertion blobs as opaque: a Verifier answers
// "verified" or "not verified" for a given challenge and nothing more.
package authn

import "errors"

var ErrNotVerified = errors.New("authenticator response not verified")

type Verifier interface {
	// VerifyRegistration checks an authenticator registration response for a
	// new credential's public key.
	VerifyRegistration(challenge, publicKey, response string) error

	// VerifyAssertion checks a possession proof against an existing
	// credential's public key.
	VerifyAssertion(challenge, publicKey, response string) error
}

// AcceptAll trusts any non-empty authenticator response. It is the default
// for deployments that terminate the WebAuthn ceremony in the client and use
// the server purely as encrypted storage; swap in a real verifier at
// construction for server-side ceremonies.
type AcceptAll struct{}

func (AcceptAll) VerifyRegistration(challenge, publicKey, response string) error {
	if response == "" {
		return ErrNotVerified
	}
	return nil
}

func (AcceptAll) VerifyAssertion(challenge, publicKey, response string) error {
	if response == "" {
		return ErrNotVerified
	}
	return nil
}
