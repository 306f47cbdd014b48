package crypto

import (
	"crypto/ed25519"

	"keyrelay/internal/domain"
)

// Ed25519Verifier checks Ed25519 signatures over raw public key bytes.
type Ed25519Verifier struct{}

var _ domain.SignatureVerifier = Ed25519Verifier{}

// Verify reports whether signature is a valid signature of message by identityKey.
func (Ed25519Verifier) Verify(identityKey, message, signature []byte) bool {
	if len(identityKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(identityKey), message, signature)
}

// ValidatePreKeySignatures reports whether every key's signature over its
// public key verifies against identityKey. No keys is trivially valid.
func ValidatePreKeySignatures(verifier domain.SignatureVerifier, identityKey []byte, keys ...domain.SignedPreKey) bool {
	for _, k := range keys {
		if !verifier.Verify(identityKey, k.PublicKey, k.Signature) {
			return false
		}
	}
	return true
}
