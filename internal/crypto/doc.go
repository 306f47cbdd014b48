// Package crypto exposes the primitives keyrelay needs around pre-keys.
//
// Contents
//
//   - Ed25519 identity keys: generation, signing and verification
//     (GenerateEd25519, SignEd25519, VerifyEd25519, Ed25519Verifier)
//   - Pre-key generation: X25519 for elliptic-curve keys (GenerateX25519)
//     and ML-KEM-768 for post-quantum keys (GenerateMLKEM768)
//   - Signature checks over uploaded batches (ValidatePreKeySignatures)
//   - Passphrase sealing of private key material (Seal, Open) and the
//     passphrase strength policy (CheckPassphrase)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// The stores never call into this package. Signatures are checked by the
// caller before keys are handed to the keys service.
package crypto
