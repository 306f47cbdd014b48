package commands

import (
	"github.com/alecthomas/types/optional"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
)

// uploadFile is the public half written by generate and read by upload.
type uploadFile struct {
	IdentityKey  []byte                `json:"identityKey"`
	ECOneTime    []domain.PreKey       `json:"ecOneTimePreKeys,omitempty"`
	PQOneTime    []domain.SignedPreKey `json:"pqOneTimePreKeys,omitempty"`
	PQLastResort *domain.SignedPreKey  `json:"pqLastResortPreKey,omitempty"`
	ECSigned     *domain.SignedPreKey  `json:"ecSignedPreKey,omitempty"`
}

// signedKeys returns every key that carries a signature.
func (f uploadFile) signedKeys() []domain.SignedPreKey {
	keys := append([]domain.SignedPreKey(nil), f.PQOneTime...)
	if f.PQLastResort != nil {
		keys = append(keys, *f.PQLastResort)
	}
	if f.ECSigned != nil {
		keys = append(keys, *f.ECSigned)
	}
	return keys
}

func (f uploadFile) verify(verifier domain.SignatureVerifier) bool {
	return crypto.ValidatePreKeySignatures(verifier, f.IdentityKey, f.signedKeys()...)
}

func (f uploadFile) upload() domain.PreKeyUpload {
	return domain.PreKeyUpload{
		ECOneTime:    f.ECOneTime,
		PQOneTime:    f.PQOneTime,
		PQLastResort: optional.Ptr(f.PQLastResort),
		ECSigned:     optional.Ptr(f.ECSigned),
	}
}

// secretFile holds the private halves matching an uploadFile. It is only
// ever written sealed.
type secretFile struct {
	IdentityKey  []byte                  `json:"identityKey"`
	ECOneTime    map[domain.KeyID][]byte `json:"ecOneTimePreKeys"`
	PQOneTime    map[domain.KeyID][]byte `json:"pqOneTimePreKeys"`
	PQLastResort []byte                  `json:"pqLastResortPreKey"`
	ECSigned     []byte                  `json:"ecSignedPreKey"`
}

func (s *secretFile) wipe() {
	crypto.Wipe(s.IdentityKey)
	for _, b := range s.ECOneTime {
		crypto.Wipe(b)
	}
	for _, b := range s.PQOneTime {
		crypto.Wipe(b)
	}
	crypto.Wipe(s.PQLastResort)
	crypto.Wipe(s.ECSigned)
}

// keyView is the printable form of a stored key.
type keyView struct {
	KeyID       domain.KeyID `json:"keyId"`
	Fingerprint string       `json:"fingerprint"`
}

func viewOf[K domain.PreKeyRecord](key optional.Option[K]) *keyView {
	k, ok := key.Get()
	if !ok {
		return nil
	}
	return &keyView{KeyID: k.ID(), Fingerprint: crypto.Fingerprint(k.PublicKeyBytes())}
}
