package types

import "github.com/alecthomas/types/optional"

// MaxPreKeyBatchSize bounds the number of one-time keys accepted in one upload.
const MaxPreKeyBatchSize = 100

// PreKeyRecord is implemented by every stored pre-key variant.
type PreKeyRecord interface {
	// ID returns the key id used for uniqueness and take order.
	ID() KeyID
	// PublicKeyBytes returns the opaque serialized public key.
	PublicKeyBytes() []byte
}

// PreKey is an unsigned one-time elliptic-curve pre-key.
type PreKey struct {
	KeyID     KeyID  `json:"keyId"`
	PublicKey []byte `json:"publicKey"`
}

// ID returns the key id.
func (k PreKey) ID() KeyID { return k.KeyID }

// PublicKeyBytes returns the public key.
func (k PreKey) PublicKeyBytes() []byte { return k.PublicKey }

// SignedPreKey is a pre-key whose public key is signed by the device's identity key.
//
// It carries post-quantum one-time and last-resort KEM keys as well as the
// repeated-use elliptic-curve signed pre-key.
type SignedPreKey struct {
	KeyID     KeyID  `json:"keyId"`
	PublicKey []byte `json:"publicKey"`
	Signature []byte `json:"signature"`
}

// ID returns the key id.
func (k SignedPreKey) ID() KeyID { return k.KeyID }

// PublicKeyBytes returns the public key.
func (k SignedPreKey) PublicKeyBytes() []byte { return k.PublicKey }

// PreKeyUpload is one device's upload. Absent fields leave the matching
// category untouched.
type PreKeyUpload struct {
	ECOneTime    []PreKey
	PQOneTime    []SignedPreKey
	PQLastResort optional.Option[SignedPreKey]
	ECSigned     optional.Option[SignedPreKey]
}

// DeviceKeys is what a peer receives when it starts a session with one device.
type DeviceKeys struct {
	Device   DeviceID
	ECSigned optional.Option[SignedPreKey]
	EC       optional.Option[PreKey]
	PQ       optional.Option[SignedPreKey]
}
