package domain

import (
	interfaces "keyrelay/internal/domain/interfaces"
	types "keyrelay/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	AccountID      = types.AccountID
	DeviceID       = types.DeviceID
	KeyID          = types.KeyID
	PreKeyRecord   = types.PreKeyRecord
	PreKey         = types.PreKey
	SignedPreKey   = types.SignedPreKey
	PreKeyUpload   = types.PreKeyUpload
	DeviceKeys     = types.DeviceKeys
	X25519Public   = types.X25519Public
	X25519Private  = types.X25519Private
	Ed25519Public  = types.Ed25519Public
	Ed25519Private = types.Ed25519Private
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	SingleUsePreKeyStore[K types.PreKeyRecord] = interfaces.SingleUsePreKeyStore[K]

	ECPreKeyStore                = interfaces.ECPreKeyStore
	KEMPreKeyStore               = interfaces.KEMPreKeyStore
	RepeatedUseSignedPreKeyStore = interfaces.RepeatedUseSignedPreKeyStore
	KeysService                  = interfaces.KeysService
	SignatureVerifier            = interfaces.SignatureVerifier
)

// Sentinel errors.
var (
	ErrStorageUnavailable = types.ErrStorageUnavailable
	ErrInvalidBatch       = types.ErrInvalidBatch
)

// Constants.
const (
	PrimaryDeviceID    = types.PrimaryDeviceID
	MaxPreKeyBatchSize = types.MaxPreKeyBatchSize
)

// NewAccountID returns a random account identifier.
func NewAccountID() AccountID { return types.NewAccountID() }

// ParseAccountID parses the canonical string form of an account identifier.
func ParseAccountID(s string) (AccountID, error) { return types.ParseAccountID(s) }

// ValidatePreKeys checks a one-time batch before it is written.
func ValidatePreKeys[K PreKeyRecord](keys []K) error { return types.ValidatePreKeys(keys) }

// ValidatePreKey checks a single key.
func ValidatePreKey(k PreKeyRecord) error { return types.ValidatePreKey(k) }
