package interfaces

import (
	"context"

	"github.com/alecthomas/types/optional"
	sets "github.com/deckarep/golang-set/v2"

	domaintypes "keyrelay/internal/domain/types"
)

// SingleUsePreKeyStore hands out each stored one-time pre-key at most once.
type SingleUsePreKeyStore[K domaintypes.PreKeyRecord] interface {
	// Store replaces every one-time key of the device with keys. An empty
	// batch leaves the stored keys untouched.
	Store(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID, keys []K) error
	// Take removes and returns the key with the smallest id.
	Take(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (optional.Option[K], error)
	// Count is informational and may lag concurrent Store and Take calls.
	Count(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (int, error)
	DeleteAccount(ctx context.Context, account domaintypes.AccountID) error
	DeleteDevice(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) error
}

// ECPreKeyStore holds one-time elliptic-curve pre-keys.
type ECPreKeyStore = SingleUsePreKeyStore[domaintypes.PreKey]

// KEMPreKeyStore holds one-time post-quantum pre-keys and each device's
// last-resort key. Take falls back to the last-resort key, which it never
// removes.
type KEMPreKeyStore interface {
	SingleUsePreKeyStore[domaintypes.SignedPreKey]

	StoreLastResort(
		ctx context.Context,
		account domaintypes.AccountID,
		device domaintypes.DeviceID,
		key domaintypes.SignedPreKey,
	) error
	StoreLastResortKeys(
		ctx context.Context,
		account domaintypes.AccountID,
		keys map[domaintypes.DeviceID]domaintypes.SignedPreKey,
	) error
	GetLastResort(
		ctx context.Context,
		account domaintypes.AccountID,
		device domaintypes.DeviceID,
	) (optional.Option[domaintypes.SignedPreKey], error)
	IsPQEnabled(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (bool, error)
	PQEnabledDevices(ctx context.Context, account domaintypes.AccountID) (sets.Set[domaintypes.DeviceID], error)
}

// RepeatedUseSignedPreKeyStore keeps the one reusable signed elliptic-curve
// pre-key per device.
type RepeatedUseSignedPreKeyStore interface {
	Store(
		ctx context.Context,
		account domaintypes.AccountID,
		device domaintypes.DeviceID,
		key domaintypes.SignedPreKey,
	) error
	StoreAll(
		ctx context.Context,
		account domaintypes.AccountID,
		keys map[domaintypes.DeviceID]domaintypes.SignedPreKey,
	) error
	Get(
		ctx context.Context,
		account domaintypes.AccountID,
		device domaintypes.DeviceID,
	) (optional.Option[domaintypes.SignedPreKey], error)
	DeleteAccount(ctx context.Context, account domaintypes.AccountID) error
	DeleteDevice(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) error
}
