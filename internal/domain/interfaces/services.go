package interfaces

import (
	"context"

	"github.com/alecthomas/types/optional"
	sets "github.com/deckarep/golang-set/v2"

	domaintypes "keyrelay/internal/domain/types"
)

// KeysService is the only entry point collaborators use to manage pre-keys.
type KeysService interface {
	Store(
		ctx context.Context,
		account domaintypes.AccountID,
		device domaintypes.DeviceID,
		upload domaintypes.PreKeyUpload,
	) error
	StoreECOneTime(
		ctx context.Context,
		account domaintypes.AccountID,
		device domaintypes.DeviceID,
		keys []domaintypes.PreKey,
	) error
	StorePQLastResort(
		ctx context.Context,
		account domaintypes.AccountID,
		keys map[domaintypes.DeviceID]domaintypes.SignedPreKey,
	) error
	StoreECSignedPreKeys(
		ctx context.Context,
		account domaintypes.AccountID,
		keys map[domaintypes.DeviceID]domaintypes.SignedPreKey,
	) error

	TakeEC(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (optional.Option[domaintypes.PreKey], error)
	TakePQ(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (optional.Option[domaintypes.SignedPreKey], error)
	TakeDeviceKeys(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (domaintypes.DeviceKeys, error)

	GetECCount(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (int, error)
	GetPQCount(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (int, error)
	GetLastResort(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (optional.Option[domaintypes.SignedPreKey], error)
	GetECSignedPreKey(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (optional.Option[domaintypes.SignedPreKey], error)
	IsPQEnabled(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) (bool, error)
	GetPQEnabledDevices(ctx context.Context, account domaintypes.AccountID) (sets.Set[domaintypes.DeviceID], error)

	DeleteAccount(ctx context.Context, account domaintypes.AccountID) error
	DeleteDevice(ctx context.Context, account domaintypes.AccountID, device domaintypes.DeviceID) error
}

// SignatureVerifier checks a signature made by an identity key.
type SignatureVerifier interface {
	Verify(identityKey, message, signature []byte) bool
}
