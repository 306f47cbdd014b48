package store

import (
	"context"
	"fmt"

	"github.com/alecthomas/types/optional"
	"github.com/rs/zerolog"

	"keyrelay/internal/domain"
	"keyrelay/internal/kv"
)

// SingleUsePreKeyStore keeps one-time pre-keys of type K in a kv.Table.
type SingleUsePreKeyStore[K domain.PreKeyRecord] struct {
	table kv.Table
}

var (
	_ domain.ECPreKeyStore                             = (*SingleUsePreKeyStore[domain.PreKey])(nil)
	_ domain.SingleUsePreKeyStore[domain.SignedPreKey] = (*SingleUsePreKeyStore[domain.SignedPreKey])(nil)
)

// NewSingleUsePreKeyStore returns a store over table.
func NewSingleUsePreKeyStore[K domain.PreKeyRecord](table kv.Table) *SingleUsePreKeyStore[K] {
	return &SingleUsePreKeyStore[K]{table: table}
}

// NewSingleUseECPreKeyStore returns the store for one-time elliptic-curve keys.
func NewSingleUseECPreKeyStore(table kv.Table) *SingleUsePreKeyStore[domain.PreKey] {
	return NewSingleUsePreKeyStore[domain.PreKey](table)
}

func oneTime(account domain.AccountID, device domain.DeviceID) kv.Partition {
	return kv.Partition{Account: account, Device: device, Bucket: kv.BucketOneTime}
}

// Store replaces the device's one-time keys with keys.
//
// The batch is validated before anything is written. An empty batch is a
// no-op so callers can update one category at a time.
func (s *SingleUsePreKeyStore[K]) Store(
	ctx context.Context,
	account domain.AccountID,
	device domain.DeviceID,
	keys []K,
) error {
	if len(keys) == 0 {
		return nil
	}
	if err := domain.ValidatePreKeys(keys); err != nil {
		return err
	}
	items, err := encodeItems(keys)
	if err != nil {
		return err
	}
	if err := s.table.Replace(ctx, oneTime(account, device), items); err != nil {
		return fmt.Errorf("store one-time keys: %w", err)
	}
	return nil
}

// Take removes and returns the one-time key with the smallest id.
func (s *SingleUsePreKeyStore[K]) Take(
	ctx context.Context,
	account domain.AccountID,
	device domain.DeviceID,
) (optional.Option[K], error) {
	taken, err := s.table.TakeFirst(ctx, oneTime(account, device))
	if err != nil {
		return optional.None[K](), fmt.Errorf("take one-time key: %w", err)
	}
	item, ok := taken.Get()
	if !ok {
		zerolog.Ctx(ctx).Debug().
			Str("table", s.table.Name()).
			Stringer("account", account).
			Stringer("device", device).
			Msg("one-time keys exhausted")
		return optional.None[K](), nil
	}
	key, err := decodeItem[K](item)
	if err != nil {
		return optional.None[K](), err
	}
	return optional.Some(key), nil
}

// Count returns the number of one-time keys stored for the device.
func (s *SingleUsePreKeyStore[K]) Count(ctx context.Context, account domain.AccountID, device domain.DeviceID) (int, error) {
	n, err := s.table.Count(ctx, oneTime(account, device))
	if err != nil {
		return 0, fmt.Errorf("count one-time keys: %w", err)
	}
	return n, nil
}

// DeleteAccount removes every key of every device of account.
func (s *SingleUsePreKeyStore[K]) DeleteAccount(ctx context.Context, account domain.AccountID) error {
	return s.table.DeleteAccount(ctx, account)
}

// DeleteDevice removes every key of one device.
func (s *SingleUsePreKeyStore[K]) DeleteDevice(ctx context.Context, account domain.AccountID, device domain.DeviceID) error {
	return s.table.DeleteDevice(ctx, account, device)
}
