package store

import (
	"context"
	"fmt"

	"github.com/alecthomas/types/optional"
	sets "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"keyrelay/internal/domain"
	"keyrelay/internal/kv"
)

// SingleUseKEMPreKeyStore keeps one-time post-quantum keys and, in a
// separate bucket of the same table, each device's last-resort key.
type SingleUseKEMPreKeyStore struct {
	*SingleUsePreKeyStore[domain.SignedPreKey]
}

var _ domain.KEMPreKeyStore = (*SingleUseKEMPreKeyStore)(nil)

// NewSingleUseKEMPreKeyStore returns a store over table.
func NewSingleUseKEMPreKeyStore(table kv.Table) *SingleUseKEMPreKeyStore {
	return &SingleUseKEMPreKeyStore{NewSingleUsePreKeyStore[domain.SignedPreKey](table)}
}

func lastResort(account domain.AccountID, device domain.DeviceID) kv.Partition {
	return kv.Partition{Account: account, Device: device, Bucket: kv.BucketLastResort}
}

// Take removes and returns the one-time key with the smallest id. Once the
// one-time keys are gone it returns the last-resort key, which stays stored.
func (s *SingleUseKEMPreKeyStore) Take(
	ctx context.Context,
	account domain.AccountID,
	device domain.DeviceID,
) (optional.Option[domain.SignedPreKey], error) {
	key, err := s.SingleUsePreKeyStore.Take(ctx, account, device)
	if err != nil || key.Ok() {
		return key, err
	}
	key, err = s.GetLastResort(ctx, account, device)
	if err != nil {
		return key, err
	}
	if k, ok := key.Get(); ok {
		zerolog.Ctx(ctx).Debug().
			Stringer("account", account).
			Stringer("device", device).
			Stringer("key_id", k.KeyID).
			Msg("serving last-resort key")
	}
	return key, nil
}

// StoreLastResort replaces the device's last-resort key. One-time keys are
// left alone.
func (s *SingleUseKEMPreKeyStore) StoreLastResort(
	ctx context.Context,
	account domain.AccountID,
	device domain.DeviceID,
	key domain.SignedPreKey,
) error {
	if err := domain.ValidatePreKey(key); err != nil {
		return err
	}
	item, err := encodeItem(key)
	if err != nil {
		return err
	}
	if err := s.table.Replace(ctx, lastResort(account, device), []kv.Item{item}); err != nil {
		return fmt.Errorf("store last-resort key for device %d: %w", device, err)
	}
	return nil
}

// StoreLastResortKeys replaces the last-resort key of every device in keys.
// Each device is updated atomically on its own; there is no transaction
// spanning devices.
func (s *SingleUseKEMPreKeyStore) StoreLastResortKeys(
	ctx context.Context,
	account domain.AccountID,
	keys map[domain.DeviceID]domain.SignedPreKey,
) error {
	for _, key := range keys {
		if err := domain.ValidatePreKey(key); err != nil {
			return err
		}
	}
	wg, ctx := errgroup.WithContext(ctx)
	for device, key := range keys {
		wg.Go(func() error {
			return s.StoreLastResort(ctx, account, device, key)
		})
	}
	return wg.Wait()
}

// GetLastResort returns the device's last-resort key without removing it.
func (s *SingleUseKEMPreKeyStore) GetLastResort(
	ctx context.Context,
	account domain.AccountID,
	device domain.DeviceID,
) (optional.Option[domain.SignedPreKey], error) {
	first, err := s.table.First(ctx, lastResort(account, device))
	if err != nil {
		return optional.None[domain.SignedPreKey](), fmt.Errorf("get last-resort key: %w", err)
	}
	item, ok := first.Get()
	if !ok {
		return optional.None[domain.SignedPreKey](), nil
	}
	key, err := decodeItem[domain.SignedPreKey](item)
	if err != nil {
		return optional.None[domain.SignedPreKey](), err
	}
	return optional.Some(key), nil
}

// IsPQEnabled reports whether the device has a last-resort key. One-time
// keys alone do not count.
func (s *SingleUseKEMPreKeyStore) IsPQEnabled(ctx context.Context, account domain.AccountID, device domain.DeviceID) (bool, error) {
	n, err := s.table.Count(ctx, lastResort(account, device))
	if err != nil {
		return false, fmt.Errorf("check last-resort key: %w", err)
	}
	return n > 0, nil
}

// PQEnabledDevices returns the devices of account that have a last-resort key.
func (s *SingleUseKEMPreKeyStore) PQEnabledDevices(ctx context.Context, account domain.AccountID) (sets.Set[domain.DeviceID], error) {
	devices, err := s.table.Devices(ctx, account, kv.BucketLastResort)
	if err != nil {
		return nil, fmt.Errorf("list pq-enabled devices: %w", err)
	}
	return sets.NewSet(devices...), nil
}
