package store

import (
	"context"
	"fmt"

	"github.com/alecthomas/types/optional"
	"golang.org/x/sync/errgroup"

	"keyrelay/internal/domain"
	"keyrelay/internal/kv"
)

// RepeatedUseSignedPreKeyStore keeps the single reusable signed
// elliptic-curve key of each device. Keys are replaced, never consumed.
type RepeatedUseSignedPreKeyStore struct {
	table kv.Table
}

var _ domain.RepeatedUseSignedPreKeyStore = (*RepeatedUseSignedPreKeyStore)(nil)

// NewRepeatedUseSignedPreKeyStore returns a store over table.
func NewRepeatedUseSignedPreKeyStore(table kv.Table) *RepeatedUseSignedPreKeyStore {
	return &RepeatedUseSignedPreKeyStore{table: table}
}

func repeatedUse(account domain.AccountID, device domain.DeviceID) kv.Partition {
	return kv.Partition{Account: account, Device: device, Bucket: kv.BucketRepeatedUse}
}

func (s *RepeatedUseSignedPreKeyStore) Store(
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
	if err := s.table.Replace(ctx, repeatedUse(account, device), []kv.Item{item}); err != nil {
		return fmt.Errorf("store signed key for device %d: %w", device, err)
	}
	return nil
}

func (s *RepeatedUseSignedPreKeyStore) StoreAll(
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
		wg.Go(func() error { return s.Store(ctx, account, device, key) })
	}
	return wg.Wait()
}

func (s *RepeatedUseSignedPreKeyStore) Get(
	ctx context.Context,
	account domain.AccountID,
	device domain.DeviceID,
) (optional.Option[domain.SignedPreKey], error) {
	first, err := s.table.First(ctx, repeatedUse(account, device))
	if err != nil {
		return optional.None[domain.SignedPreKey](), fmt.Errorf("get signed key: %w", err)
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

func (s *RepeatedUseSignedPreKeyStore) DeleteAccount(ctx context.Context, account domain.AccountID) error {
	return s.table.DeleteAccount(ctx, account)
}

func (s *RepeatedUseSignedPreKeyStore) DeleteDevice(ctx context.Context, account domain.AccountID, device domain.DeviceID) error {
	return s.table.DeleteDevice(ctx, account, device)
}
