package store_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/types/optional"

	"keyrelay/internal/domain"
	"keyrelay/internal/kv/sqlkv"
	"keyrelay/internal/store"
)

func openTable(t *testing.T, name string) *sqlkv.Table {
	t.Helper()
	ctx := context.Background()
	db, err := sqlkv.Open(ctx, sqlkv.Config{Driver: "sqlite", DSN: ":memory:"})
	assert.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.NoError(t, db.Migrate(ctx, name))
	table, err := db.Table(name)
	assert.NoError(t, err)
	return table
}

func ecKey(id domain.KeyID) domain.PreKey {
	return domain.PreKey{KeyID: id, PublicKey: []byte(fmt.Sprintf("ec-%d", id))}
}

func pqKey(id domain.KeyID) domain.SignedPreKey {
	return domain.SignedPreKey{
		KeyID:     id,
		PublicKey: []byte(fmt.Sprintf("kem-%d", id)),
		Signature: []byte(fmt.Sprintf("sig-%d", id)),
	}
}

func TestSingleUseECPreKeyStore(t *testing.T) {
	testSingleUsePreKeyStore(t, func(t *testing.T) domain.SingleUsePreKeyStore[domain.PreKey] {
		return store.NewSingleUseECPreKeyStore(openTable(t, "ec_keys"))
	}, ecKey)
}

func TestSingleUseKEMPreKeyStore(t *testing.T) {
	testSingleUsePreKeyStore(t, func(t *testing.T) domain.SingleUsePreKeyStore[domain.SignedPreKey] {
		return store.NewSingleUseKEMPreKeyStore(openTable(t, "pq_keys"))
	}, pqKey)
}

// testSingleUsePreKeyStore exercises the behaviour every one-time store shares.
func testSingleUsePreKeyStore[K domain.PreKeyRecord](
	t *testing.T,
	newStore func(t *testing.T) domain.SingleUsePreKeyStore[K],
	key func(domain.KeyID) K,
) {
	t.Helper()
	account := domain.NewAccountID()
	const device = domain.PrimaryDeviceID

	t.Run("TakeInKeyOrder", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		assert.NoError(t, s.Store(ctx, account, device, []K{key(2), key(1)}))

		got, err := s.Take(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, optional.Some(key(1)), got)

		got, err = s.Take(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, optional.Some(key(2)), got)

		got, err = s.Take(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, optional.None[K](), got)
	})

	t.Run("StoreReplaces", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		assert.NoError(t, s.Store(ctx, account, device, []K{key(1)}))
		assert.NoError(t, s.Store(ctx, account, device, []K{key(2)}))

		count, err := s.Count(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, 1, count)

		got, err := s.Take(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, optional.Some(key(2)), got)
	})

	t.Run("EmptyBatchIsNoop", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		assert.NoError(t, s.Store(ctx, account, device, []K{key(1), key(2)}))
		assert.NoError(t, s.Store(ctx, account, device, nil))
		assert.NoError(t, s.Store(ctx, account, device, []K{}))

		count, err := s.Count(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("InvalidBatchLeavesKeys", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		assert.NoError(t, s.Store(ctx, account, device, []K{key(1)}))

		err := s.Store(ctx, account, device, []K{key(5), key(5)})
		assert.IsError(t, err, domain.ErrInvalidBatch)

		tooMany := make([]K, 0, domain.MaxPreKeyBatchSize+1)
		for i := range domain.MaxPreKeyBatchSize + 1 {
			tooMany = append(tooMany, key(domain.KeyID(i)))
		}
		err = s.Store(ctx, account, device, tooMany)
		assert.IsError(t, err, domain.ErrInvalidBatch)

		got, err := s.Take(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, optional.Some(key(1)), got)
	})

	t.Run("ConcurrentTakeAtMostOnce", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		const stored, callers = 30, 60
		keys := make([]K, 0, stored)
		for i := range stored {
			keys = append(keys, key(domain.KeyID(i)))
		}
		assert.NoError(t, s.Store(ctx, account, device, keys))

		var (
			mu    sync.Mutex
			wg    sync.WaitGroup
			ids   []domain.KeyID
			empty int
		)
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := s.Take(ctx, account, device)
				assert.NoError(t, err)
				mu.Lock()
				defer mu.Unlock()
				if k, ok := got.Get(); ok {
					ids = append(ids, k.ID())
				} else {
					empty++
				}
			}()
		}
		wg.Wait()

		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		want := make([]domain.KeyID, stored)
		for i := range want {
			want[i] = domain.KeyID(i)
		}
		assert.Equal(t, want, ids)
		assert.Equal(t, callers-stored, empty)
	})

	t.Run("DevicesAreIndependent", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		assert.NoError(t, s.Store(ctx, account, 1, []K{key(1), key(2)}))
		assert.NoError(t, s.Store(ctx, account, 2, []K{key(3)}))
		assert.NoError(t, s.Store(ctx, account, 1, []K{key(4)}))

		count, err := s.Count(ctx, account, 2)
		assert.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("Delete", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)
		other := domain.NewAccountID()
		assert.NoError(t, s.Store(ctx, account, 1, []K{key(1)}))
		assert.NoError(t, s.Store(ctx, account, 2, []K{key(2)}))
		assert.NoError(t, s.Store(ctx, account, 3, []K{key(3)}))
		assert.NoError(t, s.Store(ctx, other, 1, []K{key(4)}))

		assert.NoError(t, s.DeleteDevice(ctx, account, 1))
		assertCounts(ctx, t, s, account, map[domain.DeviceID]int{1: 0, 2: 1, 3: 1})

		assert.NoError(t, s.DeleteAccount(ctx, account))
		assertCounts(ctx, t, s, account, map[domain.DeviceID]int{1: 0, 2: 0, 3: 0})
		assertCounts(ctx, t, s, other, map[domain.DeviceID]int{1: 1})

		assert.NoError(t, s.DeleteAccount(ctx, account))
		assert.NoError(t, s.DeleteDevice(ctx, account, 1))
	})
}

func assertCounts[K domain.PreKeyRecord](
	ctx context.Context,
	t *testing.T,
	s domain.SingleUsePreKeyStore[K],
	account domain.AccountID,
	want map[domain.DeviceID]int,
) {
	t.Helper()
	for device, n := range want {
		count, err := s.Count(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, n, count, "device %d", device)
	}
}
