package store_test

import (
	"context"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/types/optional"

	"keyrelay/internal/domain"
	"keyrelay/internal/store"
)

func TestLastResortFallback(t *testing.T) {
	ctx := context.Background()
	s := store.NewSingleUseKEMPreKeyStore(openTable(t, "pq_keys"))
	account := domain.NewAccountID()
	const device = domain.PrimaryDeviceID
	last := pqKey(100)

	assert.NoError(t, s.Store(ctx, account, device, []domain.SignedPreKey{pqKey(1)}))
	assert.NoError(t, s.StoreLastResort(ctx, account, device, last))

	count, err := s.Count(ctx, account, device)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := s.Take(ctx, account, device)
	assert.NoError(t, err)
	assert.Equal(t, optional.Some(pqKey(1)), got)

	for range 3 {
		got, err = s.Take(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, optional.Some(last), got)
	}

	stored, err := s.GetLastResort(ctx, account, device)
	assert.NoError(t, err)
	assert.Equal(t, optional.Some(last), stored)
}

func TestLastResortIndependentOfOneTime(t *testing.T) {
	ctx := context.Background()
	s := store.NewSingleUseKEMPreKeyStore(openTable(t, "pq_keys"))
	account := domain.NewAccountID()
	const device = domain.PrimaryDeviceID

	assert.NoError(t, s.StoreLastResort(ctx, account, device, pqKey(100)))
	assert.NoError(t, s.Store(ctx, account, device, []domain.SignedPreKey{pqKey(1), pqKey(2)}))
	assert.NoError(t, s.StoreLastResort(ctx, account, device, pqKey(101)))

	count, err := s.Count(ctx, account, device)
	assert.NoError(t, err)
	assert.Equal(t, 2, count)

	last, err := s.GetLastResort(ctx, account, device)
	assert.NoError(t, err)
	assert.Equal(t, optional.Some(pqKey(101)), last)
}

func TestStoreLastResortKeys(t *testing.T) {
	ctx := context.Background()
	s := store.NewSingleUseKEMPreKeyStore(openTable(t, "pq_keys"))
	account := domain.NewAccountID()

	assert.NoError(t, s.Store(ctx, account, 1, []domain.SignedPreKey{pqKey(1)}))
	assert.NoError(t, s.StoreLastResort(ctx, account, 3, pqKey(30)))

	err := s.StoreLastResortKeys(ctx, account, map[domain.DeviceID]domain.SignedPreKey{
		1: pqKey(10),
		2: pqKey(20),
	})
	assert.NoError(t, err)

	for device, want := range map[domain.DeviceID]domain.SignedPreKey{1: pqKey(10), 2: pqKey(20), 3: pqKey(30)} {
		got, err := s.GetLastResort(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, optional.Some(want), got)
	}
	count, err := s.Count(ctx, account, 1)
	assert.NoError(t, err)
	assert.Equal(t, 1, count)

	err = s.StoreLastResortKeys(ctx, account, map[domain.DeviceID]domain.SignedPreKey{
		1: pqKey(11),
		2: {KeyID: 21},
	})
	assert.IsError(t, err, domain.ErrInvalidBatch)
	got, err := s.GetLastResort(ctx, account, 1)
	assert.NoError(t, err)
	assert.Equal(t, optional.Some(pqKey(10)), got)
}

func TestPQEnabled(t *testing.T) {
	ctx := context.Background()
	s := store.NewSingleUseKEMPreKeyStore(openTable(t, "pq_keys"))
	account := domain.NewAccountID()

	// Device 1 has one-time keys only, device 2 a last-resort key only,
	// device 3 both.
	assert.NoError(t, s.Store(ctx, account, 1, []domain.SignedPreKey{pqKey(1)}))
	assert.NoError(t, s.StoreLastResort(ctx, account, 2, pqKey(2)))
	assert.NoError(t, s.Store(ctx, account, 3, []domain.SignedPreKey{pqKey(3)}))
	assert.NoError(t, s.StoreLastResort(ctx, account, 3, pqKey(4)))

	for device, want := range map[domain.DeviceID]bool{1: false, 2: true, 3: true, 4: false} {
		enabled, err := s.IsPQEnabled(ctx, account, device)
		assert.NoError(t, err)
		assert.Equal(t, want, enabled, "device %d", device)
	}

	devices, err := s.PQEnabledDevices(ctx, account)
	assert.NoError(t, err)
	assert.True(t, devices.Equal(setOf(2, 3)), "got %v", devices)

	assert.NoError(t, s.DeleteDevice(ctx, account, 2))
	devices, err = s.PQEnabledDevices(ctx, account)
	assert.NoError(t, err)
	assert.True(t, devices.Equal(setOf(3)), "got %v", devices)

	assert.NoError(t, s.DeleteAccount(ctx, account))
	devices, err = s.PQEnabledDevices(ctx, account)
	assert.NoError(t, err)
	assert.Equal(t, 0, devices.Cardinality())
}
