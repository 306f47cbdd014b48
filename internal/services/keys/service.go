package keys

import (
	"context"
	"fmt"

	"github.com/alecthomas/types/optional"
	sets "github.com/deckarep/golang-set/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"keyrelay/internal/domain"
)

// Service implements domain.KeysService over the three pre-key stores.
type Service struct {
	ec      domain.ECPreKeyStore
	pq      domain.KEMPreKeyStore
	signed  domain.RepeatedUseSignedPreKeyStore
	metrics *metrics
}

var _ domain.KeysService = (*Service)(nil)

// New returns a Service. Metric instruments that fail to initialise fall
// back to no-ops; the failure is logged.
func New(
	ctx context.Context,
	ec domain.ECPreKeyStore,
	pq domain.KEMPreKeyStore,
	signed domain.RepeatedUseSignedPreKeyStore,
) *Service {
	m, err := initMetrics()
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("keys metrics unavailable")
	}
	return &Service{ec: ec, pq: pq, signed: signed, metrics: m}
}

// Store writes every category present in upload. All categories are
// validated before any of them is written; each category is then replaced
// atomically on its own.
func (s *Service) Store(
	ctx context.Context,
	account domain.AccountID,
	device domain.DeviceID,
	upload domain.PreKeyUpload,
) error {
	if err := validateUpload(upload); err != nil {
		return err
	}
	wg, ctx := errgroup.WithContext(ctx)
	if len(upload.ECOneTime) > 0 {
		wg.Go(func() error {
			if err := s.ec.Store(ctx, account, device, upload.ECOneTime); err != nil {
				return fmt.Errorf("ec one-time keys: %w", err)
			}
			s.metrics.Stored(ctx, keyTypeEC, len(upload.ECOneTime))
			return nil
		})
	}
	if len(upload.PQOneTime) > 0 {
		wg.Go(func() error {
			if err := s.pq.Store(ctx, account, device, upload.PQOneTime); err != nil {
				return fmt.Errorf("pq one-time keys: %w", err)
			}
			s.metrics.Stored(ctx, keyTypePQ, len(upload.PQOneTime))
			return nil
		})
	}
	if key, ok := upload.PQLastResort.Get(); ok {
		wg.Go(func() error {
			if err := s.pq.StoreLastResort(ctx, account, device, key); err != nil {
				return fmt.Errorf("pq last-resort key: %w", err)
			}
			s.metrics.Stored(ctx, keyTypePQLastResort, 1)
			return nil
		})
	}
	if key, ok := upload.ECSigned.Get(); ok {
		wg.Go(func() error {
			if err := s.signed.Store(ctx, account, device, key); err != nil {
				return fmt.Errorf("ec signed key: %w", err)
			}
			s.metrics.Stored(ctx, keyTypeECSigned, 1)
			return nil
		})
	}
	return wg.Wait()
}

func validateUpload(upload domain.PreKeyUpload) error {
	if err := domain.ValidatePreKeys(upload.ECOneTime); err != nil {
		return fmt.Errorf("ec one-time keys: %w", err)
	}
	if err := domain.ValidatePreKeys(upload.PQOneTime); err != nil {
		return fmt.Errorf("pq one-time keys: %w", err)
	}
	if key, ok := upload.PQLastResort.Get(); ok {
		if err := domain.ValidatePreKey(key); err != nil {
			return fmt.Errorf("pq last-resort key: %w", err)
		}
	}
	if key, ok := upload.ECSigned.Get(); ok {
		if err := domain.ValidatePreKey(key); err != nil {
			return fmt.Errorf("ec signed key: %w", err)
		}
	}
	return nil
}

// StoreECOneTime replaces the device's one-time elliptic-curve keys.
func (s *Service) StoreECOneTime(
	ctx context.Context,
	account domain.AccountID,
	device domain.DeviceID,
	keys []domain.PreKey,
) error {
	return s.Store(ctx, account, device, domain.PreKeyUpload{ECOneTime: keys})
}

// StorePQLastResort replaces the last-resort key of each device in keys,
// typically every enabled device of the account after an identity key
// change. Devices are updated independently.
func (s *Service) StorePQLastResort(
	ctx context.Context,
	account domain.AccountID,
	keys map[domain.DeviceID]domain.SignedPreKey,
) error {
	if err := s.pq.StoreLastResortKeys(ctx, account, keys); err != nil {
		return fmt.Errorf("pq last-resort keys: %w", err)
	}
	s.metrics.Stored(ctx, keyTypePQLastResort, len(keys))
	return nil
}

// StoreECSignedPreKeys replaces the repeated-use signed key of each device in keys.
func (s *Service) StoreECSignedPreKeys(
	ctx context.Context,
	account domain.AccountID,
	keys map[domain.DeviceID]domain.SignedPreKey,
) error {
	if err := s.signed.StoreAll(ctx, account, keys); err != nil {
		return fmt.Errorf("ec signed keys: %w", err)
	}
	s.metrics.Stored(ctx, keyTypeECSigned, len(keys))
	return nil
}

// TakeEC removes and returns one one-time elliptic-curve key.
func (s *Service) TakeEC(ctx context.Context, account domain.AccountID, device domain.DeviceID) (optional.Option[domain.PreKey], error) {
	key, err := s.ec.Take(ctx, account, device)
	if err != nil {
		return key, err
	}
	s.metrics.Taken(ctx, keyTypeEC, key.Ok())
	return key, nil
}

// TakePQ removes and returns one one-time post-quantum key, or returns the
// last-resort key when none are left.
func (s *Service) TakePQ(ctx context.Context, account domain.AccountID, device domain.DeviceID) (optional.Option[domain.SignedPreKey], error) {
	key, err := s.pq.Take(ctx, account, device)
	if err != nil {
		return key, err
	}
	s.metrics.Taken(ctx, keyTypePQ, key.Ok())
	return key, nil
}

// TakeDeviceKeys returns what a peer needs to start a session with the
// device: its signed key, one elliptic-curve key and one post-quantum key.
func (s *Service) TakeDeviceKeys(ctx context.Context, account domain.AccountID, device domain.DeviceID) (domain.DeviceKeys, error) {
	out := domain.DeviceKeys{Device: device}
	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() (err error) {
		out.ECSigned, err = s.signed.Get(ctx, account, device)
		return err
	})
	wg.Go(func() (err error) {
		out.EC, err = s.TakeEC(ctx, account, device)
		return err
	})
	wg.Go(func() (err error) {
		out.PQ, err = s.TakePQ(ctx, account, device)
		return err
	})
	if err := wg.Wait(); err != nil {
		return domain.DeviceKeys{}, err
	}
	return out, nil
}

// GetECCount returns the number of one-time elliptic-curve keys stored.
func (s *Service) GetECCount(ctx context.Context, account domain.AccountID, device domain.DeviceID) (int, error) {
	return s.ec.Count(ctx, account, device)
}

// GetPQCount returns the number of one-time post-quantum keys stored. The
// last-resort key is not counted.
func (s *Service) GetPQCount(ctx context.Context, account domain.AccountID, device domain.DeviceID) (int, error) {
	return s.pq.Count(ctx, account, device)
}

func (s *Service) GetLastResort(ctx context.Context, account domain.AccountID, device domain.DeviceID) (optional.Option[domain.SignedPreKey], error) {
	return s.pq.GetLastResort(ctx, account, device)
}

func (s *Service) GetECSignedPreKey(ctx context.Context, account domain.AccountID, device domain.DeviceID) (optional.Option[domain.SignedPreKey], error) {
	return s.signed.Get(ctx, account, device)
}

func (s *Service) IsPQEnabled(ctx context.Context, account domain.AccountID, device domain.DeviceID) (bool, error) {
	return s.pq.IsPQEnabled(ctx, account, device)
}

// GetPQEnabledDevices returns the devices of account holding a last-resort key.
func (s *Service) GetPQEnabledDevices(ctx context.Context, account domain.AccountID) (sets.Set[domain.DeviceID], error) {
	return s.pq.PQEnabledDevices(ctx, account)
}

// DeleteAccount removes every key of every device of account from all stores.
func (s *Service) DeleteAccount(ctx context.Context, account domain.AccountID) error {
	wg, gctx := errgroup.WithContext(ctx)
	wg.Go(func() error { return s.ec.DeleteAccount(gctx, account) })
	wg.Go(func() error { return s.pq.DeleteAccount(gctx, account) })
	wg.Go(func() error { return s.signed.DeleteAccount(gctx, account) })
	if err := wg.Wait(); err != nil {
		return fmt.Errorf("delete keys of account %s: %w", account, err)
	}
	zerolog.Ctx(ctx).Info().Stringer("account", account).Msg("deleted account keys")
	return nil
}

// DeleteDevice removes every key of one device from all stores.
func (s *Service) DeleteDevice(ctx context.Context, account domain.AccountID, device domain.DeviceID) error {
	wg, gctx := errgroup.WithContext(ctx)
	wg.Go(func() error { return s.ec.DeleteDevice(gctx, account, device) })
	wg.Go(func() error { return s.pq.DeleteDevice(gctx, account, device) })
	wg.Go(func() error { return s.signed.DeleteDevice(gctx, account, device) })
	if err := wg.Wait(); err != nil {
		return fmt.Errorf("delete keys of device %d: %w", device, err)
	}
	zerolog.Ctx(ctx).Info().Stringer("account", account).Stringer("device", device).Msg("deleted device keys")
	return nil
}
