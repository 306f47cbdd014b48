package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"keyrelay/internal/domain"
	"keyrelay/internal/kv/sqlkv"
	"keyrelay/internal/services/keys"
	"keyrelay/internal/store"
)

// Wire bundles the database, stores and the keys service for the CLI.
type Wire struct {
	DB         *sqlkv.DB
	ECKeys     *store.SingleUsePreKeyStore[domain.PreKey]
	PQKeys     *store.SingleUseKEMPreKeyStore
	SignedKeys *store.RepeatedUseSignedPreKeyStore
	Keys       domain.KeysService
	tableNames []string
}

// NewWire constructs the dependency graph from cfg. Tables are not created;
// call Migrate for that.
func NewWire(ctx context.Context, cfg Config) (*Wire, error) {
	return newWire(ctx, cfg, func(ctx context.Context) (secretGetter, error) {
		return newSecretsClient(ctx, cfg)
	})
}

func newWire(ctx context.Context, cfg Config, secrets func(context.Context) (secretGetter, error)) (*Wire, error) {
	dsn, err := resolveDSN(ctx, cfg, secrets)
	if err != nil {
		return nil, err
	}
	db, err := sqlkv.Open(ctx, cfg.sqlConfig(dsn))
	if err != nil {
		return nil, err
	}

	tables := make([]*sqlkv.Table, 0, 3)
	for _, name := range cfg.tableNames() {
		t, err := db.Table(name)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		tables = append(tables, t)
	}

	ec := store.NewSingleUseECPreKeyStore(tables[0])
	pq := store.NewSingleUseKEMPreKeyStore(tables[1])
	signed := store.NewRepeatedUseSignedPreKeyStore(tables[2])

	zerolog.Ctx(ctx).Debug().Str("driver", db.Driver()).Strs("tables", cfg.tableNames()).Msg("storage ready")

	return &Wire{
		DB:         db,
		ECKeys:     ec,
		PQKeys:     pq,
		SignedKeys: signed,
		Keys:       keys.New(ctx, ec, pq, signed),
		tableNames: cfg.tableNames(),
	}, nil
}

// Migrate creates the key tables if they do not exist.
func (w *Wire) Migrate(ctx context.Context) error {
	if err := w.DB.Migrate(ctx, w.tableNames...); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the database.
func (w *Wire) Close() error { return w.DB.Close() }
