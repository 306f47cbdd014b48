package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/alecthomas/types/optional"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/spf13/viper"

	"keyrelay/internal/domain"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New(), "")
	assert.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:keyrelay.db", cfg.Database.DSN)
	assert.Equal(t, []string{"ec_keys", "pq_keys", "repeated_use_signed_keys"}, cfg.tableNames())
	assert.Equal(t, 4, cfg.Retry.Attempts)
	assert.Equal(t, 10*time.Millisecond, cfg.Retry.Min)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.Max)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keyrelay.yaml")
	err := os.WriteFile(path, []byte(`
database:
  driver: pgx
  dsn: postgres://localhost/keys
tables:
  pq_keys: kem_keys
retry:
  max: 2s
`), 0o600)
	assert.NoError(t, err)
	t.Setenv("KEYRELAY_DATABASE_DSN", "postgres://db/keys")

	cfg, err := LoadConfig(viper.New(), path)
	assert.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "postgres://db/keys", cfg.Database.DSN)
	assert.Equal(t, "kem_keys", cfg.Tables.PQKeys)
	assert.Equal(t, "ec_keys", cfg.Tables.ECKeys)
	assert.Equal(t, 2*time.Second, cfg.Retry.Max)
}

type fakeSecrets struct {
	values map[string]*string
}

func (f fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	v, ok := f.values[aws.ToString(in.SecretId)]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: v}, nil
}

func secretsFrom(values map[string]*string) func(context.Context) (secretGetter, error) {
	return func(context.Context) (secretGetter, error) { return fakeSecrets{values: values}, nil }
}

func TestResolveDSN(t *testing.T) {
	ctx := context.Background()
	secrets := secretsFrom(map[string]*string{
		"prod/keyrelay/dsn": aws.String(":memory:"),
		"binary":            nil,
	})
	noSecrets := func(context.Context) (secretGetter, error) {
		t.Fatal("secrets manager should not be used")
		return nil, nil
	}

	var cfg Config
	cfg.Database.DSN = "file:local.db"
	dsn, err := resolveDSN(ctx, cfg, noSecrets)
	assert.NoError(t, err)
	assert.Equal(t, "file:local.db", dsn)

	cfg.Database.DSNSecret = "prod/keyrelay/dsn"
	dsn, err = resolveDSN(ctx, cfg, secrets)
	assert.NoError(t, err)
	assert.Equal(t, ":memory:", dsn)

	cfg.Database.DSNSecret = "binary"
	_, err = resolveDSN(ctx, cfg, secrets)
	assert.EqualError(t, err, "secret binary is not a string")

	cfg.Database.DSNSecret = "missing"
	_, err = resolveDSN(ctx, cfg, secrets)
	assert.Error(t, err)
}

func TestWire(t *testing.T) {
	ctx := context.Background()
	cfg, err := LoadConfig(viper.New(), "")
	assert.NoError(t, err)
	cfg.Database.DSNSecret = "dsn"

	w, err := newWire(ctx, cfg, secretsFrom(map[string]*string{"dsn": aws.String(":memory:")}))
	assert.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })
	assert.NoError(t, w.Migrate(ctx))
	assert.NoError(t, w.Migrate(ctx))

	account := domain.NewAccountID()
	last := domain.SignedPreKey{KeyID: 9, PublicKey: []byte("kem"), Signature: []byte("sig")}
	err = w.Keys.Store(ctx, account, domain.PrimaryDeviceID, domain.PreKeyUpload{
		ECOneTime:    []domain.PreKey{{KeyID: 1, PublicKey: []byte("ec")}},
		PQLastResort: optional.Some(last),
	})
	assert.NoError(t, err)

	bundle, err := w.Keys.TakeDeviceKeys(ctx, account, domain.PrimaryDeviceID)
	assert.NoError(t, err)
	assert.Equal(t, optional.Some(domain.PreKey{KeyID: 1, PublicKey: []byte("ec")}), bundle.EC)
	assert.Equal(t, optional.Some(last), bundle.PQ)
}

func TestWireRejectsBadTableName(t *testing.T) {
	cfg, err := LoadConfig(viper.New(), "")
	assert.NoError(t, err)
	cfg.Database.DSN = ":memory:"
	cfg.Tables.ECKeys = "ec-keys"
	_, err = NewWire(context.Background(), cfg)
	assert.Error(t, err)
}
