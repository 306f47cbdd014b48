package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"keyrelay/internal/kv/sqlkv"
)

// EnvPrefix is prepended to every environment override, e.g.
// KEYRELAY_DATABASE_DSN for database.dsn.
const EnvPrefix = "KEYRELAY"

// Config holds runtime wiring options for building the app.
type Config struct {
	Database struct {
		Driver       string `mapstructure:"driver"`     // sqlite or pgx
		DSN          string `mapstructure:"dsn"`        // ignored when DSNSecret is set
		DSNSecret    string `mapstructure:"dsn_secret"` // AWS Secrets Manager secret id
		MaxOpenConns int    `mapstructure:"max_open_conns"`
	} `mapstructure:"database"`

	AWS struct {
		Region   string `mapstructure:"region"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"aws"`

	Tables struct {
		ECKeys                string `mapstructure:"ec_keys"`
		PQKeys                string `mapstructure:"pq_keys"`
		RepeatedUseSignedKeys string `mapstructure:"repeated_use_signed_keys"`
	} `mapstructure:"tables"`

	Retry struct {
		Attempts int           `mapstructure:"attempts"`
		Min      time.Duration `mapstructure:"min"`
		Max      time.Duration `mapstructure:"max"`
	} `mapstructure:"retry"`

	Log struct {
		Level string `mapstructure:"level"`
		JSON  bool   `mapstructure:"json"`
	} `mapstructure:"log"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "file:keyrelay.db")
	v.SetDefault("database.dsn_secret", "")
	v.SetDefault("database.max_open_conns", 16)
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("tables.ec_keys", "ec_keys")
	v.SetDefault("tables.pq_keys", "pq_keys")
	v.SetDefault("tables.repeated_use_signed_keys", "repeated_use_signed_keys")
	v.SetDefault("retry.attempts", sqlkv.DefaultRetry.Attempts)
	v.SetDefault("retry.min", sqlkv.DefaultRetry.Min)
	v.SetDefault("retry.max", sqlkv.DefaultRetry.Max)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// LoadConfig reads Config from v. When configFile is not empty it is read
// first; environment variables override both the file and the defaults.
func LoadConfig(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func (c Config) sqlConfig(dsn string) sqlkv.Config {
	return sqlkv.Config{
		Driver:       c.Database.Driver,
		DSN:          dsn,
		MaxOpenConns: c.Database.MaxOpenConns,
		Retry: sqlkv.RetryConfig{
			Attempts: c.Retry.Attempts,
			Min:      c.Retry.Min,
			Max:      c.Retry.Max,
		},
	}
}

func (c Config) tableNames() []string {
	return []string{c.Tables.ECKeys, c.Tables.PQKeys, c.Tables.RepeatedUseSignedKeys}
}
