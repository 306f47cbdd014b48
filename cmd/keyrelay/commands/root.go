package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"keyrelay/internal/app"
)

type cli struct {
	v          *viper.Viper
	configFile string
	cfg        app.Config
}

// Execute runs the CLI with os.Args.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	root := &cobra.Command{
		Use:           "keyrelay",
		Short:         "Pre-key storage for end-to-end encrypted sessions",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(c.v, c.configFile)
			if err != nil {
				return err
			}
			c.cfg = cfg
			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			cmd.SetContext(logger.WithContext(cmd.Context()))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (yaml, toml or json)")
	flags.String("driver", "", "database driver: sqlite or pgx")
	flags.String("dsn", "", "database DSN")
	flags.String("log-level", "", "log level")
	flags.Bool("log-json", false, "log as JSON")
	for key, flag := range map[string]string{
		"database.driver": "driver",
		"database.dsn":    "dsn",
		"log.level":       "log-level",
		"log.json":        "log-json",
	} {
		if err := c.v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}

	root.AddCommand(
		migrateCmd(c),
		generateCmd(),
		uploadCmd(c),
		statusCmd(c),
		takeCmd(c),
		deleteCmd(c),
	)
	return root
}

func newLogger(cfg app.Config) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("log level: %w", err)
	}
	if cfg.Log.JSON {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger(), nil
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger(), nil
}

// withWire opens storage, runs fn and closes storage again.
func (c *cli) withWire(ctx context.Context, fn func(w *app.Wire) error) error {
	w, err := app.NewWire(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()
	return fn(w)
}
