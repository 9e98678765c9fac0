// Package commands implements the keystone-cli command tree.
package commands

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/scrypster/keystone/internal/app"
	"github.com/scrypster/keystone/internal/config"
	"github.com/scrypster/keystone/internal/observability"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	envFile  string
	storage  string
	dataPath string
	seeds    string
	verbose  bool

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "keystone-cli",
		Short: "Keystone - Houston real estate assistant",
		Long: `Keystone answers real estate questions from a learned corpus of
question/answer records. The CLI asks questions, loads seed files and
reports on the corpus using the same storage as keystone-server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
	}

	root.PersistentFlags().StringVar(&opts.envFile, "env", ".env", "path to an optional .env file")
	root.PersistentFlags().StringVar(&opts.storage, "storage", "", "storage engine: sqlite, postgres or memory (overrides KEYSTONE_STORAGE_ENGINE)")
	root.PersistentFlags().StringVar(&opts.dataPath, "data", "", "data directory for sqlite (overrides KEYSTONE_DATA_PATH)")
	root.PersistentFlags().StringVar(&opts.seeds, "seeds", "", "seed file or directory loaded before the command (overrides KEYSTONE_SEEDS_PATH)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newAskCmd(opts),
		newSeedCmd(opts),
		newStatsCmd(opts),
		newFollowUpsCmd(opts),
		newSnapshotCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(o.envFile)
	if err != nil {
		return err
	}
	if o.storage != "" {
		cfg.Storage.Engine = o.storage
	}
	if o.dataPath != "" {
		cfg.Storage.DataPath = o.dataPath
	}
	if o.seeds != "" {
		cfg.Seeds.Path = o.seeds
	}
	// Watching only makes sense for the long-running server.
	cfg.Seeds.Watch = false
	if err := cfg.Validate(); err != nil {
		return err
	}

	level := cfg.Logging.Level
	if o.verbose {
		level = "debug"
	} else if level == "info" {
		level = "warn"
	}
	o.logger = observability.NewLogger(observability.LogConfig{
		Level:       level,
		Format:      "console",
		Output:      cmd.ErrOrStderr(),
		ServiceName: "keystone-cli",
	})
	o.cfg = cfg
	return nil
}

func (o *rootOptions) app(ctx context.Context) (*app.App, error) {
	return app.New(ctx, o.cfg, o.logger)
}
