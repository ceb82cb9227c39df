// -- cmd/root.go --
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/dialogskip/internal/config"
	"github.com/xkilldash9x/dialogskip/internal/observability"
)

// rootOptions holds the persistent flags and the configuration they produce.
type rootOptions struct {
	configPath string
	envFile    string
	verbose    bool
	seed       int64

	cfg *config.Config
}

// NewRootCommand builds the command tree. Each call returns an independent
// tree, so tests never share flag state.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "dialogskip",
		Short:         "Advances in-game dialogue with humanlike key presses.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAutomation(cmd.Context(), opts.cfg, openDesktop)
		},
	}

	opts.bindFlags(cmd)
	cmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	cmd.AddCommand(newBenchCmd(opts))
	cmd.AddCommand(newVersionCmd())
	return cmd
}

func (o *rootOptions) bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.configPath, "config", "c", "config.json", "path to the JSON config file")
	flags.StringVar(&o.envFile, "env-file", ".env", "dotenv file with a WIDTH/HEIGHT resolution override")
	flags.BoolVarP(&o.verbose, "verbose", "v", false, "log at debug level")
	flags.Int64Var(&o.seed, "seed", 0, "seed for the timing model (0 seeds from the clock)")
}

// load resolves the configuration and starts the logger. Config problems are
// logged and the defaults are used; they never stop the program.
func (o *rootOptions) load(cmd *cobra.Command) error {
	cfg, loadErr := config.Load(o.configPath)
	if o.verbose {
		cfg.Logger.Level = "debug"
	}
	if cmd.Flags().Changed("seed") {
		cfg.Timing.Seed = o.seed
	}
	overridden, envErr := cfg.ApplyResolutionOverride(o.envFile)

	observability.InitializeLogger(cfg.Logger)
	logger := observability.GetLogger()
	logger.Info("Starting dialogskip", zap.String("version", Version))

	if loadErr != nil {
		logger.Warn("Failed to load configuration, using defaults.", zap.String("path", o.configPath), zap.Error(loadErr))
	}
	if envErr != nil {
		logger.Warn("Ignoring resolution override.", zap.String("path", o.envFile), zap.Error(envErr))
	} else if overridden {
		logger.Info("Using resolution override.",
			zap.Int("width", cfg.Screen.Width),
			zap.Int("height", cfg.Screen.Height))
	}

	o.cfg = cfg
	return nil
}

// Execute runs the root command with ctx, logging any failure.
func Execute(ctx context.Context) error {
	err := NewRootCommand().ExecuteContext(ctx)
	if err != nil {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}
