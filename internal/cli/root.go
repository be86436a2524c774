package cli

import (
	"fmt"
	"os"

	"github.com/dimz119/project-saeum/common/logger"
	"github.com/dimz119/project-saeum/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewRootCommand creates the saeum command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saeum",
		Short: "Saeum eyewear shop backend",
		Long: `Saeum runs the eyewear shop API: Stripe checkout, order reconciliation,
carts, refunds and uploads, backed by Postgres.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewSeedCommand())

	return cmd
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and a console logger for the one-shot commands.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.AppEnv, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}
