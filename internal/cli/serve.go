package cli

import (
	"context"

	"memeup_backend/internal/app"
	"memeup_backend/pkg/logger"

	"github.com/spf13/cobra"
)

func newServeCmd(configDir *string) *cobra.Command {
	var forceMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configDir, forceMigrate)
		},
	}
	cmd.Flags().BoolVar(&forceMigrate, "migrate", false, "run database migrations before serving, even in release mode")
	return cmd
}

func runServe(ctx context.Context, configDir string, forceMigrate bool) error {
	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	defer logger.Log.Sync()
	cfg.ForceMigrate = forceMigrate

	application, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	return application.Run(ctx)
}
