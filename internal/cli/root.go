package cli

import (
	"context"
	"fmt"
	"os"

	"memeup_backend/internal/config"
	"memeup_backend/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Execute 默认执行 serve
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	configDir := os.Getenv("MEMEUP_CONFIG_DIR")
	if configDir == "" {
		configDir = "configs"
	}
	var forceMigrate bool

	cmd := &cobra.Command{
		Use:          "memeup",
		Short:        "Memeup game progression backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// .env 可选，已存在的环境变量优先
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load .env: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configDir, forceMigrate)
		},
	}

	cmd.PersistentFlags().StringVar(&configDir, "config", configDir, "directory containing config.yaml")
	cmd.Flags().BoolVar(&forceMigrate, "migrate", false, "run database migrations before serving, even in release mode")

	cmd.AddCommand(newServeCmd(&configDir))
	cmd.AddCommand(newMigrateCmd(&configDir))
	cmd.AddCommand(newSeedCmd(&configDir))
	cmd.AddCommand(newTokenCmd(&configDir))
	return cmd
}

// loadConfig 读取配置并初始化日志
func loadConfig(configDir string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger.InitLogger(cfg)
	return cfg, nil
}
