package cli

import (
	"fmt"
	"os"

	"memeup_backend/internal/app"
	"memeup_backend/internal/service"
	"memeup_backend/pkg/database"
	"memeup_backend/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSeedCmd(configDir *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Import sections, levels and tasks from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			defer logger.Log.Sync()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open content file: %w", err)
			}
			defer f.Close()

			doc, err := service.ParseContent(f)
			if err != nil {
				return err
			}

			db, err := database.InitDB(&cfg.Database)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := database.Migrate(db); err != nil {
				return err
			}

			services := app.NewServices(cfg, db, nil)
			result, err := services.Content.Import(cmd.Context(), doc)
			if err != nil {
				return err
			}

			logger.Log.Info("Content imported",
				zap.String("file", file),
				zap.Int("users", result.Users),
				zap.Int("sections", result.Sections),
				zap.Int("levels", result.Levels),
				zap.Int("tasks", result.Tasks),
				zap.Int("options_inserted", result.OptionsInserted),
				zap.Int("options_updated", result.OptionsUpdated),
				zap.Int("options_deleted", result.OptionsDeleted),
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "content YAML file")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
