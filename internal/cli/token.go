package cli

import (
	"fmt"
	"time"

	"memeup_backend/internal/model"
	"memeup_backend/internal/util"

	"github.com/spf13/cobra"
)

// newTokenCmd 本地联调用，正式环境令牌由认证服务签发
func newTokenCmd(configDir *string) *cobra.Command {
	var userID string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed player token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configDir)
			if err != nil {
				return err
			}
			id, ok := util.ParseID(userID)
			if !ok {
				return fmt.Errorf("invalid user id %q", userID)
			}
			token, err := util.GenerateJWT(id, model.Player, cfg.JWT.Secret, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "user id (UUID)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
