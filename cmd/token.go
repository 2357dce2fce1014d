package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"LabelDesk/core/auth"
	"LabelDesk/model"

	"github.com/spf13/cobra"
)

var tokenTTL time.Duration

var tokenCmd = &cobra.Command{
	Use:   "token <email>",
	Short: "为用户签发访问令牌",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		user, err := store.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(args[0])))
		if err != nil {
			return err
		}
		token, err := auth.GenerateToken(cfg.JWTSecret, model.ActorFromUser(user), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "令牌有效期")
}
