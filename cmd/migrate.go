package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"LabelDesk/core/auth"
	"LabelDesk/errs"
	"LabelDesk/model"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	ownerName     string
	ownerEmail    string
	ownerPassword string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "初始化数据库表结构",
	Long:  `创建或更新数据库表结构。指定 --owner-email 时同时创建平台所有者账号。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		fmt.Println("数据库表结构已更新")

		if ownerEmail == "" {
			return nil
		}
		email := strings.ToLower(strings.TrimSpace(ownerEmail))
		if _, err := store.Users().GetByEmail(ctx, email); err == nil {
			fmt.Printf("所有者账号 %s 已存在\n", email)
			return nil
		} else if !errs.IsNotFound(err) {
			return err
		}
		if len(ownerPassword) < 8 {
			return fmt.Errorf("owner password must be at least 8 characters")
		}
		hash, err := auth.HashPassword(ownerPassword)
		if err != nil {
			return err
		}
		now := time.Now()
		owner := &model.User{
			ID:           uuid.NewString(),
			Name:         ownerName,
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleOwner,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := store.Users().Create(ctx, owner); err != nil {
			return err
		}
		fmt.Printf("已创建所有者账号 %s (%s)\n", owner.Email, owner.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().StringVar(&ownerName, "owner-name", "Platform Owner", "所有者显示名称")
	migrateCmd.Flags().StringVar(&ownerEmail, "owner-email", "", "创建所有者账号的邮箱")
	migrateCmd.Flags().StringVar(&ownerPassword, "owner-password", "", "所有者账号密码 (至少8位)")
}
