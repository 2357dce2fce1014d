package cmd

import (
	"context"
	"fmt"

	"LabelDesk/cache"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:     "cache",
	Aliases: []string{"redis"},
	Short:   "层级缓存管理",
}

var cacheFlushCmd = &cobra.Command{
	Use:   "flush",
	Short: "清空厂牌层级缓存",
	Long:  `连接配置的缓存后端并使所有已缓存的下级厂牌集合失效。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.CacheBackend == "redis" {
			fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)
		}
		c, closer, err := cache.New(cfg)
		if err != nil {
			return err
		}
		if closer != nil {
			defer closer()
		}
		if c == nil {
			fmt.Println("缓存已禁用，无需清理")
			return nil
		}
		if err := c.Invalidate(context.Background()); err != nil {
			return err
		}
		fmt.Println("层级缓存已清空")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheFlushCmd)
	rootCmd.AddCommand(cacheCmd)
}
