package cmd

import (
	"context"
	"fmt"
	"time"

	"LabelDesk/storage"

	"github.com/spf13/cobra"
)

var (
	minioPrefix string
	minioStats  bool
	minioDelete bool
)

var minioCmd = &cobra.Command{
	Use:     "assets",
	Aliases: []string{"minio"},
	Short:   "MinIO资源存储管理",
	Long:    `查看和管理MinIO存储桶中的发行资源，支持列出文件、查看统计信息、删除目录等功能。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
		client, err := storage.NewMinioStorage(cfg)
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		// 根据参数执行不同的操作
		switch {
		case minioDelete:
			if minioPrefix == "" {
				return fmt.Errorf("删除操作需要指定目录前缀")
			}
			n, err := client.DeletePrefix(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Printf("已删除 %d 个对象 (前缀: %s)\n", n, minioPrefix)
		case minioStats:
			stats, err := client.Stats(ctx, minioPrefix)
			if err != nil {
				return err
			}
			fmt.Printf("对象总数: %d\n", stats.TotalObjects)
			fmt.Printf("总大小: %s\n", storage.FormatSize(stats.TotalSize))
			if !stats.LastModified.IsZero() {
				fmt.Printf("最后修改: %s\n", stats.LastModified.Format(time.RFC3339))
			}
			for kind, size := range stats.SizeByKind {
				fmt.Printf("  %-6s %s\n", kind, storage.FormatSize(size))
			}
		default:
			objects, err := client.List(ctx, minioPrefix)
			if err != nil {
				return err
			}
			for _, obj := range objects {
				fmt.Printf("%-60s %10s %s\n", obj.Key, storage.FormatSize(obj.Size), obj.LastModified.Format("2006-01-02 15:04"))
			}
			fmt.Printf("\n共 %d 个文件\n", len(objects))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(minioCmd)

	// 添加命令行参数
	minioCmd.Flags().StringVarP(&minioPrefix, "prefix", "p", "", "按前缀过滤文件或指定要操作的目录")
	minioCmd.Flags().BoolVarP(&minioStats, "stats", "s", false, "显示存储桶统计信息")
	minioCmd.Flags().BoolVarP(&minioDelete, "delete", "d", false, "删除指定目录及其下的所有文件")

	// 添加使用说明
	minioCmd.Example = `  # 列出所有文件
  labeldesk assets

  # 列出某个发行的音频
  labeldesk assets -p "audio/<release-id>/"

  # 显示存储桶统计信息
  labeldesk assets -s

  # 删除目录及其下的所有文件
  labeldesk assets -d -p "artwork/<release-id>/"`
}
