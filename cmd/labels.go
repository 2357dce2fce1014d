package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"LabelDesk/core/hierarchy"

	"github.com/spf13/cobra"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "厂牌层级管理",
}

var labelsTreeCmd = &cobra.Command{
	Use:   "tree",
	Short: "显示厂牌层级树",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		tree, err := hierarchy.NewResolver(store, nil).Tree(ctx)
		if err != nil {
			return err
		}
		if len(tree) == 0 {
			fmt.Println("暂无厂牌")
			return nil
		}
		printTree(os.Stdout, tree, 0)
		return nil
	},
}

// printTree writes one line per label, indented by depth.
func printTree(w io.Writer, nodes []*hierarchy.Node, depth int) {
	for _, n := range nodes {
		capText := "unlimited"
		if n.Label.ArtistCap != nil {
			capText = fmt.Sprintf("%d", *n.Label.ArtistCap)
		}
		fmt.Fprintf(w, "%s%s [%s] share=%.1f%% cap=%s %s\n",
			strings.Repeat("  ", depth), n.Label.Name, n.Label.Status, n.Label.RevenueShare, capText, n.Label.ID)
		printTree(w, n.Children, depth+1)
	}
}

func init() {
	labelsCmd.AddCommand(labelsTreeCmd)
	rootCmd.AddCommand(labelsCmd)
}
