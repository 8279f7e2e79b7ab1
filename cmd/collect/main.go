// collect 命令行入口：手动拉取、查看与维护缓存，适合调试与一次性采集
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/LJTian/HotFeed/internal/app"
	"github.com/LJTian/HotFeed/internal/config"
	"github.com/LJTian/HotFeed/internal/logging"
)

var (
	flagLogLevel string
	flagSort     string
	flagRefresh  bool

	current *app.App
)

var rootCmd = &cobra.Command{
	Use:          "collect",
	Short:        "Fetch and inspect hot-topic feeds",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if flagLogLevel != "" {
			cfg.LogLevel = flagLogLevel
		}
		a, err := app.Build(cfg, logging.New(cfg.LogLevel))
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if current == nil {
			return nil
		}
		return current.Close()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	fetchCmd.Flags().StringVar(&flagSort, "sort", "none", "sort order: none, latest or hot")
	fetchCmd.Flags().BoolVar(&flagRefresh, "refresh", false, "skip the cache and fetch from upstream")
	mixedCmd.Flags().StringVar(&flagSort, "sort", "none", "sort order: none, latest or hot")

	rootCmd.AddCommand(categoriesCmd, fetchCmd, mixedCmd, runOnceCmd, followCmd, unfollowCmd, clearCacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
