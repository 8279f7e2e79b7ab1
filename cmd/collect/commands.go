package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/LJTian/HotFeed/internal/apperr"
	"github.com/LJTian/HotFeed/internal/collector"
	"github.com/LJTian/HotFeed/internal/model"
	"github.com/LJTian/HotFeed/internal/processor"
	"github.com/LJTian/HotFeed/internal/scheduler"
)

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List registered categories",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := current.Feed.Store()
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ID\tNAME\tKIND\tFOLLOWING")
		for _, c := range current.Feed.Service().Categories() {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", c.ID, c.Name, c.Kind, store.IsFollowing(c.ID))
		}
		_ = w.Flush()
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <category>",
	Short: "Fetch one category (cache first unless --refresh)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		load := current.Feed.Load
		if flagRefresh {
			load = current.Feed.Refresh
		}
		items, err := load(cmd.Context(), args[0])
		if err != nil {
			return describe(err)
		}
		printItems(cmd.OutOrStdout(), processor.Sort(items, flagSort))
		return nil
	},
}

var mixedCmd = &cobra.Command{
	Use:   "mixed [category...]",
	Short: "Fetch several categories concurrently; followed categories when none given",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			res collector.MixedResult
			err error
		)
		if len(args) == 0 {
			res, err = current.Feed.LoadFollowed(cmd.Context())
			if err != nil {
				return describe(err)
			}
		} else {
			res = current.Feed.Mixed(cmd.Context(), args)
		}
		printItems(cmd.OutOrStdout(), processor.Sort(res.Items, flagSort))
		for _, f := range res.Failures {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "failed %s (%s): %s\n", f.Name, f.Category, apperr.UserFriendlyMessage(f.Error))
		}
		return nil
	},
}

// runOnceCmd 执行一轮与定时任务相同的刷新后退出
var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Refresh followed categories once, archiving when enabled",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var archiver scheduler.Archiver
		if current.Archive != nil {
			archiver = current.Archive
		}
		s, err := scheduler.New(current.Config.CronSpec, current.Feed, archiver, nil)
		if err != nil {
			return err
		}
		res := s.RunOnce(cmd.Context())

		ids := make([]string, 0, len(res.Refreshed))
		for id := range res.Refreshed {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "refreshed %s: %d items\n", id, res.Refreshed[id])
		}
		for id, err := range res.Failed {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "failed %s: %v\n", id, err)
		}
		if len(res.Failed) > 0 {
			return fmt.Errorf("%d categories failed", len(res.Failed))
		}
		return nil
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <category>",
	Short: "Follow a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !current.Feed.Service().Registry().Has(args[0]) {
			return fmt.Errorf("unknown category %q", args[0])
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), current.Feed.Store().FollowCategory(args[0]))
		return nil
	},
}

var unfollowCmd = &cobra.Command{
	Use:   "unfollow <category>",
	Short: "Unfollow a category",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), current.Feed.Store().UnfollowCategory(args[0]))
	},
}

var clearCacheCmd = &cobra.Command{
	Use:   "clear-cache [category]",
	Short: "Drop cached news for one category, or all categories",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := current.Feed.Store()
		if len(args) == 1 {
			store.ClearCache(args[0])
		} else {
			store.ClearAllCache()
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "storage size: %d bytes\n", store.StorageSize())
	},
}

func describe(err error) error {
	e := apperr.Classify(err)
	return fmt.Errorf("%s: %s", e.Type, apperr.UserFriendlyMessage(e))
}

func printItems(out io.Writer, items []model.NewsItem) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tCATEGORY\tHOT\tTITLE")
	for i, it := range items {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, it.Category, it.HotString(), it.Title)
	}
	_ = w.Flush()
}
