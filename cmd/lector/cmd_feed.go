package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/lector/internal/feed"
	"github.com/user/lector/internal/state"
	"github.com/user/lector/internal/types"
)

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.AddCommand(feedAddCmd, feedListCmd, feedRefreshCmd)

	feedAddCmd.Flags().String("name", "", "feed name (required)")
	feedAddCmd.Flags().String("url", "", "feed URL (required)")
	_ = feedAddCmd.MarkFlagRequired("name")
	_ = feedAddCmd.MarkFlagRequired("url")
}

func articleStore() *state.ArticleStore {
	cfg := loadConfig()
	return state.NewArticleStore(cfg.DataDir)
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Manage content feeds",
}

var feedAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a feed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		url, _ := cmd.Flags().GetString("url")

		f := &types.Feed{
			ID:   types.NewFeedID(),
			Name: name,
			URL:  url,
		}
		if err := articleStore().AddFeed(context.Background(), f); err != nil {
			return fmt.Errorf("add feed: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Feed %q added (%s).\n", name, f.ID)
		return nil
	},
}

var feedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all feeds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		feeds, err := articleStore().Feeds(context.Background())
		if err != nil {
			return fmt.Errorf("list feeds: %w", err)
		}

		if len(feeds) == 0 {
			fmt.Println("No feeds configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tURL\tLAST REFRESHED")
		for _, f := range feeds {
			refreshed := "never"
			if !f.LastRefreshed.IsZero() {
				refreshed = f.LastRefreshed.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.ID, f.Name, f.URL, refreshed)
		}
		return w.Flush()
	},
}

var feedRefreshCmd = &cobra.Command{
	Use:   "refresh <feed-id>",
	Short: "Fetch new items for a feed now",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := articleStore()
		refresher := feed.NewRefresher(store)
		n, err := refresher.Refresh(context.Background(), types.FeedID(args[0]))
		if err != nil {
			return fmt.Errorf("refresh feed: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Fetched %d new item(s).\n", n)
		return nil
	},
}
