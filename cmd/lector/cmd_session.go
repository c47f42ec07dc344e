package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/lector/internal/runner"
	"github.com/user/lector/internal/state"
	"github.com/user/lector/internal/types"
)

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionAddCmd, sessionListCmd, sessionRemoveCmd,
		sessionStartCmd, sessionStopCmd, sessionStatusCmd)

	sessionAddCmd.Flags().String("name", "", "display name (required)")
	sessionAddCmd.Flags().String("kind", "manual", "session kind: single, manual, repeated, scheduled")
	sessionAddCmd.Flags().String("feed", "", "feed id to read from")
	sessionAddCmd.Flags().String("item", "", "explicit item id (single sessions)")
	sessionAddCmd.Flags().Int("max-items", 10, "item count cap")
	sessionAddCmd.Flags().Int("delay", 2, "inter-item delay in seconds")
	sessionAddCmd.Flags().Bool("include-body", false, "speak item bodies, not just titles")
	sessionAddCmd.Flags().Bool("announce-age", false, "announce each item's age before reading it")
	sessionAddCmd.Flags().Int("age-threshold", 0, "skip items older than this many minutes (0 = no limit)")
	_ = sessionAddCmd.MarkFlagRequired("name")
}

func sessionStore() *state.SessionStore {
	cfg := loadConfig()
	return state.NewSessionStore(cfg.DataDir)
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage reading sessions",
}

var sessionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new reading session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		kind, _ := cmd.Flags().GetString("kind")
		feedID, _ := cmd.Flags().GetString("feed")
		itemID, _ := cmd.Flags().GetString("item")
		maxItems, _ := cmd.Flags().GetInt("max-items")
		delay, _ := cmd.Flags().GetInt("delay")
		includeBody, _ := cmd.Flags().GetBool("include-body")
		announceAge, _ := cmd.Flags().GetBool("announce-age")
		ageThreshold, _ := cmd.Flags().GetInt("age-threshold")

		switch types.SessionKind(kind) {
		case types.KindSingle, types.KindManual, types.KindRepeated, types.KindScheduled:
		default:
			return fmt.Errorf("invalid session kind: %s", kind)
		}

		session := &types.ReadingSession{
			ID:                  types.NewSessionID(),
			Kind:                types.SessionKind(kind),
			Name:                name,
			FeedID:              types.FeedID(feedID),
			ItemID:              types.ItemID(itemID),
			MaxItems:            maxItems,
			DelaySeconds:        delay,
			IncludeBody:         includeBody,
			AnnounceAge:         announceAge,
			AgeThresholdMinutes: ageThreshold,
		}
		if err := sessionStore().Add(context.Background(), session); err != nil {
			return fmt.Errorf("add session: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session %q added (%s).\n", name, session.ID)
		return nil
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all reading sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := sessionStore()
		sessions, err := store.List(context.Background())
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tKIND\tFEED\tMAX\tDELAY")
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%ds\n",
				s.ID,
				s.Name,
				s.Kind,
				s.FeedID,
				s.MaxItems,
				s.DelaySeconds,
			)
		}
		return w.Flush()
	},
}

// daemonPost sends a control request to the running daemon's HTTP surface.
func daemonPost(path string) error {
	cfg := loadConfig()
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post("http://"+cfg.HTTP.Listen+path, "application/json", nil)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s (is it running with http.enabled?): %w", cfg.HTTP.Listen, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned status %d", resp.StatusCode)
	}
	return nil
}

var sessionStartCmd = &cobra.Command{
	Use:   "start <id>",
	Short: "Start a session on the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := daemonPost("/api/sessions/" + args[0] + "/start"); err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Session %q started.\n", args[0])
		return nil
	},
}

var sessionStopCmd = &cobra.Command{
	Use:   "stop <id>",
	Short: "Stop the active session on the running daemon",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := daemonPost("/api/sessions/" + args[0] + "/stop"); err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, "Stop requested.")
		return nil
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the daemon's playback status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get("http://" + cfg.HTTP.Listen + "/api/status")
		if err != nil {
			return fmt.Errorf("daemon not reachable at %s (is it running with http.enabled?): %w", cfg.HTTP.Listen, err)
		}
		defer resp.Body.Close()

		var snap runner.Snapshot
		if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Phase: %s\n", snap.Phase)
		if snap.Phase != runner.PhaseIdle {
			fmt.Fprintf(os.Stdout, "Session: %s (%s)\n", snap.Name, snap.SessionID)
			if snap.Total > 0 {
				fmt.Fprintf(os.Stdout, "Item: %d of %d\n", snap.Index, snap.Total)
			}
		}
		return nil
	},
}

var sessionRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a session and its rules",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessionStore().Remove(context.Background(), types.SessionID(args[0])); err != nil {
			return fmt.Errorf("remove session: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session %q removed.\n", args[0])
		return nil
	},
}
