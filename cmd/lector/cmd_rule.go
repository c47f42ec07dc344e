package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/lector/internal/types"
)

func init() {
	rootCmd.AddCommand(ruleCmd)
	ruleCmd.AddCommand(ruleAddCmd, ruleListCmd, ruleEnableCmd, ruleDisableCmd)

	ruleAddCmd.Flags().String("session", "", "owning session id (required)")
	ruleAddCmd.Flags().String("kind", "", "rule kind: interval or weekly (required)")
	ruleAddCmd.Flags().Int("interval", 0, "minutes between runs (interval rules)")
	ruleAddCmd.Flags().String("at", "", "time of day HH:MM (weekly rules)")
	ruleAddCmd.Flags().String("days", "", "comma-separated weekdays, e.g. mon,wed,fri (weekly rules)")
	ruleAddCmd.Flags().Bool("active", false, "arm an interval rule immediately")
	_ = ruleAddCmd.MarkFlagRequired("session")
	_ = ruleAddCmd.MarkFlagRequired("kind")
}

var ruleCmd = &cobra.Command{
	Use:   "rule",
	Short: "Manage scheduling rules",
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday,
	"wed": time.Wednesday, "thu": time.Thursday, "fri": time.Friday,
	"sat": time.Saturday,
}

func parseWeekdays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		day, ok := weekdayNames[part]
		if !ok {
			return nil, fmt.Errorf("unknown weekday: %s", part)
		}
		days = append(days, day)
	}
	return days, nil
}

var ruleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a scheduling rule to a session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		kind, _ := cmd.Flags().GetString("kind")
		interval, _ := cmd.Flags().GetInt("interval")
		at, _ := cmd.Flags().GetString("at")
		daysFlag, _ := cmd.Flags().GetString("days")
		active, _ := cmd.Flags().GetBool("active")

		rule := &types.SchedulingRule{
			ID:        types.NewRuleID(),
			SessionID: types.SessionID(sessionID),
			Active:    active,
		}

		switch types.RuleKind(kind) {
		case types.RuleInterval:
			if interval <= 0 {
				return fmt.Errorf("interval rules require --interval > 0")
			}
			rule.Kind = types.RuleInterval
			rule.IntervalMinutes = interval

		case types.RuleWeekly:
			var hour, minute int
			if _, err := fmt.Sscanf(at, "%d:%d", &hour, &minute); err != nil {
				return fmt.Errorf("weekly rules require --at HH:MM: %w", err)
			}
			days, err := parseWeekdays(daysFlag)
			if err != nil {
				return err
			}
			if len(days) == 0 {
				return fmt.Errorf("weekly rules require --days")
			}
			rule.Kind = types.RuleWeekly
			rule.Hour = hour
			rule.Minute = minute
			rule.Weekdays = days

		default:
			return fmt.Errorf("invalid rule kind: %s", kind)
		}

		if err := sessionStore().AddRule(context.Background(), rule); err != nil {
			return fmt.Errorf("add rule: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Rule %s added.\n", rule.ID)
		return nil
	},
}

var ruleListCmd = &cobra.Command{
	Use:   "list <session-id>",
	Short: "List rules for a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := sessionStore().RulesFor(context.Background(), types.SessionID(args[0]))
		if err != nil {
			return fmt.Errorf("list rules: %w", err)
		}

		if len(rules) == 0 {
			fmt.Println("No rules configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tSCHEDULE\tACTIVE")
		for _, r := range rules {
			schedule := ""
			switch r.Kind {
			case types.RuleInterval:
				schedule = fmt.Sprintf("every %dm", r.IntervalMinutes)
			case types.RuleWeekly:
				names := make([]string, 0, len(r.Weekdays))
				for _, d := range r.Weekdays {
					names = append(names, d.String()[:3])
				}
				schedule = fmt.Sprintf("%02d:%02d %s", r.Hour, r.Minute, strings.Join(names, ","))
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%v\n", r.ID, r.Kind, schedule, r.Active)
		}
		return w.Flush()
	},
}

var ruleEnableCmd = &cobra.Command{
	Use:   "enable <rule-id>",
	Short: "Activate an interval rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessionStore().SetRuleActive(context.Background(), types.RuleID(args[0]), true); err != nil {
			return fmt.Errorf("enable rule: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Rule %q enabled.\n", args[0])
		return nil
	},
}

var ruleDisableCmd = &cobra.Command{
	Use:   "disable <rule-id>",
	Short: "Deactivate an interval rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sessionStore().SetRuleActive(context.Background(), types.RuleID(args[0]), false); err != nil {
			return fmt.Errorf("disable rule: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Rule %q disabled.\n", args[0])
		return nil
	},
}
