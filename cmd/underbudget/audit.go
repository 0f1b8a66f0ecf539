// ABOUTME: audit subcommand that prints recent entries from the audit log
// ABOUTME: Reads the store directly, so it works while the server is stopped

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/vimofthevine/underbudget-auth/internal/config"
	"github.com/vimofthevine/underbudget-auth/internal/store"
)

func runAudit(ctx context.Context, args []string) error {
	var (
		configPath string
		since      time.Duration
		actor      string
		action     string
		limit      int
		asJSON     bool
	)
	fs := newFlagSet("audit", &configPath)
	fs.DurationVar(&since, "since", 0, "only show entries newer than this (e.g. 24h)")
	fs.StringVar(&actor, "user", "", "only show entries by this user ID")
	fs.StringVar(&action, "action", "", "only show this action (register_user, create_token, revoke_token, login_failed)")
	fs.IntVarP(&limit, "limit", "n", 50, "maximum entries to show")
	fs.BoolVar(&asJSON, "json", false, "print entries as JSON lines")
	if err := fs.Parse(args); err != nil {
		return err
	}

	filter, err := buildAuditFilter(time.Now(), since, actor, action, limit)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DataSource())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	entries, err := s.ListAuditLog(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing audit log: %w", err)
	}

	if asJSON {
		return printAuditJSON(os.Stdout, entries)
	}
	printAuditTable(os.Stdout, entries)
	return nil
}

func buildAuditFilter(now time.Time, since time.Duration, actor, action string, limit int) (store.AuditFilter, error) {
	f := store.AuditFilter{Limit: limit}
	if since > 0 {
		t := now.Add(-since)
		f.Since = &t
	}
	if actor != "" {
		f.ActorID = &actor
	}
	if action != "" {
		a := store.AuditAction(action)
		if !slices.Contains(store.ValidAuditActions, a) {
			return store.AuditFilter{}, fmt.Errorf("unknown audit action %q", action)
		}
		f.Action = &a
	}
	return f, nil
}

func printAuditJSON(w io.Writer, entries []store.AuditEntry) error {
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}

func printAuditTable(w io.Writer, entries []store.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no audit entries")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tACTION\tACTOR\tTARGET\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			colorAction(e.Action),
			e.ActorID,
			strings.TrimPrefix(e.TargetType+":"+e.TargetID, ":"),
			formatDetail(e.Detail),
		)
	}
	_ = tw.Flush()
}

func colorAction(a store.AuditAction) string {
	switch a {
	case store.AuditLoginFailed:
		return color.YellowString(string(a))
	case store.AuditRevokeToken:
		return color.RedString(string(a))
	default:
		return string(a)
	}
}

// formatDetail renders detail as sorted key=value pairs.
func formatDetail(detail map[string]any) string {
	keys := make([]string, 0, len(detail))
	for k := range detail {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, detail[k]))
	}
	return strings.Join(parts, " ")
}
