package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/freightmarket/config"
	"github.com/kilianp07/freightmarket/core/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the persistent audit store",
	RunE:  runAudit,
}

var auditFlags struct {
	typ   string
	actor string
	since string
	limit int
}

func init() {
	f := auditCmd.Flags()
	f.StringVar(&auditFlags.typ, "type", "", "entry type (shipment, quote, booking, ...)")
	f.StringVar(&auditFlags.actor, "actor", "", "actor label or user id")
	f.StringVar(&auditFlags.since, "since", "", "RFC3339 time or duration such as 24h")
	f.IntVar(&auditFlags.limit, "limit", 100, "maximum entries, newest first")
	rootCmd.AddCommand(auditCmd)
}

func parseSince(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --since %q", s)
	}
	return t, nil
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Audit.Store.Type == "" {
		return fmt.Errorf("no persistent audit store configured")
	}
	since, err := parseSince(auditFlags.since, time.Now())
	if err != nil {
		return err
	}
	store, err := audit.NewStore(cfg.Audit.Store)
	if err != nil {
		return fmt.Errorf("audit store: %w", err)
	}
	defer store.Close()

	entries, err := store.Query(cmd.Context(), audit.Query{
		Since: since,
		Actor: auditFlags.actor,
		Type:  auditFlags.typ,
		Limit: auditFlags.limit,
	})
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tACTOR\tTYPE\tSUBJECT\tDETAIL")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", e.TS.Format(time.RFC3339), e.Actor, e.Type, e.Subject, e.Detail)
	}
	return w.Flush()
}
