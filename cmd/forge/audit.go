package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/felixgeelhaar/forge/internal/domain/audit"
	"github.com/felixgeelhaar/forge/internal/domain/config"
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "View plugin lifecycle audit events",
	Long: `View the audit trail of plugin registration, loading, unloading and
enablement changes.

Events are kept in memory for the current run unless audit.file is set in
the configuration, in which case earlier runs are included.

Examples:
  forge audit
  forge audit --limit 50
  forge audit --plugin work-orders
  forge audit --failures
  forge audit --severity warning,error --since 24
  forge audit summary
  forge audit verify
  forge audit --json`,
}

var auditShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show audit events (default)",
	RunE:  runAuditShow,
}

var auditSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show audit event counts",
	RunE:  runAuditSummary,
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the audit file hash chain",
	Long: `Check every event hash in the audit file and the chain linking each event
to the one before it. Fails with the id of the first event that does not match.

Requires audit.file in the configuration.`,
	RunE: runAuditVerify,
}

// Flags
var (
	auditLimit     int
	auditEventType string
	auditPlugin    string
	auditFailures  bool
	auditSeverity  []string
	auditSince     int
)

func init() {
	auditCmd.PersistentFlags().IntVarP(&auditLimit, "limit", "n", 20, "Maximum number of events to show")
	auditCmd.PersistentFlags().StringVarP(&auditEventType, "type", "t", "", "Filter by event type")
	auditCmd.PersistentFlags().StringVarP(&auditPlugin, "plugin", "p", "", "Filter by plugin id")
	auditCmd.PersistentFlags().BoolVar(&auditFailures, "failures", false, "Show only failed events")
	auditCmd.PersistentFlags().StringSliceVarP(&auditSeverity, "severity", "s", nil, "Filter by severity (info, warning, error, critical)")
	auditCmd.PersistentFlags().IntVar(&auditSince, "since", 0, "Show only events from the last N hours")

	auditCmd.AddCommand(auditShowCmd)
	auditCmd.AddCommand(auditSummaryCmd)
	auditCmd.AddCommand(auditVerifyCmd)

	auditCmd.RunE = runAuditShow

	rootCmd.AddCommand(auditCmd)
}

// buildFilter constructs a QueryFilter from command flags.
func buildFilter(withLimit bool) audit.QueryFilter {
	builder := audit.NewQuery()

	if withLimit && auditLimit > 0 {
		builder.Limit(auditLimit)
	}
	if auditEventType != "" {
		builder.WithEventTypes(audit.EventType(auditEventType))
	}
	if auditPlugin != "" {
		builder.WithPlugin(auditPlugin)
	}
	if auditFailures {
		builder.FailuresOnly()
	}
	if len(auditSeverity) > 0 {
		severities := make([]audit.Severity, len(auditSeverity))
		for i, s := range auditSeverity {
			severities[i] = audit.Severity(strings.ToLower(s))
		}
		builder.WithSeverities(severities...)
	}
	if auditSince > 0 {
		builder.LastHours(auditSince)
	}

	return builder.Build()
}

func runAuditShow(cmd *cobra.Command, _ []string) error {
	host, err := startHost(cmd)
	if err != nil {
		return err
	}
	defer stopHost(cmd, host)

	events, err := host.Audit().Query(commandContext(cmd), buildFilter(true))
	if err != nil {
		return fmt.Errorf("failed to query audit log: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, nonNil(events))
	}
	if len(events) == 0 {
		_, _ = fmt.Fprintln(out, "No audit events found matching the criteria.")
		return nil
	}
	return outputEventsTable(out, events)
}

func outputEventsTable(out io.Writer, events []audit.Event) error {
	w := newTable(out)
	_, _ = fmt.Fprintln(w, "TIME\tEVENT\tPLUGIN\tSTATUS\tERROR")
	for _, e := range events {
		status := "ok"
		if !e.Success {
			status = "failed"
		}
		target := e.Plugin
		if e.Version != "" {
			target += "@" + e.Version
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Local().Format(time.DateTime), e.Type, target, status, errorStyle.Render(e.Error))
	}
	return w.Flush()
}

func runAuditSummary(cmd *cobra.Command, _ []string) error {
	host, err := startHost(cmd)
	if err != nil {
		return err
	}
	defer stopHost(cmd, host)

	summary, err := host.Audit().Summary(commandContext(cmd), buildFilter(false))
	if err != nil {
		return fmt.Errorf("failed to get summary: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, summary)
	}

	printHeading(out, "audit summary")
	_, _ = fmt.Fprintf(out, "Total Events:  %d\n", summary.TotalEvents)
	_, _ = fmt.Fprintf(out, "Successful:    %d\n", summary.SuccessCount)
	_, _ = fmt.Fprintf(out, "Failed:        %d\n", summary.FailureCount)

	if !summary.FirstEvent.IsZero() {
		_, _ = fmt.Fprintf(out, "Time Range:    %s to %s\n",
			summary.FirstEvent.Format(time.RFC3339),
			summary.LastEvent.Format(time.RFC3339))
	}

	printCounts(out, "by event type", summary.ByType)
	printCounts(out, "by plugin", summary.ByPlugin)
	return nil
}

func runAuditVerify(cmd *cobra.Command, _ []string) error {
	host, err := startHost(cmd)
	if err != nil {
		return err
	}
	defer stopHost(cmd, host)

	badID, err := host.Audit().Verify()
	if errors.Is(err, audit.ErrNotVerifiable) {
		return config.NewAuditNotPersistedError()
	}
	out := cmd.OutOrStdout()
	if jsonOutput {
		if encErr := writeJSON(out, map[string]any{"valid": err == nil, "broken_at": badID}); encErr != nil {
			return encErr
		}
		return err
	}
	if err != nil {
		return fmt.Errorf("audit log failed verification: %w", err)
	}
	_, _ = fmt.Fprintln(out, successStyle.Render("Audit chain intact"))
	return nil
}

func printCounts(out io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	printHeading(out, title)

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	w := newTable(out)
	for _, k := range keys {
		_, _ = fmt.Fprintf(w, "  %s\t%d\n", k, counts[k])
	}
	_ = w.Flush()
}
