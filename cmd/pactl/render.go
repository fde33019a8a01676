package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/fatih/color"
)

func joinOrNone(xs []string) string {
	if len(xs) == 0 {
		return "None"
	}
	return strings.Join(xs, ", ")
}

func short(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// renderTable writes the record listing. Duplicate rows are red.
func renderTable(w io.Writer, recs []models.PriorAuthRecord) error {
	red := color.New(color.FgRed).SprintFunc()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REQUEST\tPROVIDER\tNPI\tURGENCY\tMISSING FIELDS\tSTATUS\tPROGRESS\tFORM ID")
	for _, r := range recs {
		status := string(r.Status)
		if r.IsDuplicate() {
			status = red(status)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d%%\t%s\n",
			short(r.CreatedAt, 8),
			models.Deref(r.Provider, "-"),
			models.Deref(r.NPI, "-"),
			models.Deref(r.Urgency, "-"),
			joinOrNone(r.MissingFields),
			status,
			r.Status.Progress(),
			short(r.FormID, 8))
	}
	return tw.Flush()
}

// renderRecord writes one record's details and audit trail.
func renderRecord(w io.Writer, r models.PriorAuthRecord) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "%s\n", cyan("=== Prior Authorization "+r.FormID+" ==="))
	fmt.Fprintf(w, "  Provider:         %s\n", models.Deref(r.Provider, "None"))
	fmt.Fprintf(w, "  NPI:              %s\n", models.Deref(r.NPI, "None"))
	fmt.Fprintf(w, "  Urgency:          %s\n", models.Deref(r.Urgency, "None"))
	fmt.Fprintf(w, "  Missing Fields:   %s\n", joinOrNone(r.MissingFields))
	fmt.Fprintf(w, "  Suggested Action: %s\n", r.SuggestedAction)
	fmt.Fprintf(w, "  Status:           %s (%d%%)\n", r.Status, r.Status.Progress())
	match := "unknown"
	if r.HealthLakeMatch != nil {
		match = fmt.Sprint(*r.HealthLakeMatch)
	}
	fmt.Fprintf(w, "  Patient Match:    %s\n", match)
	fmt.Fprintf(w, "  Source:           %s\n", r.S3Key)
	fmt.Fprintln(w)

	if len(r.AuditLog) == 0 {
		fmt.Fprintf(w, "  %s\n", gray("No audit history yet for this form."))
		return
	}
	fmt.Fprintln(w, "  Audit Trail:")
	for _, e := range r.AuditLog {
		comment := e.Comment
		if comment == "" {
			comment = gray("No comment")
		}
		fmt.Fprintf(w, "    %s  %s → %s  %s\n", e.Timestamp, e.ChangedBy, e.NewStatus, comment)
	}
}
