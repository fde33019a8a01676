package main

import (
	"fmt"

	"github.com/kylejryan/healthcopilot/internal/models"
	"github.com/kylejryan/healthcopilot/internal/validate"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:       "status <form_id> <status>",
	Short:     "Change a record's status and record it in the audit trail",
	Long:      `Set the workflow status of a record. Exactly one audit entry is appended.`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: statusNames(),
	RunE: func(cmd *cobra.Command, args []string) error {
		comment, _ := cmd.Flags().GetString("message")
		by, _ := cmd.Flags().GetString("by")
		if err := validate.Comment(comment); err != nil {
			return err
		}

		a, err := loadApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		entry, err := a.Review().UpdateStatus(cmd.Context(), args[0], args[1], by, comment)
		if err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Status updated to %s by %s at %s\n", green("✓"), entry.NewStatus, entry.ChangedBy, entry.Timestamp)
		return nil
	},
}

func statusNames() []string {
	out := make([]string, len(models.Statuses))
	for i, s := range models.Statuses {
		out[i] = string(s)
	}
	return out
}

func init() {
	statusCmd.Flags().StringP("message", "m", "", "Comment for the audit trail")
	statusCmd.Flags().String("by", operator(), "Reviewer recorded as changed_by")
	rootCmd.AddCommand(statusCmd)
}
