package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all prior authorization records, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		recs, err := a.Review().List(cmd.Context())
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Println(gray("No records found yet. Upload a form first."))
			return nil
		}
		return renderTable(os.Stdout, recs)
	},
}

var showCmd = &cobra.Command{
	Use:   "show <form_id>",
	Short: "Show one record and its audit trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		rec, err := a.Review().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderRecord(os.Stdout, rec)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
}
