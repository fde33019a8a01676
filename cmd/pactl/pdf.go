package main

import (
	"fmt"
	"os"

	"github.com/kylejryan/healthcopilot/internal/review"

	"github.com/spf13/cobra"
)

var pdfCmd = &cobra.Command{
	Use:   "pdf <form_id>",
	Short: "Write a record's PDF summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		if out == "" {
			out = review.PDFFilename(args[0])
		}
		a, err := loadApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		doc, err := a.Review().SummaryPDF(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := os.WriteFile(out, doc, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s (%d bytes)\n", out, len(doc))
		return nil
	},
}

func init() {
	pdfCmd.Flags().StringP("out", "o", "", "Output path (default prior_auth_<form_id>.pdf)")
	rootCmd.AddCommand(pdfCmd)
}
