package main

import (
	"fmt"

	"github.com/kylejryan/healthcopilot/internal/export"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every record to a Parquet file",
	Long:  `Scan the record table and write one Parquet row per record. Embeddings are summarized by dimension.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("out")
		a, err := loadApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		recs, err := a.Review().List(cmd.Context())
		if err != nil {
			return err
		}

		w, err := export.NewWriter(out)
		if err != nil {
			return err
		}
		if err := w.Write(recs...); err != nil {
			w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		fmt.Printf("Exported %d records to %s\n", w.Count(), out)
		return nil
	},
}

func init() {
	exportCmd.Flags().String("out", "records.parquet", "Output Parquet file")
	rootCmd.AddCommand(exportCmd)
}
