package main

import (
	"fmt"

	"github.com/kylejryan/healthcopilot/internal/config"
	"github.com/kylejryan/healthcopilot/internal/pipeline"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <key>",
	Short: "Run intake for one uploaded object",
	Long:  `Run the intake pipeline locally for an object already in the bucket, as the upload trigger would.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		ctx := cmd.Context()
		a, err := loadApp(ctx, func(e *config.Env) {
			if overwrite {
				e.ReingestPolicy = config.ReingestOverwrite
			}
		})
		if err != nil {
			return err
		}
		defer a.Close()
		bucket, err := a.Env.RequireBucket()
		if err != nil {
			return err
		}
		pipe, err := a.Pipeline()
		if err != nil {
			return err
		}

		res, err := pipe.Ingest(ctx, pipeline.Object{Bucket: bucket, Key: args[0]})
		if err != nil {
			return err
		}
		printResult(args[0], res)
		if res.PersistErr != nil {
			return fmt.Errorf("record not stored: %w", res.PersistErr)
		}
		return nil
	},
}

func printResult(key string, res *pipeline.Result) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	switch {
	case res.AlreadyIngested:
		fmt.Printf("%s %s already ingested as %s\n", yellow("○"), key, res.FormID)
		return
	case res.PersistErr != nil:
		fmt.Printf("%s %s: %v\n", red("✗"), key, res.PersistErr)
	case res.Duplicate.IsDuplicate:
		fmt.Printf("%s %s → %s %s (%.3f similar to %s)\n", red("●"), key, res.FormID,
			red("duplicate"), res.Duplicate.Similarity, res.Duplicate.DuplicateOf)
	default:
		fmt.Printf("%s %s → %s %s\n", green("✓"), key, res.FormID, res.Record.Status)
	}
	if len(res.Record.MissingFields) > 0 {
		fmt.Printf("  Missing fields: %s (notified: %v)\n", yellow(joinOrNone(res.Record.MissingFields)), res.Notified)
	}
}

func init() {
	ingestCmd.Flags().Bool("overwrite", false, "Replace an existing record for this object")
	rootCmd.AddCommand(ingestCmd)
}
