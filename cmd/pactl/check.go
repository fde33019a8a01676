package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured Bedrock models are reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		red := color.New(color.FgRed).SprintFunc()
		if err := a.CheckModels(cmd.Context()); err != nil {
			fmt.Printf("%s %v\n", red("✗"), err)
			return fmt.Errorf("model check failed")
		}
		fmt.Printf("%s Field model %s reachable\n", green("✓"), a.FieldModelID())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
