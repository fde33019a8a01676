package main

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"

	"github.com/kylejryan/healthcopilot/internal/s3io"
	"github.com/kylejryan/healthcopilot/internal/validate"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a scanned form to the intake prefix",
	Long:  `Upload a prior authorization form to S3. The upload triggers intake automatically.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		name := filepath.Base(path)
		if err := validate.FilenameForm(name); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := loadApp(ctx, nil)
		if err != nil {
			return err
		}
		bucket, err := a.Env.RequireBucket()
		if err != nil {
			return err
		}

		key := s3io.UploadKey(a.Env.UploadPrefix, name)
		meta := map[string]string{"uploaded_by": operator(), "filename": name}
		if err := s3io.Upload(ctx, a.S3(), bucket, key, s3io.ContentTypeFor(name), data, meta); err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Uploaded %s to s3://%s/%s\n", green("✓"), name, bucket, key)
		fmt.Printf("  Form ID: %s\n", s3io.FormID(bucket, key))
		return nil
	},
}

func operator() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "pactl"
}

func init() {
	rootCmd.AddCommand(uploadCmd)
}
