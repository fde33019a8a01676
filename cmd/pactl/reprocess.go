package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/kylejryan/healthcopilot/internal/config"
	"github.com/kylejryan/healthcopilot/internal/pipeline"
	"github.com/kylejryan/healthcopilot/internal/s3io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ingester runs intake for one object.
type ingester interface {
	Ingest(ctx context.Context, obj pipeline.Object) (*pipeline.Result, error)
}

// tally counts reprocess outcomes.
type tally struct {
	Ingested   int
	Duplicates int
	Skipped    int
	Failed     int
}

var reprocessCmd = &cobra.Command{
	Use:   "reprocess",
	Short: "Run intake for every object under a prefix",
	Long: `Re-run intake for uploads already in the bucket. Objects that already have a
record are skipped unless --overwrite is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prefix, _ := cmd.Flags().GetString("prefix")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		perSecond, _ := cmd.Flags().GetFloat64("rate")
		overwrite, _ := cmd.Flags().GetBool("overwrite")
		if concurrency < 1 {
			return fmt.Errorf("--concurrency must be at least 1")
		}
		if perSecond <= 0 {
			return fmt.Errorf("--rate must be positive")
		}

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
		if prefix == "" {
			prefix = a.Env.UploadPrefix
		}
		keys, err := s3io.ListKeys(ctx, a.S3(), bucket, prefix)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			fmt.Printf("No objects under s3://%s/%s\n", bucket, prefix)
			return nil
		}
		pipe, err := a.Pipeline()
		if err != nil {
			return err
		}

		t, err := reprocess(ctx, pipe, bucket, keys, concurrency, rate.NewLimiter(rate.Limit(perSecond), 1))
		fmt.Printf("\n%d objects: %d ingested, %d duplicates, %d already ingested, %d failed\n",
			len(keys), t.Ingested, t.Duplicates, t.Skipped, t.Failed)
		if err != nil {
			return err
		}
		if t.Failed > 0 {
			return fmt.Errorf("%d objects failed", t.Failed)
		}
		return nil
	},
}

// reprocess ingests keys with at most concurrency in flight, waiting on limiter
// before each call. Per-object failures are counted, not returned; only
// cancellation stops the run early.
func reprocess(parent context.Context, ing ingester, bucket string, keys []string, concurrency int, limiter *rate.Limiter) (tally, error) {
	var (
		mu sync.Mutex
		t  tally
	)
	g, ctx := errgroup.WithContext(parent)
	g.SetLimit(concurrency)

	for _, key := range keys {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		g.Go(func() error {
			res, err := ing.Ingest(ctx, pipeline.Object{Bucket: bucket, Key: key})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				t.Failed++
				fmt.Printf("✗ %s: %v\n", key, err)
				return nil
			case res.PersistErr != nil:
				t.Failed++
			case res.AlreadyIngested:
				t.Skipped++
			case res.Duplicate.IsDuplicate:
				t.Duplicates++
			default:
				t.Ingested++
			}
			printResult(key, res)
			return nil
		})
	}
	_ = g.Wait()
	return t, parent.Err()
}

func init() {
	reprocessCmd.Flags().String("prefix", "", "Key prefix to reprocess (default the upload prefix)")
	reprocessCmd.Flags().Int("concurrency", 4, "Maximum objects in flight")
	reprocessCmd.Flags().Float64("rate", 2, "Maximum intake starts per second")
	reprocessCmd.Flags().Bool("overwrite", false, "Replace existing records")
	rootCmd.AddCommand(reprocessCmd)
}
