// Package textract turns a stored document into plain text using AWS Textract.
package textract

import (
	"context"
	"fmt"
	"strings"

	"github.com/kylejryan/healthcopilot/internal/logx"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"go.uber.org/zap"
)

// API is the subset of the Textract client used by Extractor.
type API interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Extractor reads line-level text from documents stored in S3.
type Extractor struct {
	api API
	log *zap.Logger
}

// New returns an Extractor backed by api.
func New(api API, log *zap.Logger) *Extractor {
	return &Extractor{api: api, log: logx.OrNop(log)}
}

// Extract returns every recognized line of s3://bucket/key, in service order,
// joined with newlines. Errors are returned, never partially recovered.
func (e *Extractor) Extract(ctx context.Context, bucket, key string) (string, error) {
	e.log.Debug("detecting document text", zap.String("bucket", bucket), zap.String("key", key))

	out, err := e.api.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{
			S3Object: &types.S3Object{
				Bucket: aws.String(bucket),
				Name:   aws.String(key),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("detect document text s3://%s/%s: %w", bucket, key, err)
	}

	lines := Lines(out)
	e.log.Info("extracted document text", zap.String("key", key), zap.Int("lines", len(lines)))
	return strings.Join(lines, "\n"), nil
}

// Lines selects the LINE blocks of a Textract response.
func Lines(out *textract.DetectDocumentTextOutput) []string {
	if out == nil {
		return nil
	}
	var lines []string
	for _, b := range out.Blocks {
		if b.BlockType == types.BlockTypeLine && b.Text != nil {
			lines = append(lines, *b.Text)
		}
	}
	return lines
}
