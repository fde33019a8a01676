// Package s3io provides utilities for working with S3: form uploads, presigned
// browser uploads, and prefix listings.
package s3io

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Presigner defines the interface for presigning S3 requests.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Putter uploads objects.
type Putter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// PresignPut generates a presigned URL for uploading an object to S3 with the specified parameters.
func PresignPut(ctx context.Context, p Presigner, bucket, key, contentType string, meta map[string]string, ttl time.Duration) (string, time.Duration, error) {
	input := &s3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(key),
		ContentType:          aws.String(contentType),
		Metadata:             meta,
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
	}

	req, err := p.PresignPutObject(ctx, input, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		return "", 0, err
	}
	return req.URL, ttl, nil
}

// Upload writes data to bucket/key. The upload-completion event it produces is
// what triggers intake.
func Upload(ctx context.Context, p Putter, bucket, key, contentType string, data []byte, meta map[string]string) error {
	_, err := p.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(contentType),
		Metadata:             meta,
		ServerSideEncryption: types.ServerSideEncryptionAwsKms,
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}

// ListKeys returns every object key under prefix, following continuation tokens.
func ListKeys(ctx context.Context, api s3.ListObjectsV2APIClient, bucket, prefix string) ([]string, error) {
	var keys []string
	pager := s3.NewListObjectsV2Paginator(api, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || (obj.Size != nil && *obj.Size == 0) {
				continue // folder placeholders
			}
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}
