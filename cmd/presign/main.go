// Package main issues presigned S3 upload URLs so the dashboard can upload a
// prior authorization form straight to the intake prefix.
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kylejryan/healthcopilot/internal/api"
	"github.com/kylejryan/healthcopilot/internal/app"
	"github.com/kylejryan/healthcopilot/internal/authz"
	"github.com/kylejryan/healthcopilot/internal/config"
	"github.com/kylejryan/healthcopilot/internal/httpx"
	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/s3io"
	"github.com/kylejryan/healthcopilot/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

var errInvalidJSON = errors.New("invalid json")

// App holds the application state, including configuration and AWS clients.
type App struct {
	env config.Env
	s3p s3io.Presigner
	log *zap.Logger
}

func main() {
	env := config.MustLoad()
	log := logx.New(env.LogLevel)
	defer log.Sync()

	if _, err := env.RequireBucket(); err != nil {
		log.Fatal("config", zap.Error(err))
	}
	a, err := app.New(context.Background(), env, log)
	if err != nil {
		log.Fatal("aws config", zap.Error(err))
	}

	h := &App{
		env: env,
		s3p: s3.NewPresignClient(a.S3()), // Use AWS SDK's presign client
		log: log,
	}
	lambda.Start(h.handler)
}

// handler processes the incoming API Gateway request to generate a presigned S3 URL.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	actor, err := authz.FromAPIGWv2(req, a.env.DevBypassAuth)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	body, err := parseAndValidateRequest(req)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}

	key := s3io.UploadKey(a.env.UploadPrefix, body.Filename)
	meta := map[string]string{
		"uploaded_by": actor,
		"filename":    s3io.Filename(key),
	}
	url, ttl, err := s3io.PresignPut(ctx, a.s3p, a.env.Bucket, key, body.ContentType, meta, a.env.PresignTTL)
	if err != nil {
		a.log.Error("presign failed", zap.String("key", key), zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "presign error")
	}
	a.log.Info("issued upload url", zap.String("key", key), zap.String("uploaded_by", actor))

	return httpx.JSON(http.StatusOK, api.PresignResponse{
		FormID:       s3io.FormID(a.env.Bucket, key),
		S3Key:        key,
		PresignedURL: url,
		ExpiresIn:    int(ttl / time.Second),
		ContentType:  body.ContentType,
		UploadHeaders: map[string]string{
			"Content-Type":                 body.ContentType,
			"x-amz-server-side-encryption": "aws:kms",
			"x-amz-meta-uploaded_by":       actor,
			"x-amz-meta-filename":          meta["filename"],
		},
	})
}

// parseAndValidateRequest parses the JSON body and validates all input fields.
func parseAndValidateRequest(req events.APIGatewayV2HTTPRequest) (api.PresignRequest, error) {
	var body api.PresignRequest
	if err := httpx.DecodeBody(req, &body); err != nil {
		return body, errInvalidJSON
	}

	validators := []func() error{
		func() error { return validate.FilenameForm(body.Filename) },
		func() error { return validate.ContentTypeMatches(body.Filename, body.ContentType) },
	}
	for _, validator := range validators {
		if err := validator(); err != nil {
			return body, err
		}
	}

	body.ContentType = s3io.ContentTypeFor(body.Filename)
	return body, nil
}
