// Package main ingests an uploaded prior authorization form when its S3 upload
// completes: text extraction, field extraction, dedup, persistence and alerting.
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kylejryan/healthcopilot/internal/app"
	"github.com/kylejryan/healthcopilot/internal/config"
	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/pipeline"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// Ingester is the pipeline surface the handler drives.
type Ingester interface {
	Ingest(ctx context.Context, obj pipeline.Object) (*pipeline.Result, error)
}

// App holds the application state for the intake Lambda.
type App struct {
	pipe Ingester
	log  *zap.Logger
}

// Response is returned to the invoker for each event.
type Response struct {
	FormID          string `json:"form_id"`
	Status          string `json:"status"`
	Duplicate       bool   `json:"duplicate"`
	DuplicateOf     string `json:"duplicate_of,omitempty"`
	Notified        bool   `json:"notified"`
	AlreadyIngested bool   `json:"already_ingested,omitempty"`
}

func main() {
	env := config.MustLoad()
	log := logx.New(env.LogLevel)
	defer log.Sync()

	ctx := context.Background()
	a, err := app.New(ctx, env, log)
	if err != nil {
		log.Fatal("aws config", zap.Error(err))
	}
	defer a.Close()

	// Connectivity check is informational: a failure is logged and intake still runs.
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := a.CheckModels(checkCtx); err != nil {
		log.Warn("model connectivity check failed", zap.Error(err))
	} else {
		log.Info("model connectivity check passed", zap.String("field_model", a.FieldModelID()))
	}
	cancel()

	pipe, err := a.Pipeline()
	if err != nil {
		log.Fatal("build pipeline", zap.Error(err))
	}
	h := &App{pipe: pipe, log: log}
	lambda.Start(h.handler)
}

// handler ingests the first object of an S3 event. It fails the invocation for
// malformed events, unreadable documents and records that could not be stored,
// so the trigger can retry or dead-letter them.
func (a *App) handler(ctx context.Context, ev events.S3Event) (Response, error) {
	obj, err := pipeline.ParseEvent(ev)
	if err != nil {
		a.log.Error("rejecting event", zap.Error(err))
		return Response{}, err
	}
	if n := len(ev.Records); n > 1 {
		a.log.Warn("event carries more than one record; only the first is processed", zap.Int("records", n))
	}

	res, err := a.pipe.Ingest(ctx, obj)
	if err != nil {
		return Response{}, err
	}
	if res.PersistErr != nil {
		return Response{FormID: res.FormID}, fmt.Errorf("persist %s: %w", res.FormID, res.PersistErr)
	}
	return Response{
		FormID:          res.FormID,
		Status:          string(res.Record.Status),
		Duplicate:       res.Duplicate.IsDuplicate,
		DuplicateOf:     res.Duplicate.DuplicateOf,
		Notified:        res.Notified,
		AlreadyIngested: res.AlreadyIngested,
	}, nil
}
