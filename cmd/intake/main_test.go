package main

import (
	"context"
	"errors"
	"testing"

	"github.com/kylejryan/healthcopilot/internal/dedup"
	"github.com/kylejryan/healthcopilot/internal/models"
	"github.com/kylejryan/healthcopilot/internal/pipeline"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIngester struct {
	got []pipeline.Object
	res *pipeline.Result
	err error
}

func (f *fakeIngester) Ingest(_ context.Context, obj pipeline.Object) (*pipeline.Result, error) {
	f.got = append(f.got, obj)
	return f.res, f.err
}

func event(keys ...string) events.S3Event {
	var ev events.S3Event
	for _, k := range keys {
		var r events.S3EventRecord
		r.S3.Bucket.Name = "docs"
		r.S3.Object.Key = k
		ev.Records = append(ev.Records, r)
	}
	return ev
}

func TestHandlerIngestsFirstRecord(t *testing.T) {
	f := &fakeIngester{res: &pipeline.Result{
		FormID:    "f1",
		Record:    models.PriorAuthRecord{Status: models.StatusDuplicate},
		Duplicate: dedup.Decision{IsDuplicate: true, DuplicateOf: "f0", Similarity: 0.97},
		Notified:  true,
	}}
	a := &App{pipe: f, log: zap.NewNop()}

	resp, err := a.handler(context.Background(), event("uploads/a.pdf", "uploads/b.pdf"))
	require.NoError(t, err)
	assert.Equal(t, []pipeline.Object{{Bucket: "docs", Key: "uploads/a.pdf"}}, f.got)
	assert.Equal(t, Response{FormID: "f1", Status: "duplicate", Duplicate: true, DuplicateOf: "f0", Notified: true}, resp)
}

func TestHandlerFailures(t *testing.T) {
	a := &App{pipe: &fakeIngester{}, log: zap.NewNop()}
	_, err := a.handler(context.Background(), events.S3Event{})
	assert.ErrorIs(t, err, pipeline.ErrMalformedEvent)

	a.pipe = &fakeIngester{err: pipeline.ErrTextExtraction}
	_, err = a.handler(context.Background(), event("uploads/a.pdf"))
	assert.ErrorIs(t, err, pipeline.ErrTextExtraction)

	storeErr := errors.New("throttled")
	a.pipe = &fakeIngester{res: &pipeline.Result{FormID: "f1", PersistErr: storeErr}}
	_, err = a.handler(context.Background(), event("uploads/a.pdf"))
	assert.ErrorIs(t, err, storeErr)
}

func TestHandlerAlreadyIngestedSucceeds(t *testing.T) {
	a := &App{pipe: &fakeIngester{res: &pipeline.Result{FormID: "f1", AlreadyIngested: true}}, log: zap.NewNop()}
	resp, err := a.handler(context.Background(), event("uploads/a.pdf"))
	require.NoError(t, err)
	assert.True(t, resp.AlreadyIngested)
}
