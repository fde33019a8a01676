package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/kylejryan/healthcopilot/internal/api"
	"github.com/kylejryan/healthcopilot/internal/config"
	"github.com/kylejryan/healthcopilot/internal/ddb"
	"github.com/kylejryan/healthcopilot/internal/models"
	"github.com/kylejryan/healthcopilot/internal/review"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReviewer struct {
	updates []string
	err     error
}

func (f *fakeReviewer) Get(_ context.Context, id string) (models.PriorAuthRecord, error) {
	if id == "missing" {
		return models.PriorAuthRecord{}, ddb.ErrNotFound
	}
	return models.PriorAuthRecord{FormID: id, Status: models.StatusPending, Embedding: []float64{1}}, f.err
}

func (f *fakeReviewer) UpdateStatus(_ context.Context, id, status, actor, comment string) (models.AuditEntry, error) {
	f.updates = append(f.updates, id+":"+status+":"+actor+":"+comment)
	return models.AuditEntry{ChangedBy: actor, NewStatus: models.Status(status), Comment: comment}, f.err
}

func (f *fakeReviewer) Suggest(context.Context, string) (string, error) {
	return review.NoSuggestion, f.err
}

func (f *fakeReviewer) NecessityScore(context.Context, string) (review.Necessity, error) {
	return review.Necessity{Score: 80, Rationale: "ok"}, f.err
}

func (f *fakeReviewer) AnalyzeComment(_ context.Context, text string) (review.Sentiment, error) {
	if text == "" {
		return review.Sentiment{}, review.ErrInvalidInput
	}
	return review.Sentiment{Sentiment: "POSITIVE"}, f.err
}

func (f *fakeReviewer) Translate(_ context.Context, text, target string) (review.Translation, error) {
	return review.Translation{Text: "Hola", TargetLanguage: target}, f.err
}

func (f *fakeReviewer) Speak(context.Context, string, string) ([]byte, error) {
	return []byte("mp3"), f.err
}

func (f *fakeReviewer) SummaryPDF(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.3"), f.err
}

func newApp(f *fakeReviewer) *App {
	return &App{env: config.Env{DevBypassAuth: true}, svc: f, log: zap.NewNop()}
}

func call(t *testing.T, a *App, routeKey, formID, body string) events.APIGatewayV2HTTPResponse {
	t.Helper()
	req := events.APIGatewayV2HTTPRequest{
		RouteKey: routeKey,
		Headers:  map[string]string{"x-user-sub": "alice"},
		Body:     body,
	}
	if formID != "" {
		req.PathParameters = map[string]string{"form_id": formID}
	}
	resp, err := a.handler(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func TestUpdateStatusRoute(t *testing.T) {
	f := &fakeReviewer{}
	resp := call(t, newApp(f), "POST /records/{form_id}/status", "f1", `{"status":"approved","comment":"ok"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"f1:approved:alice:ok"}, f.updates)

	var out api.StatusResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	assert.Equal(t, models.StatusApproved, out.Entry.NewStatus)

	resp = call(t, newApp(f), "POST /records/{form_id}/status", "f1", `{"status":"archived"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Len(t, f.updates, 1)
}

func TestRoutes(t *testing.T) {
	tests := []struct {
		route, formID, body string
		status              int
		contains            string
	}{
		{"GET /records/{form_id}", "f1", "", http.StatusOK, `"progress":0`},
		{"GET /records/{form_id}", "missing", "", http.StatusNotFound, "record not found"},
		{"GET /records/{form_id}", "", "", http.StatusBadRequest, "form_id required"},
		{"POST /records/{form_id}/suggestion", "f1", "", http.StatusOK, review.NoSuggestion},
		{"POST /records/{form_id}/necessity", "f1", "", http.StatusOK, `"score":80`},
		{"POST /comments/analyze", "", `{"text":"great"}`, http.StatusOK, "POSITIVE"},
		{"POST /comments/analyze", "", `{"text":""}`, http.StatusBadRequest, "invalid input"},
		{"POST /translate", "", `{"text":"Hello","target_language":"es"}`, http.StatusOK, "Hola"},
		{"POST /translate", "", `{"text":"Hello","target_language":"Spanish"}`, http.StatusBadRequest, "language"},
		{"DELETE /records/{form_id}", "f1", "", http.StatusNotFound, "no route"},
	}
	for _, tt := range tests {
		t.Run(tt.route+" "+tt.formID, func(t *testing.T) {
			resp := call(t, newApp(&fakeReviewer{}), tt.route, tt.formID, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode, resp.Body)
			assert.Contains(t, resp.Body, tt.contains)
		})
	}
}

func TestBinaryRoutes(t *testing.T) {
	resp := call(t, newApp(&fakeReviewer{}), "GET /records/{form_id}/pdf", "f1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.IsBase64Encoded)
	assert.Equal(t, "application/pdf", resp.Headers["Content-Type"])
	assert.Contains(t, resp.Headers["Content-Disposition"], "prior_auth_f1.pdf")
	raw, err := base64.StdEncoding.DecodeString(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(raw))

	resp = call(t, newApp(&fakeReviewer{}), "POST /speech", "", `{"text":"hello"}`)
	assert.Equal(t, "audio/mpeg", resp.Headers["Content-Type"])
}

func TestUpstreamFailure(t *testing.T) {
	resp := call(t, newApp(&fakeReviewer{err: errors.New("bedrock throttled")}), "POST /records/{form_id}/suggestion", "f1", "")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.NotContains(t, resp.Body, "throttled")
}

func TestUnauthorized(t *testing.T) {
	a := newApp(&fakeReviewer{})
	resp, err := a.handler(context.Background(), events.APIGatewayV2HTTPRequest{RouteKey: "GET /records/{form_id}"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
