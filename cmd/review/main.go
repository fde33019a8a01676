// Package main serves the reviewer actions on a single record: status updates
// with audit trail, AI suggestions, necessity scoring, comment sentiment,
// translation, speech and the PDF summary.
package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/kylejryan/healthcopilot/internal/api"
	"github.com/kylejryan/healthcopilot/internal/app"
	"github.com/kylejryan/healthcopilot/internal/authz"
	"github.com/kylejryan/healthcopilot/internal/config"
	"github.com/kylejryan/healthcopilot/internal/ddb"
	"github.com/kylejryan/healthcopilot/internal/httpx"
	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/models"
	"github.com/kylejryan/healthcopilot/internal/review"
	"github.com/kylejryan/healthcopilot/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// Reviewer is the review service surface used by the routes.
type Reviewer interface {
	Get(ctx context.Context, formID string) (models.PriorAuthRecord, error)
	UpdateStatus(ctx context.Context, formID, status, actor, comment string) (models.AuditEntry, error)
	Suggest(ctx context.Context, formID string) (string, error)
	NecessityScore(ctx context.Context, formID string) (review.Necessity, error)
	AnalyzeComment(ctx context.Context, text string) (review.Sentiment, error)
	Translate(ctx context.Context, text, target string) (review.Translation, error)
	Speak(ctx context.Context, text, voice string) ([]byte, error)
	SummaryPDF(ctx context.Context, formID string) ([]byte, error)
}

// App holds the application state for the review API.
type App struct {
	env config.Env
	svc Reviewer
	log *zap.Logger
}

type route func(ctx context.Context, actor string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

func (a *App) routes() map[string]route {
	return map[string]route{
		"GET /records/{form_id}":             a.getRecord,
		"POST /records/{form_id}/status":     a.updateStatus,
		"POST /records/{form_id}/suggestion": a.suggest,
		"POST /records/{form_id}/necessity":  a.necessity,
		"GET /records/{form_id}/pdf":         a.pdf,
		"POST /comments/analyze":             a.analyzeComment,
		"POST /translate":                    a.translate,
		"POST /speech":                       a.speech,
	}
}

func main() {
	env := config.MustLoad()
	log := logx.New(env.LogLevel)
	defer log.Sync()

	a, err := app.New(context.Background(), env, log)
	if err != nil {
		log.Fatal("aws config", zap.Error(err))
	}
	h := &App{env: env, svc: a.Review(), log: log}
	lambda.Start(h.handler)
}

// handler dispatches on the API Gateway route key.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	actor, err := authz.FromAPIGWv2(req, a.env.DevBypassAuth)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}
	r, ok := a.routes()[req.RouteKey]
	if !ok {
		return httpx.Error(http.StatusNotFound, "no route "+req.RouteKey)
	}
	return r(ctx, actor, req)
}

// fail maps service errors to responses. Upstream failures are logged and
// reported without detail.
func (a *App) fail(op string, err error) (events.APIGatewayV2HTTPResponse, error) {
	switch {
	case errors.Is(err, ddb.ErrNotFound):
		return httpx.Error(http.StatusNotFound, "record not found")
	case errors.Is(err, review.ErrInvalidStatus), errors.Is(err, review.ErrInvalidInput):
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	a.log.Error(op+" failed", zap.Error(err))
	return httpx.Error(http.StatusBadGateway, op+" failed")
}

func formID(req events.APIGatewayV2HTTPRequest) (string, error) {
	id := req.PathParameters["form_id"]
	return id, validate.FormIDOK(id)
}

func (a *App) getRecord(ctx context.Context, _ string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	id, err := formID(req)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	rec, err := a.svc.Get(ctx, id)
	if err != nil {
		return a.fail("get", err)
	}
	return httpx.JSON(http.StatusOK, api.View(rec))
}

func (a *App) updateStatus(ctx context.Context, actor string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	id, err := formID(req)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	var body api.StatusRequest
	if err := httpx.DecodeBody(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	for _, check := range []func() error{
		func() error { return validate.Status(body.Status) },
		func() error { return validate.Comment(body.Comment) },
	} {
		if err := check(); err != nil {
			return httpx.Error(http.StatusBadRequest, err.Error())
		}
	}
	entry, err := a.svc.UpdateStatus(ctx, id, body.Status, actor, body.Comment)
	if err != nil {
		return a.fail("update status", err)
	}
	return httpx.JSON(http.StatusOK, api.StatusResponse{FormID: id, Entry: entry})
}

func (a *App) suggest(ctx context.Context, _ string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	id, err := formID(req)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	s, err := a.svc.Suggest(ctx, id)
	if err != nil {
		return a.fail("suggestion", err)
	}
	return httpx.JSON(http.StatusOK, api.SuggestionResponse{FormID: id, Suggestion: s})
}

func (a *App) necessity(ctx context.Context, _ string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	id, err := formID(req)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	n, err := a.svc.NecessityScore(ctx, id)
	if err != nil {
		return a.fail("necessity score", err)
	}
	return httpx.JSON(http.StatusOK, n)
}

func (a *App) pdf(ctx context.Context, _ string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	id, err := formID(req)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	doc, err := a.svc.SummaryPDF(ctx, id)
	if err != nil {
		return a.fail("pdf", err)
	}
	return httpx.Binary("application/pdf", review.PDFFilename(id), doc)
}

func (a *App) analyzeComment(ctx context.Context, _ string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body api.TextRequest
	if err := httpx.DecodeBody(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	s, err := a.svc.AnalyzeComment(ctx, body.Text)
	if err != nil {
		return a.fail("comment analysis", err)
	}
	return httpx.JSON(http.StatusOK, s)
}

func (a *App) translate(ctx context.Context, _ string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body api.TranslateRequest
	if err := httpx.DecodeBody(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	if err := validate.LanguageCode(body.TargetLanguage); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	t, err := a.svc.Translate(ctx, body.Text, body.TargetLanguage)
	if err != nil {
		return a.fail("translation", err)
	}
	return httpx.JSON(http.StatusOK, t)
}

func (a *App) speech(ctx context.Context, _ string, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	var body api.SpeechRequest
	if err := httpx.DecodeBody(req, &body); err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid json")
	}
	audio, err := a.svc.Speak(ctx, body.Text, body.Voice)
	if err != nil {
		return a.fail("speech", err)
	}
	return httpx.Binary("audio/mpeg", "", audio)
}
