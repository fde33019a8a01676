// Package main powers the dashboard by listing every prior authorization record,
// newest first.
package main

import (
	"context"
	"net/http"

	"github.com/kylejryan/healthcopilot/internal/api"
	"github.com/kylejryan/healthcopilot/internal/app"
	"github.com/kylejryan/healthcopilot/internal/authz"
	"github.com/kylejryan/healthcopilot/internal/config"
	"github.com/kylejryan/healthcopilot/internal/httpx"
	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"
)

// Lister returns all records, newest first.
type Lister interface {
	List(ctx context.Context) ([]models.PriorAuthRecord, error)
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env     config.Env
	records Lister
	log     *zap.Logger
}

// handler lists all records. The listing is a full table scan.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	if _, err := authz.FromAPIGWv2(req, a.env.DevBypassAuth); err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}
	recs, err := a.records.List(ctx)
	if err != nil {
		a.log.Error("list records", zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	return httpx.JSON(http.StatusOK, api.ListResponse{Records: api.Views(recs), Count: len(recs)})
}

// main initializes the application and starts the Lambda handler.
func main() {
	env := config.MustLoad()
	log := logx.New(env.LogLevel)
	defer log.Sync()

	a, err := app.New(context.Background(), env, log)
	if err != nil {
		log.Fatal("aws config", zap.Error(err))
	}
	h := &App{env: env, records: a.Review(), log: log}
	lambda.Start(h.handler)
}
