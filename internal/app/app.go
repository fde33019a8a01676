// Package app builds the pipeline, record store, review service and notifier
// from configuration. Every entry point wires its collaborators here.
package app

import (
	"context"
	"fmt"

	"github.com/kylejryan/healthcopilot/internal/awsutil"
	"github.com/kylejryan/healthcopilot/internal/config"
	"github.com/kylejryan/healthcopilot/internal/ddb"
	"github.com/kylejryan/healthcopilot/internal/dedup"
	"github.com/kylejryan/healthcopilot/internal/embed"
	"github.com/kylejryan/healthcopilot/internal/fields"
	"github.com/kylejryan/healthcopilot/internal/llm"
	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/notify"
	"github.com/kylejryan/healthcopilot/internal/patient"
	"github.com/kylejryan/healthcopilot/internal/pipeline"
	"github.com/kylejryan/healthcopilot/internal/review"
	"github.com/kylejryan/healthcopilot/internal/textract"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrock"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/comprehend"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	awstextract "github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/translate"
	"go.uber.org/zap"
)

// App holds the configuration, AWS config and logger shared by all components.
type App struct {
	Env      config.Env
	AWS      aws.Config
	Endpoint string // non-empty when targeting LocalStack
	Log      *zap.Logger

	runtime *bedrockruntime.Client
	closers []func() error
}

// New loads the AWS configuration for env.
func New(ctx context.Context, env config.Env, log *zap.Logger) (*App, error) {
	cfg, endpoint, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return FromConfig(env, cfg, endpoint, log), nil
}

// FromConfig builds an App from an already loaded AWS config.
func FromConfig(env config.Env, cfg aws.Config, endpoint string, log *zap.Logger) *App {
	return &App{Env: env, AWS: cfg, Endpoint: endpoint, Log: logx.OrNop(log)}
}

// Close releases long-lived clients (Kafka writers).
func (a *App) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// S3 returns an S3 client, path-style when targeting a local endpoint.
func (a *App) S3() *s3.Client {
	return s3.NewFromConfig(a.AWS, func(o *s3.Options) {
		if a.Endpoint != "" {
			o.UsePathStyle = true // localstack/dev friendliness
		}
	})
}

// Repo returns the record store. Overwrite follows the re-ingest policy.
func (a *App) Repo() *ddb.Repo {
	return &ddb.Repo{
		DB:        dynamodb.NewFromConfig(a.AWS),
		Table:     a.Env.Table,
		Overwrite: a.Env.Overwrite(),
	}
}

func (a *App) bedrockRuntime() *bedrockruntime.Client {
	if a.runtime == nil {
		a.runtime = bedrockruntime.NewFromConfig(a.AWS)
	}
	return a.runtime
}

// FieldModel returns the model used for structured field extraction.
func (a *App) FieldModel() llm.Model {
	if a.Env.FieldBackend == config.BackendAnthropic {
		return llm.NewAnthropic(a.Env.AnthropicAPIKey, a.Env.AnthropicModel)
	}
	return llm.NewBedrockClaude(a.bedrockRuntime(), a.Env.FieldModelID)
}

// FieldModelID names the configured field model, for logs and checks.
func (a *App) FieldModelID() string {
	if a.Env.FieldBackend == config.BackendAnthropic {
		return a.Env.AnthropicModel
	}
	return a.Env.FieldModelID
}

// CheckModels verifies the Bedrock models the deployment depends on resolve.
// The Anthropic API backend is not checked.
func (a *App) CheckModels(ctx context.Context) error {
	api := bedrock.NewFromConfig(a.AWS)
	ids := []string{a.Env.SuggestModelID}
	if a.Env.FieldBackend == config.BackendBedrock {
		ids = append([]string{a.Env.FieldModelID}, ids...)
	}
	if a.Env.EmbedEnabled {
		ids = append(ids, a.Env.EmbedModelID)
	}
	for _, id := range ids {
		if err := llm.CheckModel(ctx, api, id); err != nil {
			return err
		}
	}
	return nil
}

// Notifier returns the configured alert publisher, or nil when notifications
// are disabled.
func (a *App) Notifier() notify.Publisher {
	switch a.Env.NotifyBackend {
	case "sns":
		return &notify.SNS{API: sns.NewFromConfig(a.AWS), TopicARN: a.Env.NotifyTopicARN}
	case "sqs":
		return &notify.SQS{API: sqs.NewFromConfig(a.AWS), QueueURL: a.Env.NotifyQueueURL}
	case "kafka":
		w := notify.NewKafkaWriter(a.Env.KafkaBrokers, a.Env.KafkaTopic)
		a.closers = append(a.closers, w.Close)
		return &notify.Kafka{W: w}
	default:
		return nil
	}
}

// Pipeline builds the intake pipeline.
func (a *App) Pipeline() (*pipeline.Pipeline, error) {
	repo := a.Repo()
	det, err := dedup.NewDetector(repo, dedup.Config{Threshold: a.Env.DedupThreshold}, a.Log.Named("dedup"))
	if err != nil {
		return nil, err
	}
	deps := pipeline.Deps{
		Text:   textract.New(awstextract.NewFromConfig(a.AWS), a.Log.Named("textract")),
		Fields: fields.NewAdapter(a.FieldModel(), a.Log.Named("fields")),
		Store:  repo,
		Dedup:  det,
		Log:    a.Log.Named("pipeline"),
	}
	if a.Env.EmbedEnabled {
		deps.Embed = embed.New(a.bedrockRuntime(), a.Env.EmbedModelID, a.Env.EmbedMaxChars, a.Log.Named("embed"))
	}
	if a.Env.HealthLakeEndpoint != "" {
		deps.Patients = patient.NewMatcher(a.Env.HealthLakeEndpoint, a.Env.Region, a.AWS.Credentials, nil, a.Log.Named("patient"))
	}
	if n := a.Notifier(); n != nil {
		deps.Notify = n
	}
	return pipeline.New(deps)
}

// Review builds the reviewer service.
func (a *App) Review() *review.Service {
	return &review.Service{
		Store:      a.Repo(),
		Suggester:  &llm.BedrockTitan{API: a.bedrockRuntime(), ModelID: a.Env.SuggestModelID},
		Scorer:     a.FieldModel(),
		Comprehend: comprehend.NewFromConfig(a.AWS),
		Translator: translate.NewFromConfig(a.AWS),
		Polly:      polly.NewFromConfig(a.AWS),
		Voice:      a.Env.PollyVoice,
		Log:        a.Log.Named("review"),
	}
}
