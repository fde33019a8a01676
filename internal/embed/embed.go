// Package embed turns form text into a similarity vector with a Bedrock
// embedding model. Failures degrade to an empty vector, which callers treat as
// "no similarity signal".
package embed

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/kylejryan/healthcopilot/internal/llm"
	"github.com/kylejryan/healthcopilot/internal/logx"

	"go.uber.org/zap"
)

// DefaultMaxChars bounds the text sent to the model.
const DefaultMaxChars = 25000

type titanEmbedRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbedResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// Embedder calls a Titan embedding model.
type Embedder struct {
	api      llm.InvokeAPI
	modelID  string
	maxChars int
	log      *zap.Logger
}

// New returns an Embedder. maxChars <= 0 uses DefaultMaxChars.
func New(api llm.InvokeAPI, modelID string, maxChars int, log *zap.Logger) *Embedder {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Embedder{api: api, modelID: modelID, maxChars: maxChars, log: logx.OrNop(log)}
}

// Embed returns the embedding of text, or an empty non-nil slice on any failure.
func (e *Embedder) Embed(ctx context.Context, text string) []float64 {
	if text == "" {
		return []float64{}
	}
	raw, err := llm.Invoke(ctx, e.api, e.modelID, titanEmbedRequest{InputText: truncate(text, e.maxChars)})
	if err != nil {
		e.log.Warn("embedding failed", zap.Error(err))
		return []float64{}
	}
	var resp titanEmbedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		e.log.Warn("embedding response undecodable", zap.Error(err))
		return []float64{}
	}
	if len(resp.Embedding) == 0 {
		e.log.Warn("embedding response empty", zap.String("model", e.modelID))
		return []float64{}
	}
	e.log.Debug("embedded text", zap.Int("dims", len(resp.Embedding)), zap.Int("tokens", resp.InputTextTokenCount))
	return resp.Embedding
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
