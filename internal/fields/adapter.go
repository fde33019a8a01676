// Package fields extracts structured prior authorization fields from OCR text
// with a generative model. Extraction never fails: any model or parse problem
// yields the fixed fallback record.
package fields

import (
	"context"
	"fmt"

	"github.com/kylejryan/healthcopilot/internal/llm"
	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/models"

	"go.uber.org/zap"
)

const promptTemplate = `You are a skilled medical prior authorization assistant. Analyze the following prior authorization form text and return JSON:
{
  "provider": "",
  "npi": "",
  "urgency": "",
  "missing_fields": [],
  "suggested_action": ""
}

Form text:
%s
`

// Prompt renders the extraction prompt for rawText.
func Prompt(rawText string) string {
	return fmt.Sprintf(promptTemplate, rawText)
}

// Adapter turns raw form text into a CandidateRecord.
type Adapter struct {
	model llm.Model
	log   *zap.Logger
}

// NewAdapter returns an Adapter that queries model.
func NewAdapter(model llm.Model, log *zap.Logger) *Adapter {
	return &Adapter{model: model, log: logx.OrNop(log)}
}

// Process asks the model for the structured fields and decodes the first JSON
// object in its answer. It always returns a well-formed record.
func (a *Adapter) Process(ctx context.Context, rawText string) (rec models.CandidateRecord) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("field extraction panicked", zap.Any("panic", r))
			rec = Fallback()
		}
	}()

	completion, err := a.model.Complete(ctx, Prompt(rawText))
	if err != nil {
		a.log.Warn("field extraction model call failed", zap.Error(err))
		return Fallback()
	}
	a.log.Debug("field extraction raw output", zap.String("completion", completion))

	object, err := ExtractObject(completion)
	if err != nil {
		a.log.Warn("no JSON object in model output", zap.Int("chars", len(completion)))
		return Fallback()
	}
	rec, err = Parse(object)
	if err != nil {
		a.log.Warn("model output is not valid JSON", zap.Error(err))
		return Fallback()
	}
	return rec
}
