// Package pipeline turns one uploaded prior authorization form into one stored,
// deduplicated record.
//
// Steps run strictly in order. Only text extraction is fatal; every later step
// degrades to a safe default, and a record is always written for a document
// whose text could be read.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kylejryan/healthcopilot/internal/ddb"
	"github.com/kylejryan/healthcopilot/internal/dedup"
	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/models"
	"github.com/kylejryan/healthcopilot/internal/notify"
	"github.com/kylejryan/healthcopilot/internal/patient"
	"github.com/kylejryan/healthcopilot/internal/s3io"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// ErrTextExtraction aborts an ingestion: nothing downstream can work without text.
var ErrTextExtraction = errors.New("text extraction failed")

// InitialComment is the comment on the system-authored first audit entry.
const InitialComment = "Form uploaded and parsed"

// Stage is a pipeline state reached while ingesting one document.
type Stage string

const (
	StageReceived         Stage = "received"
	StageTextExtracted    Stage = "text_extracted"
	StageFieldsParsed     Stage = "fields_parsed"
	StagePatientMatched   Stage = "patient_matched"
	StageEmbedded         Stage = "embedded"
	StagePersisted        Stage = "persisted"
	StageDuplicateChecked Stage = "duplicate_checked"
	StageNotified         Stage = "notified"
	StageDone             Stage = "done"
)

type TextExtractor interface {
	Extract(ctx context.Context, bucket, key string) (string, error)
}

type FieldExtractor interface {
	Process(ctx context.Context, rawText string) models.CandidateRecord
}

type Embedder interface {
	Embed(ctx context.Context, text string) []float64
}

type PatientMatcher interface {
	Match(ctx context.Context, name string) (bool, error)
}

type RecordStore interface {
	Create(ctx context.Context, rec models.PriorAuthRecord) error
}

type DuplicateChecker interface {
	Apply(ctx context.Context, rec models.PriorAuthRecord) (dedup.Decision, error)
}

// Deps are the pipeline's collaborators. Text, Fields and Store are required;
// a nil optional collaborator skips its step.
type Deps struct {
	Text     TextExtractor
	Fields   FieldExtractor
	Store    RecordStore
	Embed    Embedder
	Patients PatientMatcher
	Dedup    DuplicateChecker
	Notify   notify.Publisher
	Log      *zap.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Pipeline ingests uploaded documents.
type Pipeline struct {
	d   Deps
	log *zap.Logger
}

// New validates deps and returns a Pipeline.
func New(d Deps) (*Pipeline, error) {
	switch {
	case d.Text == nil:
		return nil, fmt.Errorf("pipeline: text extractor is required")
	case d.Fields == nil:
		return nil, fmt.Errorf("pipeline: field extractor is required")
	case d.Store == nil:
		return nil, fmt.Errorf("pipeline: record store is required")
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Pipeline{d: d, log: logx.OrNop(d.Log)}, nil
}

// Result describes one ingestion.
type Result struct {
	FormID string
	Record models.PriorAuthRecord
	Stages []Stage

	// Duplicate is the detector's decision; zero when the check did not run.
	Duplicate dedup.Decision
	Notified  bool

	// PersistErr is set when the record could not be written.
	PersistErr error
	// AlreadyIngested is set when a record for this object already existed and
	// was left untouched.
	AlreadyIngested bool
}

func (r *Result) reach(s Stage) { r.Stages = append(r.Stages, s) }

// Reached reports whether the ingestion passed through stage s.
func (r *Result) Reached(s Stage) bool {
	for _, st := range r.Stages {
		if st == s {
			return true
		}
	}
	return false
}

// Ingest runs the pipeline for obj. The only error returned is ErrTextExtraction
// (wrapped); persistence failures are reported in Result.PersistErr.
func (p *Pipeline) Ingest(ctx context.Context, obj Object) (*Result, error) {
	formID := s3io.FormID(obj.Bucket, obj.Key)
	log := p.log.With(zap.String("form_id", formID), zap.String("bucket", obj.Bucket), zap.String("key", obj.Key))
	res := &Result{FormID: formID}
	res.reach(StageReceived)
	log.Info("processing upload")

	text, err := p.d.Text.Extract(ctx, obj.Bucket, obj.Key)
	if err != nil {
		log.Error("text extraction failed", zap.Error(err))
		return res, fmt.Errorf("%w: %s: %v", ErrTextExtraction, obj, err)
	}
	res.reach(StageTextExtracted)

	cand := p.d.Fields.Process(ctx, text)
	res.reach(StageFieldsParsed)
	log.Info("fields parsed",
		zap.Bool("fallback", cand.Fallback),
		zap.Strings("missing_fields", cand.MissingFields))

	now := p.d.Now().UTC()
	rec := models.PriorAuthRecord{
		FormID:          formID,
		S3Key:           obj.Key,
		Provider:        cand.Provider,
		NPI:             cand.NPI,
		Urgency:         cand.Urgency,
		MissingFields:   cand.MissingFields,
		SuggestedAction: cand.SuggestedAction,
		Status:          models.StatusPending,
		CreatedAt:       ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		AuditLog: []models.AuditEntry{{
			ChangedBy: models.SystemActor,
			NewStatus: models.StatusPending,
			Timestamp: now.Format(time.RFC3339),
			Comment:   InitialComment,
		}},
	}

	if p.d.Patients != nil {
		if name := patient.Name(cand, text); name != "" {
			matched, err := p.d.Patients.Match(ctx, name)
			if err != nil {
				log.Warn("patient lookup failed", zap.Error(err))
				matched = false
			}
			rec.HealthLakeMatch = &matched
			res.reach(StagePatientMatched)
		}
	}

	if p.d.Embed != nil {
		rec.Embedding = p.d.Embed.Embed(ctx, text)
		if len(rec.Embedding) > 0 {
			res.reach(StageEmbedded)
		}
	}
	rec.Normalize()
	res.Record = rec

	persisted := false
	if err := p.d.Store.Create(ctx, rec); err != nil {
		if errors.Is(err, ddb.ErrRecordExists) {
			log.Info("record already ingested; leaving it unchanged")
			res.AlreadyIngested = true
			res.reach(StageDone)
			return res, nil
		}
		log.Error("persist record failed", zap.Error(err))
		res.PersistErr = err
	} else {
		persisted = true
		res.reach(StagePersisted)
	}

	if persisted && p.d.Dedup != nil {
		dec, err := p.d.Dedup.Apply(ctx, rec)
		if err != nil {
			log.Warn("duplicate check failed", zap.Error(err))
		} else {
			res.Duplicate = dec
			res.reach(StageDuplicateChecked)
			if dec.IsDuplicate {
				res.Record.Status = models.StatusDuplicate
				log.Info("marked duplicate",
					zap.String("duplicate_of", dec.DuplicateOf),
					zap.Float64("similarity", dec.Similarity))
			}
		}
	}

	if len(rec.MissingFields) > 0 && p.d.Notify != nil {
		if err := p.d.Notify.Publish(ctx, notify.MissingFieldsSubject, notify.MissingFieldsMessage(rec)); err != nil {
			log.Warn("notification failed", zap.Error(err))
		} else {
			res.Notified = true
			res.reach(StageNotified)
		}
	}

	res.reach(StageDone)
	log.Info("upload processed",
		zap.Bool("persisted", persisted),
		zap.Bool("duplicate", res.Duplicate.IsDuplicate),
		zap.Bool("notified", res.Notified))
	return res, nil
}
