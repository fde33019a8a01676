// Package review implements the reviewer-facing operations on stored prior
// authorization records: listing, status workflow with audit trail, and the
// assistant actions (suggestions, necessity score, sentiment, translation,
// speech, PDF summary). Every assistant action is a direct passthrough; nothing
// is cached and nothing but UpdateStatus touches stored data.
package review

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrInvalidStatus is returned for a status outside the workflow enumeration.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidInput is returned for empty or oversized assistant input.
	ErrInvalidInput = errors.New("invalid input")
)

// DefaultActor authors status changes when no reviewer identity is known.
const DefaultActor = "Admin"

// Store is the record store surface used by reviewers.
type Store interface {
	Get(ctx context.Context, formID string) (models.PriorAuthRecord, error)
	ScanAll(ctx context.Context) ([]models.PriorAuthRecord, error)
	AppendAudit(ctx context.Context, formID string, entry models.AuditEntry) error
}

// Service serves review operations. Optional collaborators may be nil; the
// matching action then fails with an error.
type Service struct {
	Store Store

	Suggester Completer // Titan text model
	Scorer    Completer // Claude
	Comprehend SentimentAPI
	Translator TranslateAPI
	Polly      SpeechAPI
	Voice      string

	Log *zap.Logger
	Now func() time.Time
}

// Completer completes a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

func (s *Service) log() *zap.Logger { return logx.OrNop(s.Log) }

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns every record, newest first. It is a full table scan.
func (s *Service) List(ctx context.Context) ([]models.PriorAuthRecord, error) {
	recs, err := s.Store.ScanAll(ctx)
	if err != nil {
		return nil, err
	}
	SortNewestFirst(recs)
	return recs, nil
}

// SortNewestFirst orders records by created_at, descending.
func SortNewestFirst(recs []models.PriorAuthRecord) {
	slices.SortStableFunc(recs, func(a, b models.PriorAuthRecord) int {
		return strings.Compare(b.CreatedAt, a.CreatedAt)
	})
}

// Get returns one record.
func (s *Service) Get(ctx context.Context, formID string) (models.PriorAuthRecord, error) {
	return s.Store.Get(ctx, formID)
}

// UpdateStatus sets a record's status and appends exactly one audit entry in
// the same write. Prior entries are never modified. Concurrent updates are
// last-writer-wins for status; both entries are kept.
func (s *Service) UpdateStatus(ctx context.Context, formID, status, actor, comment string) (models.AuditEntry, error) {
	st, err := models.ParseStatus(status)
	if err != nil {
		return models.AuditEntry{}, fmt.Errorf("%w: %v", ErrInvalidStatus, err)
	}
	if strings.TrimSpace(actor) == "" {
		actor = DefaultActor
	}
	entry := models.AuditEntry{
		ChangedBy: actor,
		NewStatus: st,
		Timestamp: s.now().UTC().Format(time.RFC3339),
		Comment:   strings.TrimSpace(comment),
	}
	if err := s.Store.AppendAudit(ctx, formID, entry); err != nil {
		return models.AuditEntry{}, err
	}
	s.log().Info("status updated",
		zap.String("form_id", formID),
		zap.String("status", string(st)),
		zap.String("changed_by", actor))
	return entry, nil
}
