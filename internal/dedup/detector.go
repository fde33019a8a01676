// Package dedup flags newly ingested forms that are near-duplicates of stored
// ones by comparing embeddings with cosine similarity.
//
// Every check scans the whole record store, so its cost grows linearly with the
// number of stored forms. The scan and the follow-up status update are not
// isolated from concurrent ingestions: two near-identical forms ingested at the
// same moment may both stay pending.
package dedup

import (
	"context"
	"fmt"

	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/models"

	"go.uber.org/zap"
)

// Store is the record store surface the detector needs.
type Store interface {
	// ScanAll returns every stored record (full scan).
	ScanAll(ctx context.Context) ([]models.PriorAuthRecord, error)
	// UpdateStatus sets only the status attribute of a record.
	UpdateStatus(ctx context.Context, formID string, status models.Status) error
}

// Decision is the outcome of a duplicate check.
type Decision struct {
	IsDuplicate bool    `json:"is_duplicate"`
	DuplicateOf string  `json:"duplicate_of,omitempty"`
	Similarity  float64 `json:"similarity"`

	// ComparedCount is the number of stored embeddings actually compared.
	ComparedCount int `json:"compared_count"`
}

// Validate checks if the decision has consistent values.
func (d Decision) Validate() error {
	if d.IsDuplicate && d.DuplicateOf == "" {
		return fmt.Errorf("duplicate_of must be set when is_duplicate is true")
	}
	if !d.IsDuplicate && d.DuplicateOf != "" {
		return fmt.Errorf("duplicate_of should not be set when is_duplicate is false")
	}
	if d.Similarity < -1.0000001 || d.Similarity > 1.0000001 {
		return fmt.Errorf("similarity must be between -1 and 1 (got %.4f)", d.Similarity)
	}
	if d.ComparedCount < 0 {
		return fmt.Errorf("compared_count cannot be negative (got %d)", d.ComparedCount)
	}
	return nil
}

// FindDuplicate compares embedding against every existing record except selfID
// and records without an embedding. The first record whose similarity strictly
// exceeds threshold wins and the scan stops there; there is no best-match
// ranking. When nothing matches, Similarity is the highest value seen.
func FindDuplicate(embedding []float64, selfID string, existing []models.PriorAuthRecord, threshold float64) Decision {
	var d Decision
	if len(embedding) == 0 {
		return d
	}
	best := -1.0
	for _, rec := range existing {
		if rec.FormID == selfID || len(rec.Embedding) == 0 {
			continue
		}
		d.ComparedCount++
		sim := Cosine(embedding, rec.Embedding)
		if sim > threshold {
			d.IsDuplicate = true
			d.DuplicateOf = rec.FormID
			d.Similarity = sim
			return d
		}
		if sim > best {
			best = sim
		}
	}
	if d.ComparedCount > 0 {
		d.Similarity = best
	}
	return d
}

// Detector checks new records against the store and flags duplicates.
type Detector struct {
	store Store
	cfg   Config
	log   *zap.Logger
}

// NewDetector returns a Detector. The config must be valid.
func NewDetector(store Store, cfg Config, log *zap.Logger) (*Detector, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Detector{store: store, cfg: cfg, log: logx.OrNop(log)}, nil
}

// Check decides whether rec duplicates a stored record without modifying
// anything. A record without an embedding is never a duplicate and triggers no scan.
func (d *Detector) Check(ctx context.Context, rec models.PriorAuthRecord) (Decision, error) {
	if len(rec.Embedding) == 0 {
		return Decision{}, nil
	}
	existing, err := d.store.ScanAll(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("scan for duplicates: %w", err)
	}
	return FindDuplicate(rec.Embedding, rec.FormID, existing, d.cfg.Threshold), nil
}

// Apply runs Check and, on a duplicate, sets rec's stored status to duplicate.
// Nothing else on the stored record changes, and the audit log is left as written.
func (d *Detector) Apply(ctx context.Context, rec models.PriorAuthRecord) (Decision, error) {
	dec, err := d.Check(ctx, rec)
	if err != nil {
		return dec, err
	}
	if !dec.IsDuplicate {
		d.log.Debug("no duplicate found",
			zap.String("form_id", rec.FormID),
			zap.Int("compared", dec.ComparedCount))
		return dec, nil
	}
	if err := d.store.UpdateStatus(ctx, rec.FormID, models.StatusDuplicate); err != nil {
		return dec, fmt.Errorf("flag %s as duplicate: %w", rec.FormID, err)
	}
	d.log.Info("flagged duplicate",
		zap.String("form_id", rec.FormID),
		zap.String("duplicate_of", dec.DuplicateOf),
		zap.Float64("similarity", dec.Similarity),
		zap.Int("compared", dec.ComparedCount))
	return dec, nil
}
