// Package export writes stored records to Parquet for offline analysis.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/parquet-go/parquet-go"
)

// RecordRow is the Parquet shape of one prior authorization record. Embeddings
// are summarized by their dimension; the audit trail by its length and last entry.
type RecordRow struct {
	FormID          string   `parquet:"form_id"`
	S3Key           string   `parquet:"s3_key"`
	Provider        *string  `parquet:"provider,optional"`
	NPI             *string  `parquet:"npi,optional"`
	Urgency         *string  `parquet:"urgency,optional"`
	MissingFields   []string `parquet:"missing_fields,list"`
	SuggestedAction string   `parquet:"suggested_action"`
	HealthLakeMatch *bool    `parquet:"healthlake_match,optional"`
	Status          string   `parquet:"status"`
	Progress        int32    `parquet:"progress"`
	CreatedAt       string   `parquet:"created_at"`
	EmbeddingDims   int32    `parquet:"embedding_dims"`
	AuditCount      int32    `parquet:"audit_count"`
	LastChangedBy   string   `parquet:"last_changed_by"`
	LastChangedAt   string   `parquet:"last_changed_at"`
}

// Row converts a record to its Parquet row.
func Row(rec models.PriorAuthRecord) RecordRow {
	row := RecordRow{
		FormID:          rec.FormID,
		S3Key:           rec.S3Key,
		Provider:        rec.Provider,
		NPI:             rec.NPI,
		Urgency:         rec.Urgency,
		MissingFields:   rec.MissingFields,
		SuggestedAction: rec.SuggestedAction,
		HealthLakeMatch: rec.HealthLakeMatch,
		Status:          string(rec.Status),
		Progress:        int32(rec.Status.Progress()),
		CreatedAt:       rec.CreatedAt,
		EmbeddingDims:   int32(len(rec.Embedding)),
		AuditCount:      int32(len(rec.AuditLog)),
	}
	if n := len(rec.AuditLog); n > 0 {
		last := rec.AuditLog[n-1]
		row.LastChangedBy = last.ChangedBy
		row.LastChangedAt = last.Timestamp
	}
	if row.MissingFields == nil {
		row.MissingFields = []string{}
	}
	return row
}

// Writer writes records to a Parquet file.
type Writer struct {
	file   *os.File
	writer *parquet.GenericWriter[RecordRow]
	count  int
}

// NewWriter creates (or truncates) the Parquet file at path.
func NewWriter(path string) (*Writer, error) {
	if !strings.HasSuffix(path, ".parquet") {
		return nil, fmt.Errorf("output file must end in .parquet: %s", path)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet file: %w", err)
	}
	writer := parquet.NewGenericWriter[RecordRow](file,
		parquet.Compression(&parquet.Snappy),
		parquet.CreatedBy("healthcopilot", "1.0", ""),
	)
	return &Writer{file: file, writer: writer}, nil
}

// Write appends records.
func (w *Writer) Write(recs ...models.PriorAuthRecord) error {
	rows := make([]RecordRow, len(recs))
	for i, r := range recs {
		rows[i] = Row(r)
	}
	if _, err := w.writer.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	w.count += len(rows)
	return nil
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the number of records written.
func (w *Writer) Count() int { return w.count }
