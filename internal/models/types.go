// Package models defines the data models used in the application.
package models

import (
	"fmt"
	"strings"
)

// Status represents the review workflow state of a prior authorization request.
type Status string

// Possible values for Status
const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusDenied      Status = "denied"
	StatusDuplicate   Status = "duplicate"
)

// Statuses lists every workflow status in display order.
var Statuses = []Status{StatusPending, StatusUnderReview, StatusApproved, StatusDenied, StatusDuplicate}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Progress returns the workflow completion percentage shown next to a request.
func (s Status) Progress() int {
	switch s {
	case StatusUnderReview:
		return 50
	case StatusApproved, StatusDenied:
		return 100
	default:
		return 0
	}
}

// ParseStatus normalizes and validates a status string.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown status %q", s)
	}
	return st, nil
}

// SystemActor authors audit entries written by the intake pipeline.
const SystemActor = "system"

// DefaultSuggestedAction is used whenever field extraction produced nothing usable.
const DefaultSuggestedAction = "Manual review required"

// AuditEntry is one status change in a record's audit trail.
type AuditEntry struct {
	ChangedBy string `dynamodbav:"changed_by" json:"changed_by"`
	NewStatus Status `dynamodbav:"new_status" json:"new_status"`
	Timestamp string `dynamodbav:"timestamp" json:"timestamp"` // RFC3339 UTC
	Comment   string `dynamodbav:"comment" json:"comment"`
}

// PriorAuthRecord is one submitted prior authorization form and its derived data.
type PriorAuthRecord struct {
	FormID string `dynamodbav:"form_id" json:"form_id"` // primary key, derived from the object location
	S3Key  string `dynamodbav:"s3_key" json:"s3_key"`

	// nil when extraction could not determine the value
	Provider *string `dynamodbav:"provider" json:"provider"`
	NPI      *string `dynamodbav:"npi" json:"npi"`
	Urgency  *string `dynamodbav:"urgency" json:"urgency"`

	MissingFields   []string  `dynamodbav:"missing_fields" json:"missing_fields"`
	SuggestedAction string    `dynamodbav:"suggested_action" json:"suggested_action"`
	Embedding       []float64 `dynamodbav:"embedding" json:"embedding"`

	// nil means no patient lookup was attempted
	HealthLakeMatch *bool `dynamodbav:"healthlake_match,omitempty" json:"healthlake_match,omitempty"`

	Status    Status       `dynamodbav:"status" json:"status"`
	CreatedAt string       `dynamodbav:"created_at" json:"created_at"` // ULID; display ordering only
	AuditLog  []AuditEntry `dynamodbav:"audit_log" json:"audit_log"`
}

// Normalize fills the always-present fields so stored items never carry NULL lists
// or an empty suggested action.
func (r *PriorAuthRecord) Normalize() {
	if r.MissingFields == nil {
		r.MissingFields = []string{}
	}
	if r.Embedding == nil {
		r.Embedding = []float64{}
	}
	if strings.TrimSpace(r.SuggestedAction) == "" {
		r.SuggestedAction = DefaultSuggestedAction
	}
	if r.AuditLog == nil {
		r.AuditLog = []AuditEntry{}
	}
}

// IsDuplicate reports whether the record is currently flagged as a duplicate.
func (r PriorAuthRecord) IsDuplicate() bool { return r.Status == StatusDuplicate }

// CandidateRecord is the structured output of field extraction.
type CandidateRecord struct {
	Provider        *string  `json:"provider"`
	NPI             *string  `json:"npi"`
	Urgency         *string  `json:"urgency"`
	MissingFields   []string `json:"missing_fields"`
	SuggestedAction string   `json:"suggested_action"`
	PatientName     *string  `json:"patient_name,omitempty"`

	// Fallback is set when the fixed fallback record was substituted.
	Fallback bool `json:"-"`
}

// Deref returns the pointed-to string, or def when p is nil.
func Deref(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
