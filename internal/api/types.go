// Package api contains types for the API requests and responses.
package api

import (
	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/samber/lo"
)

// PresignRequest represents the request payload for generating a presigned S3 upload URL.
type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

// PresignResponse represents the response payload containing the presigned S3 upload URL and related info.
type PresignResponse struct {
	FormID        string            `json:"form_id"`
	S3Key         string            `json:"s3_key"`
	PresignedURL  string            `json:"presigned_url"`
	ExpiresIn     int               `json:"expires_in"`
	ContentType   string            `json:"content_type"`
	UploadHeaders map[string]string `json:"upload_headers"`
}

// RecordView is a record as shown to reviewers. The embedding is omitted and an
// unknown patient match is shown as false.
type RecordView struct {
	FormID          string              `json:"form_id"`
	S3Key           string              `json:"s3_key"`
	Provider        *string             `json:"provider"`
	NPI             *string             `json:"npi"`
	Urgency         *string             `json:"urgency"`
	MissingFields   []string            `json:"missing_fields"`
	SuggestedAction string              `json:"suggested_action"`
	HealthLakeMatch bool                `json:"healthlake_match"`
	Status          models.Status       `json:"status"`
	Progress        int                 `json:"progress"`
	CreatedAt       string              `json:"created_at"`
	AuditLog        []models.AuditEntry `json:"audit_log"`
}

// View builds the reviewer view of rec.
func View(rec models.PriorAuthRecord) RecordView {
	rec.Normalize()
	return RecordView{
		FormID:          rec.FormID,
		S3Key:           rec.S3Key,
		Provider:        rec.Provider,
		NPI:             rec.NPI,
		Urgency:         rec.Urgency,
		MissingFields:   rec.MissingFields,
		SuggestedAction: rec.SuggestedAction,
		HealthLakeMatch: rec.HealthLakeMatch != nil && *rec.HealthLakeMatch,
		Status:          rec.Status,
		Progress:        rec.Status.Progress(),
		CreatedAt:       rec.CreatedAt,
		AuditLog:        rec.AuditLog,
	}
}

// Views maps View over recs.
func Views(recs []models.PriorAuthRecord) []RecordView {
	return lo.Map(recs, func(r models.PriorAuthRecord, _ int) RecordView { return View(r) })
}

// ListResponse is the body of GET /records.
type ListResponse struct {
	Records []RecordView `json:"records"`
	Count   int          `json:"count"`
}

// StatusRequest is the body of POST /records/{form_id}/status.
type StatusRequest struct {
	Status  string `json:"status"`
	Comment string `json:"comment"`
}

// StatusResponse echoes the appended audit entry.
type StatusResponse struct {
	FormID string            `json:"form_id"`
	Entry  models.AuditEntry `json:"entry"`
}

// SuggestionResponse is the body of POST /records/{form_id}/suggestion.
type SuggestionResponse struct {
	FormID     string `json:"form_id"`
	Suggestion string `json:"suggestion"`
}

// TextRequest carries free text for comment analysis.
type TextRequest struct {
	Text string `json:"text"`
}

// TranslateRequest is the body of POST /translate.
type TranslateRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"target_language"`
}

// SpeechRequest is the body of POST /speech.
type SpeechRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}
