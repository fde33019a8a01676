package fields

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/samber/lo"
)

// objectRx matches from the first '{' to the first '}' that follows it. It
// assumes a single flat object: an object containing nested braces is cut at
// the first closing brace and fails to decode.
var objectRx = regexp.MustCompile(`(?s)\{.*?\}`)

// ErrNoObject is returned when a response contains no brace-delimited substring.
var ErrNoObject = errors.New("no JSON object in model output")

// ExtractObject returns the first brace-delimited substring of text.
func ExtractObject(text string) (string, error) {
	m := objectRx.FindString(text)
	if m == "" {
		return "", ErrNoObject
	}
	return m, nil
}

// looseString decodes a JSON string, number or null. Models sometimes emit an
// NPI as a bare number.
type looseString struct {
	v *string
}

func (l *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		l.v = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		l.v = &s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	s = n.String()
	l.v = &s
	return nil
}

type candidateJSON struct {
	Provider        looseString `json:"provider"`
	NPI             looseString `json:"npi"`
	Urgency         looseString `json:"urgency"`
	MissingFields   []string    `json:"missing_fields"`
	SuggestedAction looseString `json:"suggested_action"`
	PatientName     looseString `json:"patient_name"`
}

// Parse decodes a single JSON object into a CandidateRecord. Blank identity
// fields become nil, missing fields are trimmed and de-duplicated, and an empty
// suggested action becomes the default.
func Parse(object string) (models.CandidateRecord, error) {
	var raw candidateJSON
	if err := json.Unmarshal([]byte(object), &raw); err != nil {
		return models.CandidateRecord{}, err
	}
	return models.CandidateRecord{
		Provider:        blankToNil(raw.Provider.v),
		NPI:             blankToNil(raw.NPI.v),
		Urgency:         blankToNil(raw.Urgency.v),
		MissingFields:   NormalizeFields(raw.MissingFields),
		SuggestedAction: models.Deref(blankToNil(raw.SuggestedAction.v), models.DefaultSuggestedAction),
		PatientName:     blankToNil(raw.PatientName.v),
	}, nil
}

// Fallback is the fixed record used whenever extraction cannot produce valid
// structured data.
func Fallback() models.CandidateRecord {
	return models.CandidateRecord{
		MissingFields:   []string{},
		SuggestedAction: models.DefaultSuggestedAction,
		Fallback:        true,
	}
}

// NormalizeFields trims names, drops blanks and repeats, and never returns nil.
func NormalizeFields(in []string) []string {
	out := lo.Uniq(lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.TrimSpace(s)
		return s, s != ""
	}))
	if out == nil {
		return []string{}
	}
	return out
}

func blankToNil(p *string) *string {
	if p == nil {
		return nil
	}
	s := strings.TrimSpace(*p)
	if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "none") {
		return nil
	}
	return &s
}
