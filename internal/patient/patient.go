// Package patient cross-references a form's patient against a HealthLake FHIR
// data store.
package patient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/kylejryan/healthcopilot/internal/logx"
	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"go.uber.org/zap"
)

const signingService = "healthlake"

// sha256 of the empty GET payload.
var emptyPayloadHash = func() string {
	sum := sha256.Sum256(nil)
	return hex.EncodeToString(sum[:])
}()

// HTTPDoer is satisfied by *http.Client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Matcher searches the FHIR Patient resource by name.
type Matcher struct {
	Endpoint    string // data store endpoint, e.g. https://healthlake.us-east-1.amazonaws.com/datastore/<id>/r4
	Region      string
	Credentials aws.CredentialsProvider
	Client      HTTPDoer

	signer *v4.Signer
	log    *zap.Logger
}

// NewMatcher returns a Matcher that signs requests with the given credentials.
func NewMatcher(endpoint, region string, creds aws.CredentialsProvider, client HTTPDoer, log *zap.Logger) *Matcher {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Matcher{
		Endpoint:    strings.TrimRight(endpoint, "/"),
		Region:      region,
		Credentials: creds,
		Client:      client,
		signer:      v4.NewSigner(),
		log:         logx.OrNop(log),
	}
}

type bundle struct {
	ResourceType string            `json:"resourceType"`
	Total        int               `json:"total"`
	Entry        []json.RawMessage `json:"entry"`
}

// Match reports whether at least one Patient resource matches name.
func (m *Matcher) Match(ctx context.Context, name string) (bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("patient name is empty")
	}
	q := url.Values{}
	q.Set("name", name)
	q.Set("_count", "1")
	endpoint := m.Endpoint + "/Patient?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("build patient search: %w", err)
	}
	req.Header.Set("Accept", "application/fhir+json")

	creds, err := m.Credentials.Retrieve(ctx)
	if err != nil {
		return false, fmt.Errorf("retrieve credentials: %w", err)
	}
	if err := m.signer.SignHTTP(ctx, creds, req, emptyPayloadHash, signingService, m.Region, time.Now()); err != nil {
		return false, fmt.Errorf("sign patient search: %w", err)
	}

	resp, err := m.Client.Do(req)
	if err != nil {
		return false, fmt.Errorf("patient search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read patient search: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("patient search: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var b bundle
	if err := json.Unmarshal(body, &b); err != nil {
		return false, fmt.Errorf("decode patient bundle: %w", err)
	}
	matched := b.Total > 0 || len(b.Entry) > 0
	m.log.Debug("patient search", zap.Bool("matched", matched), zap.Int("total", b.Total))
	return matched, nil
}

var patientLine = regexp.MustCompile(`(?im)^\s*patient(?:\s+name)?\s*[:\-]\s*(.+?)\s*$`)

// Name returns the patient name for a form: the extracted patient_name when
// present, otherwise the first "Patient Name:" or "Patient:" line of the raw text.
func Name(c models.CandidateRecord, rawText string) string {
	if n := strings.TrimSpace(models.Deref(c.PatientName, "")); n != "" {
		return n
	}
	if m := patientLine.FindStringSubmatch(rawText); m != nil {
		return m[1]
	}
	return ""
}
