package dedup

import (
	"context"
	"errors"
	"testing"

	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	records  []models.PriorAuthRecord
	scanErr  error
	updErr   error
	scans    int
	statuses map[string]models.Status
}

func (f *fakeStore) ScanAll(context.Context) ([]models.PriorAuthRecord, error) {
	f.scans++
	return f.records, f.scanErr
}

func (f *fakeStore) UpdateStatus(_ context.Context, id string, st models.Status) error {
	if f.updErr != nil {
		return f.updErr
	}
	if f.statuses == nil {
		f.statuses = map[string]models.Status{}
	}
	f.statuses[id] = st
	return nil
}

func rec(id string, emb ...float64) models.PriorAuthRecord {
	return models.PriorAuthRecord{FormID: id, Embedding: emb, Status: models.StatusPending}
}

var base = []float64{1, 0, 0, 0}

func TestFindDuplicateIgnoresEmptyEmbeddings(t *testing.T) {
	existing := []models.PriorAuthRecord{rec("a"), rec("b"), {FormID: "c", Embedding: []float64{}}}
	d := FindDuplicate(base, "new", existing, DefaultThreshold)
	assert.False(t, d.IsDuplicate)
	assert.Zero(t, d.ComparedCount)
	assert.NoError(t, d.Validate())
}

func TestFindDuplicateSkipsSelf(t *testing.T) {
	existing := []models.PriorAuthRecord{rec("new", base...)}
	d := FindDuplicate(base, "new", existing, DefaultThreshold)
	assert.False(t, d.IsDuplicate)
	assert.Zero(t, d.ComparedCount)
}

func TestFindDuplicateThresholdIsExclusive(t *testing.T) {
	atThreshold := rec("edge", 9, 3, 3, 1) // cosine exactly 0.9
	d := FindDuplicate(base, "new", []models.PriorAuthRecord{atThreshold}, 0.9)
	assert.False(t, d.IsDuplicate)
	assert.Equal(t, 1, d.ComparedCount)
	assert.Equal(t, 0.9, d.Similarity)

	above := rec("close", 1, 0.1, 0, 0) // ~0.995
	d = FindDuplicate(base, "new", []models.PriorAuthRecord{atThreshold, above}, 0.9)
	assert.True(t, d.IsDuplicate)
	assert.Equal(t, "close", d.DuplicateOf)
	assert.Greater(t, d.Similarity, 0.9)
	assert.NoError(t, d.Validate())
}

func TestFindDuplicateFirstMatchWins(t *testing.T) {
	existing := []models.PriorAuthRecord{
		rec("far", 0, 1, 0, 0),
		rec("good", 1, 0.2, 0, 0),   // ~0.98
		rec("perfect", 1, 0, 0, 0), // 1.0, never reached
	}
	d := FindDuplicate(base, "new", existing, DefaultThreshold)
	assert.True(t, d.IsDuplicate)
	assert.Equal(t, "good", d.DuplicateOf)
	assert.Equal(t, 2, d.ComparedCount)
}

func TestFindDuplicateZeroVectorNeverMatches(t *testing.T) {
	d := FindDuplicate([]float64{0, 0, 0, 0}, "new", []models.PriorAuthRecord{rec("a", 0, 0, 0, 0), rec("b", base...)}, DefaultThreshold)
	assert.False(t, d.IsDuplicate)
	assert.Equal(t, 2, d.ComparedCount)
}

func TestDecisionValidate(t *testing.T) {
	assert.Error(t, Decision{IsDuplicate: true}.Validate())
	assert.Error(t, Decision{DuplicateOf: "x"}.Validate())
	assert.Error(t, Decision{Similarity: 1.5}.Validate())
	assert.Error(t, Decision{ComparedCount: -1}.Validate())
	assert.NoError(t, Decision{IsDuplicate: true, DuplicateOf: "x", Similarity: 0.95, ComparedCount: 3}.Validate())
}

func TestConfig(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Threshold: 0}.Validate())
	assert.Error(t, Config{Threshold: 1.1}.Validate())

	t.Setenv("DEDUP_SIMILARITY_THRESHOLD", "0.8")
	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.InDelta(t, 0.8, cfg.Threshold, 1e-12)

	t.Setenv("DEDUP_SIMILARITY_THRESHOLD", "x")
	_, err = ConfigFromEnv()
	assert.Error(t, err)
}

func TestNewDetectorValidates(t *testing.T) {
	_, err := NewDetector(nil, DefaultConfig(), nil)
	assert.Error(t, err)
	_, err = NewDetector(&fakeStore{}, Config{Threshold: 2}, nil)
	assert.Error(t, err)
}

func TestApplyFlagsDuplicate(t *testing.T) {
	store := &fakeStore{records: []models.PriorAuthRecord{rec("old", 1, 0.05, 0, 0), rec("new", base...)}}
	det, err := NewDetector(store, DefaultConfig(), nil)
	require.NoError(t, err)

	d, err := det.Apply(context.Background(), rec("new", base...))
	require.NoError(t, err)
	assert.True(t, d.IsDuplicate)
	assert.Equal(t, "old", d.DuplicateOf)
	assert.Equal(t, models.StatusDuplicate, store.statuses["new"])
	assert.NotContains(t, store.statuses, "old")
}

func TestApplyLeavesUniqueUntouched(t *testing.T) {
	store := &fakeStore{records: []models.PriorAuthRecord{rec("old", 0, 1, 0, 0)}}
	det, err := NewDetector(store, DefaultConfig(), nil)
	require.NoError(t, err)

	d, err := det.Apply(context.Background(), rec("new", base...))
	require.NoError(t, err)
	assert.False(t, d.IsDuplicate)
	assert.Empty(t, store.statuses)
}

func TestApplyWithoutEmbeddingSkipsScan(t *testing.T) {
	store := &fakeStore{records: []models.PriorAuthRecord{rec("old", base...)}}
	det, err := NewDetector(store, DefaultConfig(), nil)
	require.NoError(t, err)

	d, err := det.Apply(context.Background(), rec("new"))
	require.NoError(t, err)
	assert.False(t, d.IsDuplicate)
	assert.Zero(t, store.scans)
}

func TestApplyErrors(t *testing.T) {
	store := &fakeStore{scanErr: errors.New("ProvisionedThroughputExceeded")}
	det, err := NewDetector(store, DefaultConfig(), nil)
	require.NoError(t, err)
	_, err = det.Apply(context.Background(), rec("new", base...))
	assert.Error(t, err)

	store = &fakeStore{records: []models.PriorAuthRecord{rec("old", base...)}, updErr: errors.New("denied")}
	det, err = NewDetector(store, DefaultConfig(), nil)
	require.NoError(t, err)
	d, err := det.Apply(context.Background(), rec("new", base...))
	assert.Error(t, err)
	assert.True(t, d.IsDuplicate)
}
