package ddb

import (
	"context"
	"errors"
	"testing"

	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	putErr  error
	updErr  error
	item    map[string]types.AttributeValue
	pages   []*dynamodb.ScanOutput
	scans   int
}

func (f *fakeDB) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDB) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	return &dynamodb.UpdateItemOutput{}, f.updErr
}

func (f *fakeDB) GetItem(_ context.Context, _ *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDB) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	out := f.pages[f.scans]
	f.scans++
	return out, nil
}

func strp(s string) *string { return &s }

func sampleRecord() models.PriorAuthRecord {
	return models.PriorAuthRecord{
		FormID:          "form-1",
		S3Key:           "uploads/a.pdf",
		Provider:        strp("Dr. X"),
		MissingFields:   []string{"diagnosis"},
		SuggestedAction: "Request diagnosis",
		Embedding:       []float64{0.5, 0.25},
		Status:          models.StatusPending,
		CreatedAt:       "01J0000000000000000000000",
		AuditLog: []models.AuditEntry{
			{ChangedBy: models.SystemActor, NewStatus: models.StatusPending, Timestamp: "2025-01-01T00:00:00Z", Comment: "Form uploaded and parsed"},
		},
	}
}

func TestCreateIsConditionalByDefault(t *testing.T) {
	db := &fakeDB{}
	r := &Repo{DB: db, Table: "prior_auth_requests"}

	require.NoError(t, r.Create(context.Background(), sampleRecord()))
	require.Len(t, db.puts, 1)

	in := db.puts[0]
	assert.Equal(t, "prior_auth_requests", *in.TableName)
	require.NotNil(t, in.ConditionExpression)
	assert.Equal(t, "attribute_not_exists(form_id)", *in.ConditionExpression)

	// unknown identity fields are stored as NULL, lists are always present
	assert.IsType(t, &types.AttributeValueMemberNULL{}, in.Item["npi"])
	assert.IsType(t, &types.AttributeValueMemberL{}, in.Item["missing_fields"])
	_, hasMatch := in.Item["healthlake_match"]
	assert.False(t, hasMatch)

	var back models.PriorAuthRecord
	require.NoError(t, attributevalue.UnmarshalMap(in.Item, &back))
	assert.Equal(t, sampleRecord(), back)
}

func TestCreateNormalizesEmptyLists(t *testing.T) {
	db := &fakeDB{}
	r := &Repo{DB: db, Table: "t"}
	require.NoError(t, r.Create(context.Background(), models.PriorAuthRecord{FormID: "f"}))

	item := db.puts[0].Item
	l, ok := item["missing_fields"].(*types.AttributeValueMemberL)
	require.True(t, ok)
	assert.Empty(t, l.Value)
	_, ok = item["embedding"].(*types.AttributeValueMemberL)
	assert.True(t, ok)
	s, ok := item["suggested_action"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, models.DefaultSuggestedAction, s.Value)
}

func TestCreateOverwrite(t *testing.T) {
	db := &fakeDB{}
	r := &Repo{DB: db, Table: "t", Overwrite: true}
	require.NoError(t, r.Create(context.Background(), sampleRecord()))
	assert.Nil(t, db.puts[0].ConditionExpression)
}

func TestCreateConflict(t *testing.T) {
	db := &fakeDB{putErr: &types.ConditionalCheckFailedException{Message: strp("exists")}}
	r := &Repo{DB: db, Table: "t"}
	err := r.Create(context.Background(), sampleRecord())
	assert.ErrorIs(t, err, ErrRecordExists)

	db.putErr = errors.New("throttled")
	err = r.Create(context.Background(), sampleRecord())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecordExists)
}

func TestUpdateStatusIsTargeted(t *testing.T) {
	db := &fakeDB{}
	r := &Repo{DB: db, Table: "t"}
	require.NoError(t, r.UpdateStatus(context.Background(), "form-1", models.StatusDuplicate))

	in := db.updates[0]
	assert.Equal(t, "SET #s = :s", *in.UpdateExpression)
	assert.Equal(t, "attribute_exists(form_id)", *in.ConditionExpression)
	assert.Equal(t, "status", in.ExpressionAttributeNames["#s"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "duplicate"}, in.ExpressionAttributeValues[":s"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "form-1"}, in.Key["form_id"])
	assert.Len(t, in.ExpressionAttributeValues, 1)
}

func TestUpdateStatusMissingRecord(t *testing.T) {
	db := &fakeDB{updErr: &types.ConditionalCheckFailedException{}}
	r := &Repo{DB: db, Table: "t"}
	assert.ErrorIs(t, r.UpdateStatus(context.Background(), "nope", models.StatusDuplicate), ErrNotFound)
	assert.ErrorIs(t, r.AppendAudit(context.Background(), "nope", models.AuditEntry{NewStatus: models.StatusApproved}), ErrNotFound)
}

func TestAppendAudit(t *testing.T) {
	db := &fakeDB{}
	r := &Repo{DB: db, Table: "t"}
	entry := models.AuditEntry{ChangedBy: "reviewer-1", NewStatus: models.StatusApproved, Timestamp: "2025-01-02T00:00:00Z", Comment: "ok"}
	require.NoError(t, r.AppendAudit(context.Background(), "form-1", entry))

	in := db.updates[0]
	assert.Contains(t, *in.UpdateExpression, "list_append(if_not_exists(audit_log, :empty_list), :entry)")
	assert.Equal(t, &types.AttributeValueMemberS{Value: "approved"}, in.ExpressionAttributeValues[":s"])

	l, ok := in.ExpressionAttributeValues[":entry"].(*types.AttributeValueMemberL)
	require.True(t, ok)
	require.Len(t, l.Value, 1)
	var got models.AuditEntry
	require.NoError(t, attributevalue.Unmarshal(l.Value[0], &got))
	assert.Equal(t, entry, got)
}

func TestGet(t *testing.T) {
	item, err := attributevalue.MarshalMap(sampleRecord())
	require.NoError(t, err)

	r := &Repo{DB: &fakeDB{item: item}, Table: "t"}
	rec, err := r.Get(context.Background(), "form-1")
	require.NoError(t, err)
	assert.Equal(t, "Dr. X", *rec.Provider)
	assert.Nil(t, rec.NPI)

	r = &Repo{DB: &fakeDB{}, Table: "t"}
	_, err = r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScanAllFollowsPages(t *testing.T) {
	a, err := attributevalue.MarshalMap(models.PriorAuthRecord{FormID: "a", Status: models.StatusPending})
	require.NoError(t, err)
	b, err := attributevalue.MarshalMap(models.PriorAuthRecord{FormID: "b", Status: models.StatusDuplicate})
	require.NoError(t, err)

	db := &fakeDB{pages: []*dynamodb.ScanOutput{
		{Items: []map[string]types.AttributeValue{a}, LastEvaluatedKey: key("a")},
		{Items: []map[string]types.AttributeValue{b}},
	}}
	r := &Repo{DB: db, Table: "t"}
	recs, err := r.ScanAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a", recs[0].FormID)
	assert.Equal(t, models.StatusDuplicate, recs[1].Status)
	assert.NotNil(t, recs[1].MissingFields)
	assert.Equal(t, 2, db.scans)
}
