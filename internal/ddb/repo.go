// Package ddb provides the DynamoDB-backed record store for prior authorization requests.
package ddb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	// ErrRecordExists is returned by Create when the form id is already stored
	// and the repo is not in overwrite mode.
	ErrRecordExists = errors.New("record already exists")
	// ErrNotFound is returned when no record has the requested form id.
	ErrNotFound = errors.New("record not found")
)

// API is the subset of the DynamoDB client used by Repo.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Repo wraps a DynamoDB client and table name for prior authorization records.
type Repo struct {
	DB    API
	Table string

	// Overwrite makes Create an unconditional put (last write wins).
	Overwrite bool
}

// Create stores a new record. Unless Overwrite is set the put is conditional on
// the form id being absent, and a conflict yields ErrRecordExists.
func (r *Repo) Create(ctx context.Context, rec models.PriorAuthRecord) error {
	rec.Normalize()
	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", rec.FormID, err)
	}
	in := &dynamodb.PutItemInput{
		TableName: &r.Table,
		Item:      item,
	}
	if !r.Overwrite {
		in.ConditionExpression = awsStr("attribute_not_exists(form_id)")
	}
	if _, err := r.DB.PutItem(ctx, in); err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("%s: %w", rec.FormID, ErrRecordExists)
		}
		return fmt.Errorf("put %s: %w", rec.FormID, err)
	}
	return nil
}

// UpdateStatus sets only the status attribute of an existing record.
func (r *Repo) UpdateStatus(ctx context.Context, formID string, status models.Status) error {
	_, err := r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                &r.Table,
		Key:                      key(formID),
		UpdateExpression:         awsStr("SET #s = :s"),
		ConditionExpression:      awsStr("attribute_exists(form_id)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("%s: %w", formID, ErrNotFound)
		}
		return fmt.Errorf("update status %s: %w", formID, err)
	}
	return nil
}

// AppendAudit sets the record's status to entry.NewStatus and appends entry to
// its audit log in a single update. Existing entries are never rewritten.
func (r *Repo) AppendAudit(ctx context.Context, formID string, entry models.AuditEntry) error {
	av, err := attributevalue.MarshalMap(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}
	_, err = r.DB.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                &r.Table,
		Key:                      key(formID),
		UpdateExpression:         awsStr("SET #s = :s, audit_log = list_append(if_not_exists(audit_log, :empty_list), :entry)"),
		ConditionExpression:      awsStr("attribute_exists(form_id)"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s":          &types.AttributeValueMemberS{Value: string(entry.NewStatus)},
			":entry":      &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: av}}},
			":empty_list": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return fmt.Errorf("%s: %w", formID, ErrNotFound)
		}
		return fmt.Errorf("append audit %s: %w", formID, err)
	}
	return nil
}

// Get fetches one record by form id.
func (r *Repo) Get(ctx context.Context, formID string) (models.PriorAuthRecord, error) {
	var rec models.PriorAuthRecord
	out, err := r.DB.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      &r.Table,
		Key:            key(formID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return rec, fmt.Errorf("get %s: %w", formID, err)
	}
	if len(out.Item) == 0 {
		return rec, fmt.Errorf("%s: %w", formID, ErrNotFound)
	}
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return rec, fmt.Errorf("unmarshal %s: %w", formID, err)
	}
	rec.Normalize()
	return rec, nil
}

// ScanAll reads every record in the table. This is a full table scan: cost and
// latency grow linearly with the number of stored records.
func (r *Repo) ScanAll(ctx context.Context) ([]models.PriorAuthRecord, error) {
	var all []models.PriorAuthRecord
	pager := dynamodb.NewScanPaginator(r.DB, &dynamodb.ScanInput{TableName: &r.Table})
	for pager.HasMorePages() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.Table, err)
		}
		var recs []models.PriorAuthRecord
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal scan page: %w", err)
		}
		for i := range recs {
			recs[i].Normalize()
		}
		all = append(all, recs...)
	}
	return all, nil
}

func key(formID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"form_id": &types.AttributeValueMemberS{Value: formID},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// awsStr is a helper to get a pointer to a string literal.
func awsStr(s string) *string { return &s }

// NowISO returns the current time in ISO8601 format.
func NowISO() string { return time.Now().UTC().Format(time.RFC3339) }
