package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSNS struct {
	in  *sns.PublishInput
	err error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.in = in
	return &sns.PublishOutput{}, f.err
}

type fakeSQS struct {
	in *sqs.SendMessageInput
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.in = in
	return &sqs.SendMessageOutput{}, nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func TestMissingFieldsMessage(t *testing.T) {
	msg := MissingFieldsMessage(models.PriorAuthRecord{
		FormID:          "f-1",
		S3Key:           "uploads/a.pdf",
		MissingFields:   []string{"npi", "diagnosis"},
		SuggestedAction: "Call provider",
	})
	assert.Contains(t, msg, "f-1")
	assert.Contains(t, msg, "uploads/a.pdf")
	assert.Contains(t, msg, "- npi\n")
	assert.Contains(t, msg, "- diagnosis\n")
	assert.Contains(t, msg, "Call provider")
}

func TestSNSPublish(t *testing.T) {
	f := &fakeSNS{}
	p := &SNS{API: f, TopicARN: "arn:aws:sns:us-east-1:1:alerts"}
	require.NoError(t, p.Publish(context.Background(), strings.Repeat("s", 150), "body"))
	assert.Equal(t, "arn:aws:sns:us-east-1:1:alerts", *f.in.TopicArn)
	assert.Len(t, *f.in.Subject, 100)
	assert.Equal(t, "body", *f.in.Message)

	f.err = errors.New("throttled")
	assert.ErrorContains(t, p.Publish(context.Background(), "s", "m"), "throttled")
}

func TestSQSPublish(t *testing.T) {
	f := &fakeSQS{}
	p := &SQS{API: f, QueueURL: "https://sqs/queue"}
	require.NoError(t, p.Publish(context.Background(), MissingFieldsSubject, "missing npi"))

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(*f.in.MessageBody), &env))
	assert.Equal(t, MissingFieldsSubject, env.Subject)
	assert.Equal(t, "missing npi", env.Message)
	assert.NotEmpty(t, env.SentAt)
	assert.Equal(t, "https://sqs/queue", *f.in.QueueUrl)
}

func TestKafkaPublish(t *testing.T) {
	w := &fakeWriter{}
	p := &Kafka{W: w}
	require.NoError(t, p.Publish(context.Background(), "subj", "missing npi"))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("subj"), w.msgs[0].Key)
	assert.Contains(t, string(w.msgs[0].Value), "missing npi")

	w.err = errors.New("no brokers")
	assert.Error(t, p.Publish(context.Background(), "subj", "m"))
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"kafka:9092"}, "prior-auth-alerts")
	assert.Equal(t, "prior-auth-alerts", w.Topic)
	assert.Equal(t, "kafka:9092", w.Addr.String())
}
