// Package notify publishes reviewer alerts for forms that need attention.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kylejryan/healthcopilot/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/segmentio/kafka-go"
)

// Publisher delivers one alert.
type Publisher interface {
	Publish(ctx context.Context, subject, message string) error
}

// SNS subjects are capped at 100 characters.
const maxSubject = 100

// MissingFieldsSubject is the subject used for missing-field alerts.
const MissingFieldsSubject = "Prior authorization form missing required fields"

// MissingFieldsMessage describes rec's missing fields for a reviewer.
func MissingFieldsMessage(rec models.PriorAuthRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Form %s (%s) is missing required fields:\n", rec.FormID, rec.S3Key)
	for _, f := range rec.MissingFields {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	fmt.Fprintf(&b, "Suggested action: %s\n", rec.SuggestedAction)
	return b.String()
}

// SNSAPI is the subset of the SNS client used here.
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNS publishes to a topic.
type SNS struct {
	API      SNSAPI
	TopicARN string
}

func (p *SNS) Publish(ctx context.Context, subject, message string) error {
	if len(subject) > maxSubject {
		subject = subject[:maxSubject]
	}
	_, err := p.API.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.TopicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("sns publish %s: %w", p.TopicARN, err)
	}
	return nil
}

// SQSAPI is the subset of the SQS client used here.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Envelope is the JSON body written to queue and stream backends.
type Envelope struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	SentAt  string `json:"sent_at"`
}

func envelope(subject, message string) ([]byte, error) {
	return json.Marshal(Envelope{Subject: subject, Message: message, SentAt: time.Now().UTC().Format(time.RFC3339)})
}

// SQS sends alerts to a queue.
type SQS struct {
	API      SQSAPI
	QueueURL string
}

func (p *SQS) Publish(ctx context.Context, subject, message string) error {
	body, err := envelope(subject, message)
	if err != nil {
		return err
	}
	_, err = p.API.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(p.QueueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("sqs send %s: %w", p.QueueURL, err)
	}
	return nil
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Kafka writes alerts to a topic.
type Kafka struct {
	W MessageWriter
}

// NewKafkaWriter returns a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

func (p *Kafka) Publish(ctx context.Context, subject, message string) error {
	body, err := envelope(subject, message)
	if err != nil {
		return err
	}
	if err := p.W.WriteMessages(ctx, kafka.Message{Key: []byte(subject), Value: body}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}
