package pipeline

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"
)

// ErrMalformedEvent is returned when a trigger event carries no usable object location.
var ErrMalformedEvent = errors.New("malformed upload event")

// Object locates one uploaded document.
type Object struct {
	Bucket string
	Key    string
}

func (o Object) String() string { return "s3://" + o.Bucket + "/" + o.Key }

// ParseEvent returns the object named by the first record of an upload event.
// Any further records are ignored; object keys arrive URL-encoded.
func ParseEvent(ev events.S3Event) (Object, error) {
	if len(ev.Records) == 0 {
		return Object{}, fmt.Errorf("%w: no records", ErrMalformedEvent)
	}
	s3 := ev.Records[0].S3
	bucket := strings.TrimSpace(s3.Bucket.Name)
	if bucket == "" {
		return Object{}, fmt.Errorf("%w: missing bucket name", ErrMalformedEvent)
	}
	key, err := url.QueryUnescape(s3.Object.Key)
	if err != nil {
		return Object{}, fmt.Errorf("%w: key %q: %v", ErrMalformedEvent, s3.Object.Key, err)
	}
	if strings.TrimSpace(key) == "" {
		return Object{}, fmt.Errorf("%w: missing object key", ErrMalformedEvent)
	}
	return Object{Bucket: bucket, Key: key}, nil
}
