package ingress

import (
	"net/url"
)

// Event is an object-created notification in the S3 event shape.
type Event struct {
	Records []EventRecord `json:"Records"`
}

type EventRecord struct {
	EventName string   `json:"eventName,omitempty"`
	EventTime string   `json:"eventTime,omitempty"`
	S3        S3Entity `json:"s3"`
}

type S3Entity struct {
	Bucket S3Bucket `json:"bucket"`
	Object S3Object `json:"object"`
}

type S3Bucket struct {
	Name string `json:"name"`
}

type S3Object struct {
	Key  string `json:"key"`
	Size int64  `json:"size,omitempty"`
	ETag string `json:"eTag,omitempty"`
}

// NewEvent builds a single-record event for bucket and key.
func NewEvent(bucket, key string) Event {
	return Event{Records: []EventRecord{{
		EventName: "ObjectCreated:Put",
		S3:        S3Entity{Bucket: S3Bucket{Name: bucket}, Object: S3Object{Key: url.QueryEscape(key)}},
	}}}
}

// Target returns the bucket and decoded key of the first record. Further records
// are ignored.
func (e Event) Target() (bucket, key string, err error) {
	if len(e.Records) == 0 {
		return "", "", &DataShapeError{Reason: "event has no records"}
	}

	rec := e.Records[0]
	if rec.S3.Bucket.Name == "" {
		return "", "", &DataShapeError{Reason: "event record has no bucket name"}
	}
	if rec.S3.Object.Key == "" {
		return "", "", &DataShapeError{Reason: "event record has no object key"}
	}

	key = rec.S3.Object.Key
	if decoded, err := url.QueryUnescape(key); err == nil {
		key = decoded
	}
	return rec.S3.Bucket.Name, key, nil
}
