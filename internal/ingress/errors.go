package ingress

import "fmt"

// FetchError is returned when the triggering object cannot be read as text.
type FetchError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError is a payload that looks like JSON but is not. The handler turns it
// into an error envelope instead of failing.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// DataShapeError is an event or payload the handler cannot interpret at all.
type DataShapeError struct {
	Reason string
}

func (e *DataShapeError) Error() string {
	return "unexpected data shape: " + e.Reason
}
