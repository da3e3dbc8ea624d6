package objectstore

import (
	"fmt"
	"path"
	"strings"
)

// Schemes understood by ParseURI.
const (
	SchemeGCS    = "gs"
	SchemeS3     = "s3"
	SchemeMemory = "mem"
)

// URI addresses an object or a path prefix, e.g. "gs://bucket/output/year=2024".
type URI struct {
	Scheme string
	Bucket string
	Key    string
}

// ParseURI parses "<scheme>://<bucket>/<key>". The key may be empty.
func ParseURI(raw string) (URI, error) {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return URI{}, fmt.Errorf("invalid object URI %q: missing scheme", raw)
	}
	switch scheme {
	case SchemeGCS, SchemeS3, SchemeMemory:
	default:
		return URI{}, fmt.Errorf("invalid object URI %q: unsupported scheme %q", raw, scheme)
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return URI{}, fmt.Errorf("invalid object URI %q: missing bucket", raw)
	}

	return URI{Scheme: scheme, Bucket: bucket, Key: key}, nil
}

// String renders the URI in "<scheme>://<bucket>/<key>" form.
func (u URI) String() string {
	return fmt.Sprintf("%s://%s/%s", u.Scheme, u.Bucket, u.Key)
}

// Join appends path elements to the key. A trailing slash on the key is not doubled.
func (u URI) Join(elem ...string) URI {
	parts := make([]string, 0, len(elem)+1)
	if k := strings.TrimSuffix(u.Key, "/"); k != "" {
		parts = append(parts, k)
	}
	parts = append(parts, elem...)
	u.Key = path.Join(parts...)
	return u
}

// Dir returns the URI with a trailing slash, marking it as a directory prefix.
func (u URI) Dir() URI {
	if u.Key != "" && !strings.HasSuffix(u.Key, "/") {
		u.Key += "/"
	}
	return u
}

// Base returns the last element of the key.
// e.g., "gs://bucket/folder/file.json" → "file.json"
func (u URI) Base() string {
	return BaseName(u.Key)
}

// BaseName returns the part of key after its last slash. A key ending in a
// slash has an empty base name.
func BaseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 {
		return key[i+1:]
	}
	return key
}
