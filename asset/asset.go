package asset

import (
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// Asset is a resolved payload served for a logical request path.
type Asset interface {
	zerolog.LogObjectMarshaler
	Content() []byte         // current payload
	ETag() string            // quoted fingerprint of Content
	LastModified() time.Time // truncated to whole seconds
	Snapshot() Snapshot      // the three values above, captured together
	Weight() int64           // length of the payload in bytes
}

// Snapshot is one generation of an asset. It is never mutated once published.
type Snapshot struct {
	Content      []byte
	Fingerprint  string
	LastModified time.Time
}

// ETag returns the fingerprint as a strong HTTP validator.
func (s Snapshot) ETag() string {
	return QuoteETag(s.Fingerprint)
}

func (s Snapshot) MarshalZerologObject(e *zerolog.Event) {
	e.Str("fingerprint", s.Fingerprint)
	e.Int("size", len(s.Content))
	e.Time("last_modified", s.LastModified)
}

var ErrMaxSizeExceeded = errors.New("maximum asset size exceeded")

// LoadError reports a failure to read an asset for the first time.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return "could not load asset " + e.Path + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// truncate drops sub-second precision, HTTP dates carry whole seconds only.
func truncate(t time.Time) time.Time {
	return t.Truncate(time.Second)
}
