package asset

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const fourGiB = 2 << 31

// CheckSize rejects payloads that are too large to be held in memory.
func CheckSize(size int64) error {
	if size > fourGiB {
		return fmt.Errorf("%w: current size %d, maximum %d", ErrMaxSizeExceeded, size, int64(fourGiB))
	}
	return nil
}

// NewStatic returns an asset that never changes.
// A zero or pre-epoch modTime is replaced with the current time.
func NewStatic(path string, content []byte, modTime time.Time) Asset {
	if modTime.Unix() < 1 {
		modTime = time.Now()
	}
	return &staticAsset{
		path: path,
		snap: Snapshot{
			Content:      content,
			Fingerprint:  Fingerprint(content),
			LastModified: truncate(modTime),
		},
	}
}

type staticAsset struct {
	path string
	snap Snapshot
}

// Content implements Asset.
func (a *staticAsset) Content() []byte {
	return a.snap.Content
}

// ETag implements Asset.
func (a *staticAsset) ETag() string {
	return a.snap.ETag()
}

// LastModified implements Asset.
func (a *staticAsset) LastModified() time.Time {
	return a.snap.LastModified
}

// Snapshot implements Asset.
func (a *staticAsset) Snapshot() Snapshot {
	return a.snap
}

// Weight implements Asset.
func (a *staticAsset) Weight() int64 {
	return int64(len(a.snap.Content))
}

// MarshalZerologObject implements Asset.
func (a *staticAsset) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", a.path)
	e.Str("kind", "static")
	a.snap.MarshalZerologObject(e)
}
