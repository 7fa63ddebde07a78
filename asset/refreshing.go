package asset

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// NewRefreshing returns an asset backed by the file at path. The file is
// read once before returning; later accessors re-read it whenever its
// modification time or size changes on disk.
//
// A failed re-read keeps the last good snapshot, the asset keeps serving
// it and the failure is only logged.
func NewRefreshing(path string, logger zerolog.Logger) (Asset, error) {
	a := &refreshingAsset{
		path:   path,
		logger: logger.With().Str("path", path).Logger(),
	}
	a.errLogger = a.logger.Sample(&zerolog.BurstSampler{
		Burst:  1,
		Period: 10 * time.Second,
	})

	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if err := a.refresh(info); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return a, nil
}

type refreshingAsset struct {
	path      string
	mu        sync.Mutex
	current   atomic.Pointer[fileSnapshot]
	logger    zerolog.Logger
	errLogger zerolog.Logger
}

type fileSnapshot struct {
	Snapshot
	sourceMTime time.Time
	sourceSize  int64
}

func (f *fileSnapshot) matches(info os.FileInfo) bool {
	return f.sourceMTime.Equal(info.ModTime()) && f.sourceSize == info.Size()
}

// Content implements Asset.
func (a *refreshingAsset) Content() []byte {
	return a.Snapshot().Content
}

// ETag implements Asset.
func (a *refreshingAsset) ETag() string {
	return a.Snapshot().ETag()
}

// LastModified implements Asset.
func (a *refreshingAsset) LastModified() time.Time {
	return a.Snapshot().LastModified
}

// Snapshot implements Asset.
func (a *refreshingAsset) Snapshot() Snapshot {
	a.maybeRefresh()
	return a.current.Load().Snapshot
}

// Weight implements Asset.
func (a *refreshingAsset) Weight() int64 {
	return int64(len(a.current.Load().Content))
}

// MarshalZerologObject implements Asset.
func (a *refreshingAsset) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", a.path)
	e.Str("kind", "file")
	a.current.Load().MarshalZerologObject(e)
}

func (a *refreshingAsset) maybeRefresh() {
	info, err := os.Stat(a.path)
	if err != nil {
		a.errLogger.Warn().Err(err).Msg("could not stat asset file, serving previous content")
		return
	}
	if a.current.Load().matches(info) {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Another reader may have refreshed while we waited.
	if a.current.Load().matches(info) {
		return
	}
	if err := a.refresh(info); err != nil {
		a.errLogger.Warn().Err(err).Msg("could not refresh asset file, serving previous content")
	}
}

// refresh reads the file and publishes a new snapshot. The previous
// snapshot stays in place on error.
func (a *refreshingAsset) refresh(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", a.path)
	}
	if err := CheckSize(info.Size()); err != nil {
		return err
	}
	content, err := os.ReadFile(a.path)
	if err != nil {
		return err
	}

	// The stat taken before reading is recorded, so a write racing with
	// the read shows up as a change on the next access.
	next := &fileSnapshot{
		Snapshot: Snapshot{
			Content:      content,
			Fingerprint:  Fingerprint(content),
			LastModified: truncate(info.ModTime()),
		},
		sourceMTime: info.ModTime(),
		sourceSize:  info.Size(),
	}
	a.current.Store(next)
	a.logger.Debug().Object("asset", next.Snapshot).Msg("asset file loaded")
	return nil
}
