package fileutils

import (
	"context"
	"os"
	"time"
)

type fileState struct {
	modTime time.Time
	size    int64
	hash    uint64
}

func statFile(path string, prev *fileState) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	// Only hash again when the metadata moved.
	if prev != nil && prev.modTime.Equal(info.ModTime()) && prev.size == info.Size() {
		return *prev, nil
	}
	hash, err := ComputeFileHash(path)
	if err != nil {
		return fileState{}, err
	}
	return fileState{modTime: info.ModTime(), size: info.Size(), hash: hash}, nil
}

// WatchFile checks the file at path on every tick and emits an event when
// its content changed. The channel is closed when ctx is done or ticker is
// closed.
func WatchFile(ctx context.Context, path string, ticker <-chan struct{}, onErr func(err error)) (<-chan struct{}, error) {
	ch := make(chan struct{})

	last, err := statFile(path, nil)
	if err != nil {
		return nil, err
	}

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ticker:
				if !ok {
					return
				}
				next, err := statFile(path, &last)
				if err != nil {
					onErr(err)
					continue
				}
				changed := next.hash != last.hash
				last = next
				if !changed {
					continue
				}
				select {
				case ch <- struct{}{}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
