// Package bundle reads and writes resource sets: the read-only trees
// assets are served from. A bundle is a zip file or a plain directory.
package bundle

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
)

type Bundle struct {
	fs.FS
	path   string
	kind   string
	closer io.Closer
}

// Open opens the zip file or directory at path as a resource set.
func Open(path string) (*Bundle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("could not open bundle: %w", err)
	}
	if info.IsDir() {
		return &Bundle{FS: os.DirFS(path), path: path, kind: "dir"}, nil
	}

	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("could not open bundle %s: %w", path, err)
	}
	return &Bundle{FS: r, path: path, kind: "zip", closer: r}, nil
}

// FromFS wraps an already open file system, e.g. an embed.FS.
func FromFS(name string, fsys fs.FS) *Bundle {
	return &Bundle{FS: fsys, path: name, kind: "fs"}
}

func (b *Bundle) Path() string {
	return b.path
}

func (b *Bundle) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func (b *Bundle) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", b.path)
	e.Str("kind", b.kind)
}
