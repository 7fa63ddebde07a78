package bundle

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stupid-simple/assets/asset"
	"github.com/stupid-simple/assets/fileutils"
)

var ErrEmptyBundle = errors.New("no files to bundle")

// Entry is a file written into a bundle.
type Entry struct {
	Name    string
	Size    int64
	Hash    uint64
	ModTime time.Time
}

func (e Entry) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("name", e.Name)
	ev.Int64("size", e.Size)
	ev.Uint64("hash", e.Hash)
	ev.Time("mod_time", e.ModTime)
}

type Summary struct {
	Path    string
	Entries []Entry
	Bytes   int64
	Skipped int
}

type WriteOption func(o *writeOptions)

type writeOptions struct {
	prefix       string
	dryRun       bool
	maxFileBytes int64
}

// WithPrefix stores every file below prefix inside the bundle.
func WithPrefix(prefix string) WriteOption {
	return func(o *writeOptions) {
		o.prefix = strings.Trim(prefix, "/")
	}
}

func WithDryRun(dryRun bool) WriteOption {
	return func(o *writeOptions) {
		o.dryRun = dryRun
	}
}

// WithMaxFileBytes skips files larger than maxFileBytes (uncompressed).
func WithMaxFileBytes(maxFileBytes int64) WriteOption {
	return func(o *writeOptions) {
		o.maxFileBytes = maxFileBytes
	}
}

// Write stores files into a new zip bundle at destPath. destPath must not
// exist. The bundle is removed again when writing fails or ctx is done.
func Write(ctx context.Context, destPath string, files iter.Seq[SourceFile], logger zerolog.Logger, opts ...WriteOption) (Summary, error) {
	o := writeOptions{}
	for _, applyOpt := range opts {
		applyOpt(&o)
	}

	logger = logger.With().Str("dest", destPath).Logger()
	summary := Summary{Path: destPath}
	zf := newZipFile(destPath, o.dryRun)

	for file := range files {
		if err := ctx.Err(); err != nil {
			return summary, errors.Join(err, zf.Discard())
		}
		if skipReason := o.skip(file); skipReason != "" {
			logger.Warn().Object("file", file).Str("reason", skipReason).Msg("file will not be bundled")
			summary.Skipped++
			continue
		}

		entry, err := writeFile(zf, o.prefix, file)
		if err != nil {
			return summary, errors.Join(fmt.Errorf("could not bundle %s: %w", file.Path, err), zf.Discard())
		}
		logger.Debug().Object("entry", entry).Msg("bundled file")
		summary.Entries = append(summary.Entries, entry)
		summary.Bytes += entry.Size
	}

	if len(summary.Entries) == 0 {
		return summary, ErrEmptyBundle
	}
	if err := zf.Close(); err != nil {
		return summary, errors.Join(err, zf.Discard())
	}
	logger.Info().
		Int("files_count", len(summary.Entries)).
		Int64("files_size", summary.Bytes).
		Int("skipped", summary.Skipped).
		Bool("dry_run", o.dryRun).
		Msg("bundle written")
	return summary, nil
}

func (o writeOptions) skip(file SourceFile) string {
	if err := asset.CheckSize(file.Size); err != nil {
		return err.Error()
	}
	if o.maxFileBytes > 0 && file.Size > o.maxFileBytes {
		return fmt.Sprintf("larger than %d bytes", o.maxFileBytes)
	}
	return ""
}

func writeFile(zf *zipFile, prefix string, file SourceFile) (entry Entry, err error) {
	reader, err := os.Open(file.Path)
	if err != nil {
		return Entry{}, err
	}
	defer func() {
		err = errors.Join(err, reader.Close())
	}()

	header := &zip.FileHeader{
		Name:     path.Join(prefix, file.Name),
		Modified: file.ModTime,
		Method:   zip.Deflate,
	}
	w, err := zf.CreateHeader(header)
	if err != nil {
		return Entry{}, err
	}

	// Write to the bundle and hash in one pass.
	counter := &countingWriter{w: w}
	hash, err := fileutils.ComputeHash(io.TeeReader(reader, counter))
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Name:    header.Name,
		Size:    counter.n,
		Hash:    hash,
		ModTime: file.ModTime,
	}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
