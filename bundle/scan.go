package bundle

import (
	"context"
	"io/fs"
	"iter"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// SourceFile is a regular file found below the scanned directory.
type SourceFile struct {
	Path    string // path on disk
	Name    string // slash separated, relative to the scanned directory
	Size    int64
	ModTime time.Time
}

func (f SourceFile) MarshalZerologObject(e *zerolog.Event) {
	e.Str("path", f.Path)
	e.Str("name", f.Name)
	e.Int64("size", f.Size)
	e.Time("mod_time", f.ModTime)
}

// ScanDirectory lists the regular files below dirPath. Entries that cannot
// be read are logged and skipped.
func ScanDirectory(ctx context.Context, dirPath string, logger zerolog.Logger) iter.Seq[SourceFile] {
	return func(yield func(SourceFile) bool) {
		var found int
		var skipped int

		logger = logger.With().Str("dir", dirPath).Logger()
		logger.Info().Msg("start scanning for bundle files")
		defer func() {
			logger.Info().
				Int("found", found).
				Int("skipped", skipped).
				Msg("done scanning bundle files")
		}()

		throttledLogger := logger.Sample(&zerolog.BurstSampler{
			Burst:  1,
			Period: 1 * time.Second,
		})
		err := filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return filepath.SkipAll
			}
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("could not scan path")
				skipped++
				return nil
			}
			if d.IsDir() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("could not stat path")
				skipped++
				return nil
			}
			if !info.Mode().IsRegular() {
				return nil
			}
			rel, err := filepath.Rel(dirPath, path)
			if err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("could not relate path to directory")
				skipped++
				return nil
			}

			file := SourceFile{
				Path:    path,
				Name:    filepath.ToSlash(rel),
				Size:    info.Size(),
				ModTime: info.ModTime(),
			}
			if !yield(file) {
				return filepath.SkipAll
			}
			found++
			logger.Debug().Object("file", file).Msg("scanned file")
			throttledLogger.Info().Int("found", found).Msg("scanning bundle files")
			return nil
		})
		if err != nil {
			logger.Error().Err(err).Msg("could not scan directory")
		}
	}
}
