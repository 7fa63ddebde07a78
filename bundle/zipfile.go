package bundle

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/stupid-simple/assets/fileutils"
)

// zipFile opens its destination on the first entry, so an empty bundle
// leaves nothing behind.
type zipFile struct {
	path     string
	dryRun   bool
	file     *os.File
	writer   *zip.Writer
	isOpened bool
}

func newZipFile(path string, dryRun bool) *zipFile {
	return &zipFile{path: path, dryRun: dryRun}
}

func (z *zipFile) open() error {
	var err error
	if z.dryRun {
		z.file, err = os.OpenFile(os.DevNull, os.O_WRONLY, 0600)
	} else {
		z.file, err = createExclusive(z.path)
	}
	if err != nil {
		return err
	}
	z.writer = zip.NewWriter(z.file)
	z.isOpened = true
	return nil
}

func (z *zipFile) CreateHeader(fh *zip.FileHeader) (io.Writer, error) {
	if !z.isOpened {
		if err := z.open(); err != nil {
			return nil, err
		}
	}
	return z.writer.CreateHeader(fh)
}

// Close flushes the central directory. It is a no-op for an unopened file.
func (z *zipFile) Close() error {
	if !z.isOpened {
		return nil
	}
	z.isOpened = false
	return errors.Join(z.writer.Close(), z.file.Close())
}

// Discard closes and removes a partially written bundle.
func (z *zipFile) Discard() error {
	wasOpened := z.isOpened
	err := z.Close()
	if wasOpened && !z.dryRun {
		err = errors.Join(err, os.Remove(z.path))
	}
	return err
}

func createExclusive(path string) (*os.File, error) {
	if fileutils.Exists(path) {
		return nil, fmt.Errorf("file or directory already exists with this name: %s", path)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
}
