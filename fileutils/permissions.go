package fileutils

import (
	"errors"
	"os"
)

// VerifyWritable returns nil if dirPath is a directory the process can create files in.
func VerifyWritable(dirPath string) error {
	fil, err := os.CreateTemp(dirPath, ".probe-")
	if err != nil {
		return err
	}
	return errors.Join(fil.Close(), os.Remove(fil.Name()))
}
