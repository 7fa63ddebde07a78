package fileutils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupid-simple/assets/fileutils"
)

func TestStatHelpers(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "hello.txt")
	require.NoError(t, os.WriteFile(filePath, data, 0600))
	missing := filepath.Join(dir, "non-existent-file.txt")

	tests := []struct {
		name      string
		path      string
		exists    bool
		isDir     bool
		isRegular bool
	}{
		{name: "existing file", path: filePath, exists: true, isRegular: true},
		{name: "directory", path: dir, exists: true, isDir: true},
		{name: "non-existent file", path: missing},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.exists, fileutils.Exists(tc.path))
			assert.Equal(t, tc.isDir, fileutils.IsDir(tc.path))
			assert.Equal(t, tc.isRegular, fileutils.IsRegular(tc.path))
		})
	}
}
