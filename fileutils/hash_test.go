package fileutils_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stupid-simple/assets/fileutils"
)

var data = []byte("hello world")

func TestComputeHash(t *testing.T) {
	hash, err := fileutils.ComputeHash(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, uint64(0x45ab6734b21e6968), hash)
}

func TestComputeFileHash(t *testing.T) {
	testPath := filepath.Join(t.TempDir(), "hello.txt")
	require.NoError(t, os.WriteFile(testPath, data, 0600))

	hash, err := fileutils.ComputeFileHash(testPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x45ab6734b21e6968), hash)
}

func TestComputeFileHash_Missing(t *testing.T) {
	_, err := fileutils.ComputeFileHash(filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
