package file_test

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxelio/cellio"
	"github.com/voxelio/cellio/file"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "planes.raw")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestOpenAndRead(t *testing.T) {
	t.Parallel()

	data := []byte("local file source contents")
	path := writeTemp(t, data)

	s, err := file.Open("file://" + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	assert.Equal(t, int64(len(data)), s.Length())

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestSeekAndRewind(t *testing.T) {
	t.Parallel()

	data := []byte("0123456789abcdef")
	path := writeTemp(t, data)

	s, err := cellio.NewStream(file.NewSource(path))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	buf := make([]byte, 10)
	_, err = io.ReadFull(s, buf)
	require.NoError(t, err)

	require.NoError(t, s.Seek(4))
	_, err = io.ReadFull(s, buf[:6])
	require.NoError(t, err)
	assert.Equal(t, []byte("456789"), buf[:6])
}

func TestMissingFile(t *testing.T) {
	t.Parallel()

	_, err := file.Open("file://" + filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
	assert.ErrorIs(t, err, cellio.ErrTransport)
}

func TestSupports(t *testing.T) {
	t.Parallel()

	assert.True(t, file.Supports("file:///data/planes.raw"))
	assert.True(t, file.Supports("file:relative/path"))
	assert.False(t, file.Supports("http://example.com/planes.raw"))
}

func TestRegisteredScheme(t *testing.T) {
	t.Parallel()

	data := []byte("registry file dispatch")
	path := writeTemp(t, data)

	s, err := cellio.Open("file://" + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := io.ReadAll(s)
	require.NoError(t, err)
	assert.Equal(t, data, got)
}
