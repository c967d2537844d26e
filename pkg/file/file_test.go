package file

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateThenDelete(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"empty.txt", "nested name.bin", "smallString.txt"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, Create(path))
			assert.True(t, Exists(path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Zero(t, info.Size())

			require.NoError(t, Delete(path))
			assert.False(t, Exists(path))
		})
	}
}

func TestCreateTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lob.txt")
	require.NoError(t, Write(path, "previous content"))
	require.NoError(t, Create(path))

	b, err := Read(path)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestCreateInMissingDirFails(t *testing.T) {
	err := Create(filepath.Join(t.TempDir(), "missing", "x.txt"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()

	t.Run("string content is utf-8 encoded", func(t *testing.T) {
		path := filepath.Join(dir, "clob.txt")
		content := "abc 中文 ÄÖÜ"
		require.NoError(t, Write(path, content))
		b, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, []byte(content), b)
	})

	t.Run("buffer content", func(t *testing.T) {
		path := filepath.Join(dir, "blob.bin")
		content := []byte{0x00, 0xff, 0x10, 0x7f}
		require.NoError(t, Write(path, content))
		b, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, content, b)
	})

	t.Run("stream content", func(t *testing.T) {
		path := filepath.Join(dir, "stream.txt")
		payload := strings.Repeat("x", 70000)
		n, err := WriteFrom(path, strings.NewReader(payload))
		require.NoError(t, err)
		assert.Equal(t, int64(70000), n)
		b, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, payload, string(b))
	})
}

func TestDeleteMissingFile(t *testing.T) {
	require.NoError(t, Delete(filepath.Join(t.TempDir(), "never-created.txt")))
}

func TestDeleteNonEmptyDirFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Create(filepath.Join(dir, "child")))
	require.Error(t, Delete(dir))
}

func TestCreateFileInKB(t *testing.T) {
	dir := t.TempDir()
	sizes := []int{64 * 1024, 64*1024 + 1, 1024*1024 + 1}
	for _, size := range sizes {
		path := filepath.Join(dir, "smallString.txt")
		require.NoError(t, CreateFileInKB(path, size, "127.1.1"))

		b, err := Read(path)
		require.NoError(t, err)
		assert.Len(t, b, size)
		assert.True(t, bytes.HasPrefix(b, []byte("127.1.1")))
		assert.True(t, bytes.HasSuffix(b, []byte("127.1.1")))
		require.NoError(t, Delete(path))
	}

	_, err := SizedContent(3, "marker")
	require.Error(t, err)
}
