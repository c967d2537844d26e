// Package file manages the temporary files used as LOB sources and sinks.
//
// Every write is synchronous: the file is flushed and closed before the call
// returns, so a dependent streaming step can start right away.
package file

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"

	"github.com/datazip-inc/oratest/constants"
	"github.com/datazip-inc/oratest/utils/logger"
)

const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Create creates an empty file at path, truncating it if it exists.
func Create(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.DefaultFileMode)
	if err != nil {
		return fmt.Errorf("failed to create file[%s]: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close file[%s]: %w", path, err)
	}
	return nil
}

// Write replaces the file content with content and syncs it to disk.
func Write[T ~string | ~[]byte](path string, content T) error {
	return withFile(path, func(f *os.File) error {
		_, err := f.Write([]byte(content))
		return err
	})
}

// WriteFrom copies r into the file at path and returns the number of bytes written.
func WriteFrom(path string, r io.Reader) (int64, error) {
	var n int64
	err := withFile(path, func(f *os.File) error {
		var err error
		n, err = io.Copy(f, r)
		return err
	})
	return n, err
}

// withFile opens path for writing, runs write, then syncs and closes on every exit path.
func withFile(path string, write func(f *os.File) error) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.DefaultFileMode)
	if err != nil {
		return fmt.Errorf("failed to open file[%s] for writing: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file[%s]: %w", path, cerr)
		}
	}()

	if err := write(f); err != nil {
		return fmt.Errorf("failed to write file[%s]: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to flush file[%s]: %w", path, err)
	}
	return nil
}

// Read returns the whole file content.
func Read(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file[%s]: %w", path, err)
	}
	return b, nil
}

// Delete removes the file if it exists. A missing file is not an error.
func Delete(path string) error {
	err := os.Remove(path)
	if err == nil {
		logger.Debugf("deleted file[%s]", path)
		return nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to delete file[%s]: %w", path, err)
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CreateFileInKB writes a file of exactly size bytes made of random alphanumeric
// characters, with special placed at the start and at the end so a round trip
// through a LOB can be checked at both boundaries.
func CreateFileInKB(path string, size int, special string) error {
	content, err := SizedContent(size, special)
	if err != nil {
		return err
	}
	return Write(path, content)
}

// SizedContent builds the payload used by CreateFileInKB.
func SizedContent(size int, special string) ([]byte, error) {
	if size < 2*len(special) {
		return nil, fmt.Errorf("size %d is too small for marker %q", size, special)
	}
	buf := make([]byte, size)
	copy(buf, special)
	for i := len(special); i < size-len(special); i++ {
		buf[i] = alphabet[rand.Intn(len(alphabet))] // #nosec G404
	}
	copy(buf[size-len(special):], special)
	return buf, nil
}
