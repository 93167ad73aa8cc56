// Package localfs stores raw blobs on the local filesystem, keyed by a
// sanitized identifier.
package localfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/obsidian-cms/obsidian/internal/domain"
	"golang.org/x/text/unicode/norm"
)

var (
	filenameStripRe = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

	// Reserved device names on Windows; a sanitized name must never
	// collide with them regardless of the host we run on.
	windowsDeviceNames = map[string]struct{}{
		"CON": {}, "PRN": {}, "AUX": {}, "NUL": {},
		"COM0": {}, "COM1": {}, "COM2": {}, "COM3": {}, "COM4": {},
		"COM5": {}, "COM6": {}, "COM7": {}, "COM8": {}, "COM9": {},
		"LPT0": {}, "LPT1": {}, "LPT2": {}, "LPT3": {}, "LPT4": {},
		"LPT5": {}, "LPT6": {}, "LPT7": {}, "LPT8": {}, "LPT9": {},
	}
)

// SecureFilename reduces a name to a safe ASCII filename: no path
// separators, no traversal, no reserved device names. Fails with
// ErrValidation when nothing safe remains.
func SecureFilename(name string) (string, error) {
	name = norm.NFKD.String(name)

	var ascii strings.Builder
	for _, r := range name {
		if r < 128 {
			ascii.WriteRune(r)
		}
	}
	name = ascii.String()

	for _, sep := range []string{"/", "\\", string(os.PathSeparator)} {
		name = strings.ReplaceAll(name, sep, " ")
	}
	name = strings.Join(strings.Fields(name), "_")
	name = filenameStripRe.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")

	if name == "" {
		return "", fmt.Errorf("%w: no usable filename", domain.ErrValidation)
	}
	base := strings.ToUpper(strings.SplitN(name, ".", 2)[0])
	if _, reserved := windowsDeviceNames[base]; reserved {
		name = "_" + name
	}
	return name, nil
}

type Storage struct {
	dir string
}

func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

func (s *Storage) path(id string) (string, error) {
	name, err := SecureFilename(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, name), nil
}

func (s *Storage) Exists(id string) (bool, error) {
	path, err := s.path(id)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %v", domain.ErrStorage, err)
}

// WriteFile streams r into the blob identified by id and returns the number
// of bytes written. Fails with ErrFileExists unless overwrite is set.
func (s *Storage) WriteFile(id string, r io.Reader, overwrite bool) (int64, error) {
	path, err := s.path(id)
	if err != nil {
		return 0, err
	}
	if !overwrite {
		exists, err := s.Exists(id)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, fmt.Errorf("%w: %s", domain.ErrFileExists, id)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	defer f.Close()

	n, err := io.Copy(f, r)
	if err != nil {
		return n, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return n, nil
}

func (s *Storage) ReadFile(id string) (io.ReadCloser, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return f, nil
}

func (s *Storage) DeleteFile(id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	return nil
}

func (s *Storage) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorage, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
