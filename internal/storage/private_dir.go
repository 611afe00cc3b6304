package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"rightskeeper/internal/domain"
)

const (
	recordingPrefix = "evidence_"
	recordingExt    = ".m4a"
)

// PrivateDir is the per-install directory holding recording files.
// Only base names leave this type; paths are resolved on every access.
type PrivateDir struct {
	root string
}

// NewPrivateDir creates the directory if needed.
func NewPrivateDir(root string) (*PrivateDir, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("private storage directory is not configured")
	}
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create private storage directory: %w", err)
	}
	return &PrivateDir{root: root}, nil
}

func (d *PrivateDir) Root() string {
	return d.root
}

// NewFilename derives a capture file name from the capture start time.
func (d *PrivateDir) NewFilename(at time.Time) string {
	return recordingPrefix + strconv.FormatInt(at.UnixNano(), 10) + recordingExt
}

// Resolve maps a stored file name onto the current root.
func (d *PrivateDir) Resolve(filename string) (string, error) {
	if filename == "" || filename == "." || filename == ".." || filename != filepath.Base(filename) || strings.ContainsAny(filename, `/\`) {
		return "", &domain.ValidationError{Field: "filename", Message: fmt.Sprintf("%q is not a plain file name", filename)}
	}
	return filepath.Join(d.root, filename), nil
}

func (d *PrivateDir) Exists(filename string) (bool, error) {
	path, err := d.Resolve(filename)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (d *PrivateDir) Remove(filename string) error {
	path, err := d.Resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the audio files in the directory ordered by name.
func (d *PrivateDir) List() ([]domain.StoredFile, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read private storage directory: %w", err)
	}

	files := make([]domain.StoredFile, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.EqualFold(filepath.Ext(entry.Name()), recordingExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, domain.StoredFile{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}
