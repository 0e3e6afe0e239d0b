package transcribe

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/internal/config"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrFileTooLarge      = errors.New("audio file too large")
	ErrEmptyFile         = errors.New("audio file is empty")
	ErrForeignPath       = errors.New("audio path is outside the upload directory")
)

// Uploads stages submitted audio on local disk until a handler consumes it.
// Every staged file is named <uuid>_<original name> inside one directory.
type Uploads struct {
	dir      string
	maxBytes int64
	formats  []string
}

// NewUploads creates the staging directory if needed.
func NewUploads(cfg config.UploadConfig) (*Uploads, error) {
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	formats := make([]string, 0, len(cfg.Formats))
	for _, f := range cfg.Formats {
		formats = append(formats, strings.ToLower(strings.TrimPrefix(strings.TrimSpace(f), ".")))
	}

	return &Uploads{dir: dir, maxBytes: cfg.MaxBytes, formats: formats}, nil
}

// MaxBytes is the largest accepted upload.
func (u *Uploads) MaxBytes() int64 { return u.maxBytes }

// Validate checks the extension and declared size of an upload before any
// bytes are written.
func (u *Uploads) Validate(filename string, size int64) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !slices.Contains(u.formats, ext) {
		return fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, filename, strings.Join(u.formats, ", "))
	}
	if size == 0 {
		return ErrEmptyFile
	}
	if size > u.maxBytes {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, size, u.maxBytes)
	}
	return nil
}

// Save copies r into the staging directory and returns the absolute path.
// The partial file is removed if the copy fails or exceeds MaxBytes.
func (u *Uploads) Save(filename string, r io.Reader) (string, error) {
	if err := u.Validate(filename, 1); err != nil {
		return "", err
	}

	path := filepath.Join(u.dir, uuid.NewString()+"_"+sanitize(filename))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, u.maxBytes+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	switch {
	case err != nil:
		err = fmt.Errorf("write staged file: %w", err)
	case n == 0:
		err = ErrEmptyFile
	case n > u.maxBytes:
		err = fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, u.maxBytes)
	}
	if err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// Owns reports whether path names a file directly inside the staging directory.
func (u *Uploads) Owns(path string) bool {
	if path == "" {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == u.dir
}

// Remove deletes a staged file. Paths outside the staging directory are
// left alone. A file that is already gone is not an error.
func (u *Uploads) Remove(path string) {
	if !u.Owns(path) {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("remove staged audio failed", "path", path, "error", err)
	}
}

// sanitize keeps the base name of an uploaded file and drops characters that
// could escape the staging directory.
func sanitize(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == 0:
			return -1
		case r < 0x20:
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return "audio"
	}
	return name
}
