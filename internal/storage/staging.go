package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StagingStore holds uploaded images on disk for the lifetime of a single
// request. Every staged file has a unique name.
type StagingStore struct {
	dir string
	log zerolog.Logger
}

// StagedFile is one request's copy of an upload. Release must be called on
// every exit path.
type StagedFile struct {
	Path string
	Size int64
	log  zerolog.Logger
}

func NewStagingStore(dir string, log zerolog.Logger) (*StagingStore, error) {
	logger := log.With().Str("component", "staging-store").Logger()

	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "farm-scan")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	logger.Info().Str("path", dir).Msg("staging store initialized")
	return &StagingStore{dir: dir, log: logger}, nil
}

func (s *StagingStore) Dir() string { return s.dir }

// Stage copies body into a new file named after ext. On error nothing is
// left on disk.
func (s *StagingStore) Stage(body io.Reader, ext string) (*StagedFile, error) {
	path := filepath.Join(s.dir, "scan-"+uuid.New().String()+sanitizeExt(ext))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staging file: %w", err)
	}

	written, copyErr := io.Copy(file, body)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write staging file: %w", err)
	}

	s.log.Debug().Str("path", path).Int64("bytes", written).Msg("upload staged")
	return &StagedFile{Path: path, Size: written, log: s.log}, nil
}

// ReadAll loads the staged bytes.
func (f *StagedFile) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging file: %w", err)
	}
	return data, nil
}

// Release deletes the staged file. It is safe to call more than once.
func (f *StagedFile) Release() {
	if f == nil || f.Path == "" {
		return
	}
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		f.log.Error().Err(err).Str("path", f.Path).Msg("failed to delete staging file")
		return
	}
	f.log.Debug().Str("path", f.Path).Msg("staging file deleted")
}

func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	if len(ext) > 8 {
		return ""
	}
	return ext
}
