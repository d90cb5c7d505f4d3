package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Errors returned by the upload store.
var (
	ErrInvalidExtension = errors.New("file type not allowed")
	ErrInvalidFilename  = errors.New("invalid filename")
)

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
}

// Store saves uploaded files under a single root directory, split into
// measurement photos and audio notes.
type Store struct {
	root string
}

// NewStore creates the upload directories under root if they do not exist.
func NewStore(root string) (*Store, error) {
	for _, dir := range []string{"measurements", "audio"} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("create upload dir: %w", err)
		}
	}
	return &Store{root: root}, nil
}

// AllowedImage reports whether the filename has a permitted image extension.
func AllowedImage(filename string) bool {
	return allowedImageExts[strings.ToLower(filepath.Ext(filename))]
}

// SaveImage stores a measurement photo and returns its path relative to the
// upload root. The stored name embeds the owning user and a timestamp; a
// client filename that sanitizes down to nothing gets a random name instead.
func (s *Store) SaveImage(userID int64, filename string, r io.Reader) (string, error) {
	if !AllowedImage(filename) {
		return "", ErrInvalidExtension
	}
	ext := strings.ToLower(filepath.Ext(filename))
	base := sanitize(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))
	if base == "" {
		base = uuid.NewString()
	}
	name := fmt.Sprintf("%d_%d_%s%s", userID, time.Now().Unix(), base, ext)
	rel := filepath.Join("measurements", name)
	if err := s.write(rel, r); err != nil {
		return "", err
	}
	return rel, nil
}

// SaveAudio stores a voice note for a measurement and returns its path
// relative to the upload root. A previously stored note for the same
// measurement is removed; oldPath may be empty.
func (s *Store) SaveAudio(measurementID int64, oldPath string, r io.Reader) (string, error) {
	if oldPath != "" {
		if err := s.Remove(oldPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
	}
	name := fmt.Sprintf("audio_%d_%d.wav", measurementID, time.Now().Unix())
	rel := filepath.Join("audio", name)
	if err := s.write(rel, r); err != nil {
		return "", err
	}
	return rel, nil
}

// Open returns a reader for a stored file given its relative path.
func (s *Store) Open(rel string) (*os.File, error) {
	abs, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(abs)
}

// Remove deletes a stored file given its relative path.
func (s *Store) Remove(rel string) error {
	abs, err := s.resolve(rel)
	if err != nil {
		return err
	}
	return os.Remove(abs)
}

// resolve maps a relative path onto the root, rejecting traversal attempts.
func (s *Store) resolve(rel string) (string, error) {
	if rel == "" || strings.Contains(rel, "..") || strings.HasPrefix(rel, "/") {
		return "", ErrInvalidFilename
	}
	return filepath.Join(s.root, filepath.Clean(rel)), nil
}

func (s *Store) write(rel string, r io.Reader) error {
	abs, err := s.resolve(rel)
	if err != nil {
		return err
	}
	f, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// sanitize keeps only characters safe for a filename.
func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	return b.String()
}
