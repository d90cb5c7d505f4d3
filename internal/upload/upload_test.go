package upload

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestAllowedImage(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"photo.png", true},
		{"photo.JPG", true},
		{"photo.jpeg", true},
		{"photo.gif", true},
		{"notes.pdf", false},
		{"script.sh", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := AllowedImage(tt.name); got != tt.ok {
			t.Errorf("AllowedImage(%q) = %v, want %v", tt.name, got, tt.ok)
		}
	}
}

func TestSaveImage(t *testing.T) {
	s := newTestStore(t)
	rel, err := s.SaveImage(3, "front view.png", strings.NewReader("img-bytes"))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	if !strings.HasPrefix(rel, "measurements"+string(filepath.Separator)) {
		t.Errorf("path %q not under measurements/", rel)
	}
	if !strings.HasPrefix(filepath.Base(rel), "3_") {
		t.Errorf("filename %q should start with user id", filepath.Base(rel))
	}
	if !strings.Contains(rel, "front_view") {
		t.Errorf("filename %q should keep sanitized base name", rel)
	}

	f, err := s.Open(rel)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "img-bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestSaveImage_RejectsExtension(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SaveImage(3, "evil.exe", strings.NewReader("x")); !errors.Is(err, ErrInvalidExtension) {
		t.Fatalf("err = %v, want ErrInvalidExtension", err)
	}
}

func TestSaveImage_UnusableNameGetsRandom(t *testing.T) {
	s := newTestStore(t)
	rel, err := s.SaveImage(3, "###.png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("SaveImage: %v", err)
	}
	base := filepath.Base(rel)
	if !strings.HasSuffix(base, ".png") || len(base) < 20 {
		t.Errorf("expected random fallback name, got %q", base)
	}
}

func TestSaveAudio_ReplacesOld(t *testing.T) {
	s := newTestStore(t)
	first, err := s.SaveAudio(9, "", strings.NewReader("take-1"))
	if err != nil {
		t.Fatalf("SaveAudio: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(first), "audio_9_") {
		t.Errorf("filename %q should embed measurement id", first)
	}

	second, err := s.SaveAudio(9, first, strings.NewReader("take-2"))
	if err != nil {
		t.Fatalf("SaveAudio replace: %v", err)
	}
	if _, err := s.Open(first); second != first && !errors.Is(err, os.ErrNotExist) {
		t.Errorf("old audio should be gone, Open err = %v", err)
	}
	f, err := s.Open(second)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "take-2" {
		t.Errorf("content = %q", data)
	}
}

func TestResolve_RejectsTraversal(t *testing.T) {
	s := newTestStore(t)
	for _, rel := range []string{"../etc/passwd", "audio/../../x", "/abs/path", ""} {
		if _, err := s.Open(rel); !errors.Is(err, ErrInvalidFilename) {
			t.Errorf("Open(%q) err = %v, want ErrInvalidFilename", rel, err)
		}
	}
}
