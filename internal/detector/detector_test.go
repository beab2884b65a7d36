package detector

import (
	"image"
	"path/filepath"
	"testing"
)

func TestNewMissingCascadeFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing-facefinder"), Options{})
	if err == nil {
		t.Fatal("expected error for a missing cascade file")
	}
}

func TestDetectAfterClose(t *testing.T) {
	d := &Detector{}
	if err := d.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	_, err := d.Detect(image.NewRGBA(image.Rect(0, 0, 10, 10)))
	if err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}
