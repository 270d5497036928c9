package saver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hmalik/maildash/internal/saver"
)

func TestSaveWritesNewFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "attachments")

	path, saved, err := saver.Save([]byte("hello"), "report.pdf", dir)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !saved {
		t.Error("expected a new file to be written")
	}
	if path != filepath.Join(dir, "report.pdf") {
		t.Errorf("unexpected path %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestSaveSkipsIdenticalNameAndSize(t *testing.T) {
	dir := t.TempDir()

	first, _, err := saver.Save([]byte("12345"), "report.pdf", dir)
	if err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	second, saved, err := saver.Save([]byte("abcde"), "report.pdf", dir)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if saved {
		t.Error("expected duplicate to be skipped")
	}
	if second != first {
		t.Errorf("expected existing path %q, got %q", first, second)
	}
}

func TestSaveDisambiguatesOnSizeMismatch(t *testing.T) {
	dir := t.TempDir()

	if _, _, err := saver.Save([]byte("short"), "report.pdf", dir); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	path, saved, err := saver.Save([]byte("much longer content"), "report.pdf", dir)
	if err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	if !saved {
		t.Error("expected a suffixed file to be written")
	}
	if filepath.Base(path) != "report (1).pdf" {
		t.Errorf("expected suffixed name, got %q", filepath.Base(path))
	}

	// The same bytes again now match the suffixed variant.
	again, saved, err := saver.Save([]byte("much longer content"), "report.pdf", dir)
	if err != nil {
		t.Fatalf("third save failed: %v", err)
	}
	if saved {
		t.Error("expected suffixed duplicate to be skipped")
	}
	if again != path {
		t.Errorf("expected existing suffixed path %q, got %q", path, again)
	}
}

func TestSaveSanitizesFilename(t *testing.T) {
	dir := t.TempDir()

	path, _, err := saver.Save([]byte("x"), "../../etc/passwd", dir)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("path escaped destination: %q", path)
	}

	path, _, err = saver.Save([]byte("y"), "", dir)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if filepath.Base(path) != "attachment" {
		t.Errorf("expected fallback name, got %q", filepath.Base(path))
	}
}

func TestFallbackFilename(t *testing.T) {
	if got := saver.FallbackFilename(0); got != "attachment_1" {
		t.Errorf("unexpected fallback name %q", got)
	}
}
