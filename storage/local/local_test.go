package local

import (
	"bytes"
	"context"
	"io"
	"testing"

	apperrors "github.com/kbukum/transcriptcheck/errors"
)

func TestUploadDownloadRoundTrip(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	ctx := context.Background()

	if err := s.Upload(ctx, "chunks/a.json", bytes.NewReader([]byte(`[1]`))); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	rc, err := s.Download(ctx, "chunks/a.json")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != `[1]` {
		t.Errorf("got %q", data)
	}

	ok, err := s.Exists(ctx, "chunks/a.json")
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v; want true", ok, err)
	}
}

func TestDownloadMissingIsNotFound(t *testing.T) {
	s, _ := NewStorage(t.TempDir())
	_, err := s.Download(context.Background(), "nope.json")
	if !apperrors.HasCode(err, apperrors.ErrCodeNotFound) {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestPathStaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	s, _ := NewStorage(root)
	ctx := context.Background()

	if err := s.Upload(ctx, "../../escape.json", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	ok, _ := s.Exists(ctx, "escape.json")
	if !ok {
		t.Error("expected escaping path to be rooted inside the base directory")
	}
}

func TestListAndDelete(t *testing.T) {
	s, _ := NewStorage(t.TempDir())
	ctx := context.Background()
	for _, p := range []string{"chunks/b.json", "chunks/a.json", "other/c.json"} {
		if err := s.Upload(ctx, p, bytes.NewReader([]byte(p))); err != nil {
			t.Fatalf("Upload %s: %v", p, err)
		}
	}

	files, err := s.List(ctx, "chunks/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(files) != 2 || files[0].Path != "chunks/a.json" || files[1].Path != "chunks/b.json" {
		t.Fatalf("unexpected listing: %+v", files)
	}

	if err := s.Delete(ctx, "chunks/a.json"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "chunks/a.json"); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
	if ok, _ := s.Exists(ctx, "chunks/a.json"); ok {
		t.Error("expected object to be gone")
	}
}
