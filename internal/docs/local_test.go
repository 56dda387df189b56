package docs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStoreSave(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	ref, err := store.Save(context.Background(), "passport.pdf", strings.NewReader("document bytes"))
	if err != nil {
		t.Fatalf("saving: %v", err)
	}
	if !strings.HasSuffix(ref, ".pdf") {
		t.Errorf("expected the original extension to survive, got %q", ref)
	}
	if strings.Contains(ref, "passport") {
		t.Errorf("ref must not leak the original filename, got %q", ref)
	}

	data, err := os.ReadFile(filepath.Join(store.dir, ref))
	if err != nil {
		t.Fatalf("reading saved document: %v", err)
	}
	if string(data) != "document bytes" {
		t.Errorf("content mismatch: %q", data)
	}
}

func TestLocalStoreStripsPathFromFilename(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}

	ref, err := store.Save(context.Background(), "../../etc/passwd", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("saving: %v", err)
	}
	if strings.Contains(ref, "/") || strings.Contains(ref, "..") {
		t.Errorf("ref contains path components: %q", ref)
	}
}
