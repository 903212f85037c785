package uploads

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStorageKey_KeepsBaseName(t *testing.T) {
	key, err := StorageKey("essay final.docx")
	if err != nil {
		t.Fatalf("StorageKey error: %v", err)
	}
	if !strings.HasSuffix(key, "essay_final.docx") {
		t.Fatalf("expected key to end with sanitized name, got %s", key)
	}
}

func TestStorageKey_StripsDirectories(t *testing.T) {
	for _, name := range []string{
		"../../etc/passwd",
		"/etc/passwd",
		"dir/sub/evil.sh",
	} {
		key, err := StorageKey(name)
		if err != nil {
			t.Fatalf("StorageKey(%q) error: %v", name, err)
		}
		if strings.Contains(key, "/") || strings.Contains(key, "..") {
			t.Fatalf("StorageKey(%q) leaked path components: %s", name, key)
		}
	}
}

func TestStorageKey_RejectsEmpty(t *testing.T) {
	for _, name := range []string{"", "   ", ".", ".."} {
		_, err := StorageKey(name)
		if err == nil {
			t.Fatalf("expected error for %q", name)
		}
	}
}

func TestStorageKey_Unique(t *testing.T) {
	a, _ := StorageKey("report.pdf")
	b, _ := StorageKey("report.pdf")
	if a == b {
		t.Fatalf("expected distinct keys, got %s twice", a)
	}
}

func TestDiskStore_SaveAndReadBack(t *testing.T) {
	dir := t.TempDir()

	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore error: %v", err)
	}

	key, err := store.Save(context.Background(), "submission.docx", strings.NewReader("hello world"))
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("expected file contents to round trip, got %q", data)
	}
}

func TestDiskStore_TraversalStaysInDir(t *testing.T) {
	dir := t.TempDir()

	store, err := NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore error: %v", err)
	}

	key, err := store.Save(context.Background(), "../../outside.txt", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, key)); err != nil {
		t.Fatalf("expected file inside uploads dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "..", "outside.txt")); err == nil {
		t.Fatalf("file escaped the uploads dir")
	}
}
