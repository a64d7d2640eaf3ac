package attach

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tally/internal/core"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), "http://localhost:8081/", 1024)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestDigest(t *testing.T) {
	a := Digest([]byte("same content"))
	b := Digest([]byte("same content"))
	c := Digest([]byte("other content"))
	if a != b {
		t.Fatalf("identical content must digest identically")
	}
	if a == c {
		t.Fatalf("different content must digest differently")
	}
	if len(a) != 64 {
		t.Fatalf("expected hex sha256, got %q", a)
	}
}

func TestValidateUpload(t *testing.T) {
	store := newTestStore(t)

	cases := []struct {
		name string
		u    core.FileUpload
		want error
	}{
		{"ok", core.FileUpload{FileName: "r.pdf", FileType: "application/pdf", Data: []byte("x")}, nil},
		{"no name", core.FileUpload{Data: []byte("x")}, core.ErrEmptyFileName},
		{"no data", core.FileUpload{FileName: "r.pdf"}, core.ErrEmptyFile},
		{"too large", core.FileUpload{FileName: "r.pdf", Data: bytes.Repeat([]byte("x"), 1025)}, core.ErrFileTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.ValidateUpload(tc.u)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected ok, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestPersistAndRemove(t *testing.T) {
	store := newTestStore(t)
	data := []byte("receipt bytes")

	name, err := store.Persist(core.FileUpload{FileName: "Receipt March.PDF", FileType: "application/pdf", Data: data})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if !strings.HasSuffix(name, ".pdf") {
		t.Fatalf("expected lowercased extension kept, got %q", name)
	}
	if strings.ContainsAny(name, "/\\ ") {
		t.Fatalf("stored name must be a bare file name, got %q", name)
	}

	onDisk, err := os.ReadFile(filepath.Join(store.Dir(), name))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if !bytes.Equal(onDisk, data) {
		t.Fatalf("stored bytes differ")
	}

	// same content persists under a second independent name
	again, err := store.Persist(core.FileUpload{FileName: "copy.pdf", Data: data})
	if err != nil {
		t.Fatalf("Persist again: %v", err)
	}
	if again == name {
		t.Fatalf("stored names must be unique per persist")
	}

	if err := store.Remove(name); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), name)); !os.IsNotExist(err) {
		t.Fatalf("expected file gone, stat err %v", err)
	}
	// removing twice is fine
	if err := store.Remove(name); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestPersistIgnoresPathInName(t *testing.T) {
	store := newTestStore(t)
	name, err := store.Persist(core.FileUpload{FileName: "../../etc/passwd", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Persist: %v", err)
	}
	if strings.Contains(name, "..") || strings.Contains(name, "/") {
		t.Fatalf("traversal leaked into stored name %q", name)
	}
	if _, err := os.Stat(filepath.Join(store.Dir(), name)); err != nil {
		t.Fatalf("expected file inside the store dir: %v", err)
	}
}

func TestURL(t *testing.T) {
	store := newTestStore(t)
	got := store.URL("abc.pdf")
	if got != "http://localhost:8081/uploads/abc.pdf" {
		t.Fatalf("unexpected URL %q", got)
	}
}
