package storage

import (
	"io"
	"testing"
)

func TestLocalStore(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore returned error: %v", err)
	}

	t.Run("SaveAndOpen", func(t *testing.T) {
		if err := store.Save("key-1", []byte("hello")); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
		r, err := store.Open("key-1")
		if err != nil {
			t.Fatalf("Open returned error: %v", err)
		}
		defer r.Close()
		data, _ := io.ReadAll(r)
		if string(data) != "hello" {
			t.Errorf("expected hello, got %q", data)
		}
	})

	t.Run("PathTraversalConfined", func(t *testing.T) {
		if err := store.Save("../escape", []byte("x")); err != nil {
			t.Fatalf("Save returned error: %v", err)
		}
		if _, err := store.Open("escape"); err != nil {
			t.Errorf("expected traversal key to be stored under its base name: %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		store.Save("key-2", []byte("x"))
		if err := store.Delete("key-2"); err != nil {
			t.Fatalf("Delete returned error: %v", err)
		}
		if _, err := store.Open("key-2"); err == nil {
			t.Error("expected deleted key to be gone")
		}
	})
}

func TestSecureFilename(t *testing.T) {
	cases := map[string]string{
		"waiver.pdf":            "waiver.pdf",
		"../../etc/passwd":      "passwd",
		`C:\Users\x\report.doc`: "report.doc",
		"příloha žádosti.pdf":   "p__loha___dosti.pdf",
		"...":                   "fallback",
		"":                      "fallback",
	}
	for input, want := range cases {
		if got := SecureFilename(input, "fallback"); got != want {
			t.Errorf("SecureFilename(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestContentType(t *testing.T) {
	if got := ContentType("waiver.pdf", ""); got != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", got)
	}
	if got := ContentType("data.bin2", "text/plain"); got != "text/plain" {
		t.Errorf("expected the declared type, got %q", got)
	}
	if got := ContentType("data.bin2", ""); got != "application/octet-stream" {
		t.Errorf("expected the generic type, got %q", got)
	}
}
