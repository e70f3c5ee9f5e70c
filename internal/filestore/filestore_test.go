package filestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "receipt.jpg", "receipt.jpg"},
		{"spaces replaced", "my receipt.jpg", "my_receipt.jpg"},
		{"path stripped", "../../etc/passwd", "passwd"},
		{"unicode replaced", "reçu café.png", "re_u_caf_.png"},
		{"empty falls back", "", "receipt"},
		{"only dots falls back", "...", "receipt"},
		{"leading dot trimmed", ".hidden", "hidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeFilename(tt.input); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStore_Save(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "https://expenses.example.com/")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	data := []byte("fake image bytes")
	url, filename, err := store.Save(data, "lunch receipt.jpg")
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if !strings.HasPrefix(url, "https://expenses.example.com/uploads/") {
		t.Errorf("Save() url = %q, want /uploads/ prefix on base URL", url)
	}
	if !strings.HasSuffix(filename, "_lunch_receipt.jpg") {
		t.Errorf("Save() filename = %q, want sanitized suffix", filename)
	}

	stored, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(stored) != string(data) {
		t.Errorf("stored bytes = %q, want %q", stored, data)
	}
}

func TestStore_SaveEmptyData(t *testing.T) {
	store, err := New(t.TempDir(), "http://localhost:8081")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, _, err := store.Save(nil, "receipt.jpg"); err == nil {
		t.Error("Save() with empty data expected error, got nil")
	}
}
