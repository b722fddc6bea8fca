package fsutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/basicmemory/basic-memory/internal/fsutil"
)

func TestHashFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "test.txt")

	content := "Hello, World!"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	hash, err := fsutil.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if hash == "" {
		t.Error("hash should not be empty")
	}

	path2 := filepath.Join(tmpDir, "test2.txt")
	if err := os.WriteFile(path2, []byte(content), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	hash2, err := fsutil.HashFile(path2)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if hash != hash2 {
		t.Errorf("same content should produce same hash: got %s and %s", hash, hash2)
	}

	path3 := filepath.Join(tmpDir, "test3.txt")
	if err := os.WriteFile(path3, []byte("Different content"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	hash3, err := fsutil.HashFile(path3)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	if hash == hash3 {
		t.Error("different content should produce different hash")
	}
}

func TestHashFileNotFound(t *testing.T) {
	_, err := fsutil.HashFile("/nonexistent/file.txt")
	if err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestIsHidden(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"notes/note.md", false},
		{".git/config", true},
		{"notes/.hidden/file.md", true},
		{filepath.Join("a", "b", "c.md"), false},
	}
	for _, tc := range cases {
		if got := fsutil.IsHidden(tc.path); got != tc.want {
			t.Errorf("IsHidden(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestScan_SkipsDotfilesAtEveryLevel(t *testing.T) {
	tmpDir := t.TempDir()
	mustWrite(t, filepath.Join(tmpDir, "note.md"), "hello")
	mustWrite(t, filepath.Join(tmpDir, ".hidden.md"), "hidden")
	mustWrite(t, filepath.Join(tmpDir, ".git", "config"), "gitconfig")
	mustWrite(t, filepath.Join(tmpDir, "sub", "nested.md"), "nested")
	mustWrite(t, filepath.Join(tmpDir, "sub", ".hiddendir", "x.md"), "also hidden")

	scan, err := fsutil.Scan(tmpDir, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if _, ok := scan["note.md"]; !ok {
		t.Errorf("expected note.md in scan, got %v", scan)
	}
	if _, ok := scan[filepath.ToSlash(filepath.Join("sub", "nested.md"))]; !ok {
		t.Errorf("expected sub/nested.md in scan, got %v", scan)
	}
	for path := range scan {
		if fsutil.IsHidden(path) {
			t.Errorf("scan should never include hidden path %q", path)
		}
	}
	if len(scan) != 2 {
		t.Errorf("expected exactly 2 visible files, got %d: %v", len(scan), scan)
	}
}

func TestScan_RespectsIgnoreGlobs(t *testing.T) {
	tmpDir := t.TempDir()
	mustWrite(t, filepath.Join(tmpDir, "note.md"), "hello")
	mustWrite(t, filepath.Join(tmpDir, "vendor", "lib.md"), "vendored")

	scan, err := fsutil.Scan(tmpDir, []string{"vendor/**"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if _, ok := scan["note.md"]; !ok {
		t.Errorf("expected note.md in scan")
	}
	if _, ok := scan[filepath.ToSlash(filepath.Join("vendor", "lib.md"))]; ok {
		t.Errorf("vendor/lib.md should have been excluded by ignore glob")
	}
}

func TestScan_AbortsWholeScanOnUnreadableFile(t *testing.T) {
	tmpDir := t.TempDir()
	mustWrite(t, filepath.Join(tmpDir, "note.md"), "hello")
	badPath := filepath.Join(tmpDir, "secret.md")
	mustWrite(t, badPath, "secret")
	if err := os.Chmod(badPath, 0000); err != nil {
		t.Fatalf("chmod failed: %v", err)
	}
	defer os.Chmod(badPath, 0644)

	if os.Geteuid() == 0 {
		t.Skip("running as root, permission checks are not enforced")
	}

	_, err := fsutil.Scan(tmpDir, nil)
	if err == nil {
		t.Fatal("expected scan to fail on unreadable file")
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}
