// File: internal/fetch/fetch_test.go
// Brief: Source argument resolution and remote rejection.

package fetch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestFetchLocalDir(t *testing.T) {
	dir := t.TempDir()
	src, err := Fetch(dir)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !filepath.IsAbs(src.Path) {
		t.Fatalf("path %s should be absolute", src.Path)
	}
	if err := src.Cleanup(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
}

func TestFetchEmptySource(t *testing.T) {
	if _, err := Fetch(""); err == nil {
		t.Fatalf("empty source should fail")
	}
}

func TestFetchMissingPath(t *testing.T) {
	if _, err := Fetch(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Fatalf("missing path should fail")
	}
}

func TestFetchRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Fetch(path); err == nil {
		t.Fatalf("plain file should fail")
	}
}

func TestFetchRejectsRemote(t *testing.T) {
	for _, src := range []string{
		"https://github.com/acme/svc.git",
		"git@github.com:acme/svc.git",
		"ssh://git@github.com/acme/svc.git",
	} {
		_, err := Fetch(src)
		if err == nil {
			t.Fatalf("remote source %s should fail", src)
		}
		if !errors.Is(err, ErrRemoteSource) {
			t.Fatalf("error for %s should wrap ErrRemoteSource, got %v", src, err)
		}
	}
}

func TestIsRemote(t *testing.T) {
	if IsRemote("./local/path") || IsRemote("/abs/path") {
		t.Fatalf("local paths should not be remote")
	}
	if !IsRemote("https://example.com/repo.git") || !IsRemote("git@host:repo.git") {
		t.Fatalf("urls should be remote")
	}
}

func TestCleanupNilSource(t *testing.T) {
	var src *Source
	if err := src.Cleanup(); err != nil {
		t.Fatalf("nil source cleanup should be a no-op, got %v", err)
	}
}
