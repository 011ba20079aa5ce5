// File: internal/fetch/fetch.go
// Brief: Resolves a source argument to a local directory ready for analysis.

// Package fetch turns the user's source argument into a usable local path.
// Only local paths are supported; remote URLs are rejected with a clear error
// rather than silently misread as relative paths.
package fetch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Source is a fetched project location. Cleanup releases any resources the
// fetch acquired; for local paths it is a no-op, but callers should always
// defer it so future acquisition strategies stay drop-in.
type Source struct {
	// Path is the absolute local directory holding the project.
	Path string

	cleanup func() error
}

// Cleanup releases the fetched source.
func (s *Source) Cleanup() error {
	if s == nil || s.cleanup == nil {
		return nil
	}
	return s.cleanup()
}

// ErrRemoteSource is returned when the argument names a remote repository.
var ErrRemoteSource = errors.New("cloning is not supported")

// IsRemote reports whether the argument names a remote repository rather than
// a local path.
func IsRemote(src string) bool {
	return strings.Contains(src, "://") || strings.HasPrefix(src, "git@")
}

// Fetch resolves src to a local directory. Remote repository URLs are not
// fetched; clone them first and point at the working copy.
func Fetch(src string) (*Source, error) {
	if src == "" {
		return nil, errors.New("source path is empty")
	}
	if IsRemote(src) {
		return nil, errors.Wrapf(ErrRemoteSource, "remote source %s", src)
	}

	abs, err := filepath.Abs(src)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", src)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrapf(err, "access %s", src)
	}
	if !info.IsDir() {
		return nil, errors.Errorf("%s is not a directory", src)
	}

	return &Source{Path: abs, cleanup: func() error { return nil }}, nil
}
