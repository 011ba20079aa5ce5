// File: internal/detect/detect.go
// Brief: Detector contract and the shared recursive search policy.

// Package detect houses one detector per ecosystem. Each detector scans a
// directory for its manifests and normalizes what it finds into a
// model.DetectedStack; nothing ecosystem-specific escapes this package.
package detect

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/example/autopipe/internal/model"
)

// Detector identifies one ecosystem's projects.
type Detector interface {
	// Name labels the detector in logs.
	Name() string
	// Detect inspects a single directory. It returns (nil, nil) when the
	// ecosystem is not present there.
	Detect(dir string) (*model.DetectedStack, error)
	// DetectAll recursively finds every project of this type under root,
	// honoring the shared skip policy. Each result carries its ProjectRoot
	// relative to root (empty for root itself).
	DetectAll(root string) ([]*model.DetectedStack, error)
}

// ScanPolicy bounds the recursive search.
type ScanPolicy struct {
	// MaxDepth is the deepest directory level probed below the root.
	MaxDepth int
}

// DefaultScanPolicy matches the walker contract: five levels deep.
func DefaultScanPolicy() ScanPolicy {
	return ScanPolicy{MaxDepth: 5}
}

// skipDirs are directory names never descended into: package caches, VCS
// metadata, virtualenvs, build output, and IDE state.
var skipDirs = map[string]struct{}{
	"node_modules": {}, ".git": {}, ".svn": {}, ".hg": {},
	"__pycache__": {}, ".pytest_cache": {},
	"venv": {}, ".venv": {}, "env": {}, ".env": {}, "virtualenv": {},
	"vendor": {}, "bower_components": {},
	"target": {}, "build": {}, "dist": {}, "out": {}, "bin": {}, "obj": {},
	".idea": {}, ".vscode": {}, ".gradle": {}, ".m2": {},
	"coverage": {}, ".nyc_output": {}, "htmlcov": {},
	".tox": {}, ".nox": {}, ".eggs": {},
}

// searchableHidden are the hidden directories still worth entering.
var searchableHidden = map[string]struct{}{
	".github": {},
	".gitlab": {},
}

func shouldSearchDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		_, ok := searchableHidden[name]
		return ok
	}
	if _, skip := skipDirs[name]; skip {
		return false
	}
	return !strings.HasSuffix(name, ".egg-info")
}

// searchProjects drives DetectAll for every detector: probe each candidate
// directory, stamp ProjectRoot, and stop descending below multi-module roots
// (their modules are already accounted for by the parent detection).
func searchProjects(root string, policy ScanPolicy, probe func(dir string) (*model.DetectedStack, error)) ([]*model.DetectedStack, error) {
	var results []*model.DetectedStack
	if err := searchRecursive(root, root, policy, probe, &results, 0); err != nil {
		return nil, err
	}
	return results, nil
}

func searchRecursive(dir, root string, policy ScanPolicy, probe func(string) (*model.DetectedStack, error), results *[]*model.DetectedStack, depth int) error {
	if depth > policy.MaxDepth {
		return nil
	}

	stack, err := probe(dir)
	if err != nil {
		return err
	}
	if stack != nil {
		rel, relErr := filepath.Rel(root, dir)
		if relErr == nil && rel != "." {
			stack.ProjectRoot = filepath.ToSlash(rel)
		}
		*results = append(*results, stack)
		if stack.IsMultiModule {
			return nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		// Unreadable directories are skipped, not fatal.
		if errors.Is(err, fs.ErrPermission) {
			return nil
		}
		return nil
	}
	for _, entry := range entries {
		if !entry.IsDir() || !shouldSearchDir(entry.Name()) {
			continue
		}
		if err := searchRecursive(filepath.Join(dir, entry.Name()), root, policy, probe, results, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// commonSourceDirs and commonTestDirs are the layout conventions probed when a
// manifest does not pin the directories explicitly.
var commonSourceDirs = []string{"src", "app", "lib", "source", "sources", "main"}
var commonTestDirs = []string{"test", "tests", "spec", "specs", "__tests__", "test_suite", "testing"}

func detectSourceDir(dir string) string {
	for _, d := range commonSourceDirs {
		if isDir(filepath.Join(dir, d)) {
			return d
		}
	}
	return ""
}

func detectTestDir(dir string) string {
	for _, d := range commonTestDirs {
		if isDir(filepath.Join(dir, d)) {
			return d
		}
	}
	if isDir(filepath.Join(dir, "src", "test")) {
		return "src/test"
	}
	return ""
}

var dockerfileNames = []string{"Dockerfile", "dockerfile", "Dockerfile.dev", "Dockerfile.prod", "Dockerfile.production"}

func hasDockerfile(dir string) bool {
	for _, name := range dockerfileNames {
		if fileExists(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// sortedKeys keeps dependency lists deterministic regardless of map iteration
// order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// globLimited returns up to limit files under dir whose base name matches
// pattern, honoring the skip policy. A cheap substitute for unbounded
// recursive globbing on large trees.
func globLimited(dir, pattern string, limit int) []string {
	var found []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fs.SkipDir
		}
		if d.IsDir() {
			if path != dir && !shouldSearchDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if ok, _ := filepath.Match(pattern, d.Name()); ok {
			found = append(found, path)
			if len(found) >= limit {
				return fs.SkipAll
			}
		}
		return nil
	})
	return found
}
