// File: internal/detect/golang_test.go
// Brief: Go detector behavior over modules, workspaces, and legacy trees.

package detect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/autopipe/internal/model"
)

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestGoDetectNothing(t *testing.T) {
	d := NewGoDetector(DefaultScanPolicy())
	stack, err := d.Detect(t.TempDir())
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if stack != nil {
		t.Fatalf("empty dir should yield no stack")
	}
}

func TestGoDetectModule(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "go.mod", `module github.com/acme/api

go 1.23.4

require (
	github.com/gin-gonic/gin v1.10.0
	github.com/stretchr/testify v1.9.0
)
`)
	writeTestFile(t, dir, "go.sum", "")
	writeTestFile(t, dir, "main.go", "package main\n")
	writeTestFile(t, dir, "main_test.go", "package main\n")
	writeTestFile(t, dir, "Dockerfile", "FROM scratch\n")

	d := NewGoDetector(DefaultScanPolicy())
	stack, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if stack == nil {
		t.Fatalf("expected a stack")
	}
	if stack.Language != model.LangGo {
		t.Fatalf("language mismatch: %s", stack.Language)
	}
	if stack.LanguageVersion != "1.23" {
		t.Fatalf("go version should be major.minor, got %s", stack.LanguageVersion)
	}
	if stack.Framework != model.FrameworkGin {
		t.Fatalf("framework mismatch: %s", stack.Framework)
	}
	if stack.BuildTool != model.BuildGoMod {
		t.Fatalf("build tool mismatch: %s", stack.BuildTool)
	}
	if stack.Entrypoint != "main.go" {
		t.Fatalf("entrypoint mismatch: %s", stack.Entrypoint)
	}
	if !stack.HasDockerfile {
		t.Fatalf("dockerfile should be detected")
	}
	if !stack.HasTests {
		t.Fatalf("test files should be detected")
	}
	if stack.TestFramework != "testify" {
		t.Fatalf("test framework mismatch: %s", stack.TestFramework)
	}
	if stack.PackageManagerLock != "go.sum" {
		t.Fatalf("lock file mismatch: %s", stack.PackageManagerLock)
	}
	if len(stack.Dependencies) != 2 {
		t.Fatalf("dependency count mismatch: %d", len(stack.Dependencies))
	}
	if stack.Dependencies[0].Version != "1.10.0" {
		t.Fatalf("dependency version should drop the v prefix, got %s", stack.Dependencies[0].Version)
	}
}

func TestGoDetectWorkspace(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "go.mod", "module github.com/acme/mono\n\ngo 1.22\n")
	writeTestFile(t, dir, "go.work", "go 1.22\n\nuse (\n\t./svc-a\n\t./svc-b\n)\n")

	d := NewGoDetector(DefaultScanPolicy())
	stack, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if !stack.IsMultiModule {
		t.Fatalf("workspace should mark the stack multi-module")
	}
	if len(stack.Modules) != 2 {
		t.Fatalf("module list mismatch: %v", stack.Modules)
	}
}

func TestGoDetectLegacySources(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "server.go", "package main\n")

	d := NewGoDetector(DefaultScanPolicy())
	stack, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if stack == nil {
		t.Fatalf("legacy sources should still be detected")
	}
	if stack.LanguageVersion != "1.22" {
		t.Fatalf("legacy projects should carry the default version, got %s", stack.LanguageVersion)
	}
	if stack.Entrypoint != "server.go" {
		t.Fatalf("entrypoint mismatch: %s", stack.Entrypoint)
	}
}

func TestGoDetectCmdEntrypoint(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "go.mod", "module example.com/tool\n\ngo 1.22\n")
	writeTestFile(t, dir, "cmd/tool/main.go", "package main\n")

	d := NewGoDetector(DefaultScanPolicy())
	stack, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if stack.Entrypoint != "cmd/tool/main.go" {
		t.Fatalf("entrypoint mismatch: %s", stack.Entrypoint)
	}
	if stack.SourceDir != "cmd" {
		t.Fatalf("source dir mismatch: %s", stack.SourceDir)
	}
}

func TestGoDetectAllSkipsVendoredTrees(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "svc/go.mod", "module example.com/svc\n\ngo 1.22\n")
	writeTestFile(t, root, "vendor/dep/go.mod", "module example.com/dep\n\ngo 1.22\n")
	writeTestFile(t, root, "node_modules/pkg/go.mod", "module example.com/pkg\n\ngo 1.22\n")

	d := NewGoDetector(DefaultScanPolicy())
	stacks, err := d.DetectAll(root)
	if err != nil {
		t.Fatalf("detect all failed: %v", err)
	}
	if len(stacks) != 1 {
		t.Fatalf("expected only the service module, got %d", len(stacks))
	}
	if stacks[0].ProjectRoot != "svc" {
		t.Fatalf("project root mismatch: %s", stacks[0].ProjectRoot)
	}
}
