// File: internal/analyzer/analyzer_test.go
// Brief: Detector coordination, merge order, and dedup behavior.

package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/example/autopipe/internal/model"
	"github.com/example/autopipe/internal/resolve"
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

func TestAnalyzeRejectsMissingRoot(t *testing.T) {
	a := New(zap.NewNop())
	if _, err := a.Analyze(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{}); err == nil {
		t.Fatalf("missing root should fail")
	}
}

func TestAnalyzeRejectsFileRoot(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "README.md", "hello")
	a := New(zap.NewNop())
	if _, err := a.Analyze(context.Background(), filepath.Join(dir, "README.md"), Options{}); err == nil {
		t.Fatalf("file root should fail")
	}
}

func TestAnalyzeEmptyRepo(t *testing.T) {
	a := New(zap.NewNop())
	stacks, err := a.Analyze(context.Background(), t.TempDir(), Options{Recursive: true})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(stacks) != 0 {
		t.Fatalf("empty repo should yield no stacks, got %d", len(stacks))
	}
}

func TestAnalyzeSingleProject(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "go.mod", "module example.com/svc\n\ngo 1.23\n")

	a := New(zap.NewNop())
	stacks, err := a.Analyze(context.Background(), dir, Options{Recursive: true})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(stacks) != 1 {
		t.Fatalf("stacks = %d, want 1", len(stacks))
	}
	if stacks[0].Language != model.LangGo {
		t.Fatalf("language = %s, want go", stacks[0].Language)
	}
}

func TestAnalyzeMergesInRegistrationOrder(t *testing.T) {
	dir := t.TempDir()
	// One directory claimed by two ecosystems: Java registers before Node, so
	// the Maven stack comes first regardless of goroutine scheduling.
	writeTestFile(t, dir, "pom.xml", `<project><artifactId>svc</artifactId><version>1.0</version></project>`)
	writeTestFile(t, dir, "package.json", `{"name": "svc", "version": "1.0.0"}`)

	a := New(zap.NewNop())
	stacks, err := a.Analyze(context.Background(), dir, Options{Recursive: true})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(stacks) != 2 {
		t.Fatalf("stacks = %d, want 2", len(stacks))
	}
	if stacks[0].Language != model.LangJava {
		t.Fatalf("first stack = %s, want java", stacks[0].Language)
	}
	if stacks[1].Language != model.LangNodeJS {
		t.Fatalf("second stack = %s, want node", stacks[1].Language)
	}
}

// Enumeration order is part of the resolution contract: a backend TypeScript
// project and a bare PHP project score identically, and the tie must go to
// the stack the Node detector enumerates first.
func TestAnalyzeOrderBreaksScoreTies(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "api/package.json", `{
  "name": "api",
  "version": "1.0.0",
  "dependencies": {"@nestjs/core": "^10.0.0"},
  "devDependencies": {"typescript": "^5.4.0"}
}`)
	writeTestFile(t, dir, "legacy/composer.json", `{"require": {"php": "^8.2"}}`)

	a := New(zap.NewNop())
	stacks, err := a.Analyze(context.Background(), dir, Options{Recursive: true})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(stacks) != 2 {
		t.Fatalf("stacks = %d, want 2", len(stacks))
	}
	if stacks[0].Language != model.LangTypeScript {
		t.Fatalf("first stack = %s, want typescript", stacks[0].Language)
	}
	if stacks[1].Language != model.LangPHP {
		t.Fatalf("second stack = %s, want php", stacks[1].Language)
	}

	r := resolve.New(zap.NewNop())
	projectCtx, err := r.Resolve(stacks, dir)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if projectCtx.Stack.Language != model.LangTypeScript {
		t.Fatalf("winner = %s, the tied backend stack enumerated first should win", projectCtx.Stack.Language)
	}
}

func TestAnalyzeMonorepo(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "api/go.mod", "module example.com/api\n\ngo 1.23\n")
	writeTestFile(t, dir, "web/package.json", `{"name": "web", "version": "0.1.0"}`)

	a := New(zap.NewNop())
	stacks, err := a.Analyze(context.Background(), dir, Options{Recursive: true})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(stacks) != 2 {
		t.Fatalf("stacks = %d, want 2", len(stacks))
	}
	roots := map[string]model.Language{}
	for _, s := range stacks {
		roots[s.ProjectRoot] = s.Language
	}
	if roots["api"] != model.LangGo || roots["web"] != model.LangNodeJS {
		t.Fatalf("unexpected project roots %v", roots)
	}
}

func TestAnalyzeNonRecursiveIgnoresNested(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "api/go.mod", "module example.com/api\n\ngo 1.23\n")

	a := New(zap.NewNop())
	stacks, err := a.Analyze(context.Background(), dir, Options{Recursive: false})
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(stacks) != 0 {
		t.Fatalf("non-recursive analysis should skip nested projects, got %d", len(stacks))
	}
}

func TestAnalyzePath(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "go.mod", "module example.com/svc\n\ngo 1.23\n")

	a := New(zap.NewNop())
	stack, err := a.AnalyzePath(context.Background(), dir)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if stack == nil || stack.Language != model.LangGo {
		t.Fatalf("unexpected stack %+v", stack)
	}

	none, err := a.AnalyzePath(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if none != nil {
		t.Fatalf("empty dir should yield nil stack")
	}
}
