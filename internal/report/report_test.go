// File: internal/report/report_test.go
// Brief: Report artifact writing and terminal rendering.

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/autopipe/internal/model"
)

func sampleStack() *model.DetectedStack {
	s := model.NewStack(model.LangGo)
	s.Framework = model.FrameworkGin
	s.BuildTool = model.BuildGoMod
	s.LanguageVersion = "1.23"
	s.ConfigFile = "go.mod"
	s.HasDockerfile = true
	s.HasTests = true
	s.TestFramework = "testing"
	return s
}

func TestWriteCreatesArtifact(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	r := &Report{
		ProjectName:   "svc",
		DetectedStack: sampleStack(),
		OutputDir:     dir,
	}
	path, err := Write(dir, r)
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if filepath.Base(path) != FileName {
		t.Fatalf("artifact name = %s, want %s", filepath.Base(path), FileName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	var decoded Report
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("artifact is not valid json: %v", err)
	}
	if decoded.ProjectName != "svc" {
		t.Fatalf("project name = %s", decoded.ProjectName)
	}
	if decoded.DetectedStack == nil || decoded.DetectedStack.Language != model.LangGo {
		t.Fatalf("unexpected stack %+v", decoded.DetectedStack)
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		t.Fatalf("artifact should end with a newline")
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	r := &Report{ProjectName: "svc", DetectedStack: sampleStack()}
	if err := WriteJSON(&buf, r); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"project_name": "svc"`) {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestWriteStacksJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStacksJSON(&buf, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Fatalf("nil listing should encode as empty array, got %q", buf.String())
	}
}

func TestPrintStacks(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintStacks(&buf, []*model.DetectedStack{sampleStack()}); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "LANGUAGE") {
		t.Fatalf("missing header:\n%s", out)
	}
	if !strings.Contains(out, "go") || !strings.Contains(out, "gin") {
		t.Fatalf("missing stack row:\n%s", out)
	}
	if !strings.Contains(out, "dockerfile") || !strings.Contains(out, "tests:testing") {
		t.Fatalf("missing signals:\n%s", out)
	}
}

func TestPrintStacksEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintStacks(&buf, nil); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No technology stacks detected.") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestPrintContext(t *testing.T) {
	ctx := &model.ProjectContext{
		Metadata:   model.ProjectMetadata{Name: "svc", Version: "1.0.0"},
		RootPath:   "/work/svc",
		Stack:      sampleStack(),
		IsMonorepo: false,
	}
	var buf bytes.Buffer
	if err := PrintContext(&buf, ctx); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"PROJECT", "svc", "SELECTED", "go 1.23", "FRAMEWORK", "gin"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "MONOREPO") {
		t.Fatalf("single project should not print a monorepo row:\n%s", out)
	}
}

func TestPrintContextMonorepo(t *testing.T) {
	node := model.NewStack(model.LangNodeJS)
	node.BuildTool = model.BuildNPM
	node.LanguageVersion = "22"
	ctx := &model.ProjectContext{
		Metadata:         model.ProjectMetadata{Name: "platform", Version: "0.1.0"},
		RootPath:         "/work/platform",
		Stack:            sampleStack(),
		IsMonorepo:       true,
		DetectedProjects: []*model.DetectedStack{sampleStack(), node},
	}
	var buf bytes.Buffer
	if err := PrintContext(&buf, ctx); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "MONOREPO") || !strings.Contains(out, "2 projects") {
		t.Fatalf("missing monorepo summary:\n%s", out)
	}
	if !strings.Contains(out, "All detected projects:") {
		t.Fatalf("missing listing:\n%s", out)
	}
}

func TestPrintContextNil(t *testing.T) {
	var buf bytes.Buffer
	if err := PrintContext(&buf, nil); err != nil {
		t.Fatalf("print failed: %v", err)
	}
	if !strings.Contains(buf.String(), "No project detected.") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}
