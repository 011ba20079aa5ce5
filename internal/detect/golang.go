// File: internal/detect/golang.go
// Brief: Go project detection from go.mod, go.work, and bare source trees.

package detect

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/example/autopipe/internal/model"
	"golang.org/x/mod/modfile"
)

// GoDetector recognizes Go modules, multi-module workspaces, and legacy
// GOPATH-style projects without a go.mod.
type GoDetector struct {
	policy ScanPolicy
}

func NewGoDetector(policy ScanPolicy) *GoDetector {
	return &GoDetector{policy: policy}
}

func (d *GoDetector) Name() string { return "go" }

const defaultGoVersion = "1.22"

func (d *GoDetector) Detect(dir string) (*model.DetectedStack, error) {
	goMod := filepath.Join(dir, "go.mod")
	if fileExists(goMod) {
		return d.analyzeGoMod(goMod, dir), nil
	}
	// Legacy projects: Go sources without a module file.
	if matches, _ := filepath.Glob(filepath.Join(dir, "*.go")); len(matches) > 0 {
		return d.analyzeLegacy(dir), nil
	}
	return nil, nil
}

func (d *GoDetector) DetectAll(root string) ([]*model.DetectedStack, error) {
	return searchProjects(root, d.policy, d.Detect)
}

func (d *GoDetector) analyzeGoMod(path, dir string) *model.DetectedStack {
	data, err := os.ReadFile(path)
	if err != nil {
		return d.fallbackStack()
	}
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil {
		return d.fallbackStack()
	}

	goVersion := defaultGoVersion
	if f.Go != nil && f.Go.Version != "" {
		goVersion = majorMinor(f.Go.Version)
	}

	deps := make([]model.Dependency, 0, len(f.Require))
	for _, req := range f.Require {
		deps = append(deps, model.Dependency{
			Name:    req.Mod.Path,
			Version: strings.TrimPrefix(req.Mod.Version, "v"),
		})
	}

	isWorkspace, modules := detectGoWorkspace(dir)

	stack := model.NewStack(model.LangGo)
	stack.Framework = detectGoFramework(deps)
	stack.BuildTool = model.BuildGoMod
	stack.LanguageVersion = goVersion
	stack.GoVersion = goVersion
	stack.ConfigFile = "go.mod"
	stack.SourceDir = detectGoSourceDir(dir)
	stack.TestDir = detectGoTestDir(dir)
	stack.Entrypoint = detectGoEntrypoint(dir)
	stack.BuildOutputDir = "." // go build writes to the working directory
	stack.IsMultiModule = isWorkspace
	stack.Modules = modules
	stack.Dependencies = deps
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = len(globLimited(dir, "*_test.go", 5)) > 0
	stack.TestFramework = detectGoTestFramework(deps)
	if fileExists(filepath.Join(dir, "go.sum")) {
		stack.PackageManagerLock = "go.sum"
	}
	return stack
}

func (d *GoDetector) analyzeLegacy(dir string) *model.DetectedStack {
	stack := model.NewStack(model.LangGo)
	stack.BuildTool = model.BuildGoMod
	stack.LanguageVersion = defaultGoVersion
	stack.GoVersion = defaultGoVersion
	stack.SourceDir = detectGoSourceDir(dir)
	stack.Entrypoint = detectGoEntrypoint(dir)
	stack.HasDockerfile = hasDockerfile(dir)
	return stack
}

func (d *GoDetector) fallbackStack() *model.DetectedStack {
	stack := model.NewStack(model.LangGo)
	stack.BuildTool = model.BuildGoMod
	stack.LanguageVersion = defaultGoVersion
	stack.GoVersion = defaultGoVersion
	return stack
}

// majorMinor trims a go directive version down to major.minor.
func majorMinor(version string) string {
	parts := strings.Split(version, ".")
	if len(parts) >= 2 {
		return parts[0] + "." + parts[1]
	}
	return version
}

var goFrameworkMarkers = []struct {
	needle    string
	framework model.Framework
}{
	{"gin-gonic/gin", model.FrameworkGin},
	{"labstack/echo", model.FrameworkEcho},
	{"gofiber/fiber", model.FrameworkFiber},
}

func detectGoFramework(deps []model.Dependency) model.Framework {
	for _, marker := range goFrameworkMarkers {
		for _, dep := range deps {
			if strings.Contains(strings.ToLower(dep.Name), marker.needle) {
				return marker.framework
			}
		}
	}
	return model.FrameworkNone
}

func detectGoSourceDir(dir string) string {
	for _, d := range []string{"cmd", "internal", "pkg", "src", "app"} {
		if isDir(filepath.Join(dir, d)) {
			return d
		}
	}
	return ""
}

func detectGoEntrypoint(dir string) string {
	if fileExists(filepath.Join(dir, "main.go")) {
		return "main.go"
	}
	cmdDir := filepath.Join(dir, "cmd")
	if isDir(cmdDir) {
		if entries, err := os.ReadDir(cmdDir); err == nil {
			for _, entry := range entries {
				if entry.IsDir() && fileExists(filepath.Join(cmdDir, entry.Name(), "main.go")) {
					return "cmd/" + entry.Name() + "/main.go"
				}
			}
		}
		if fileExists(filepath.Join(cmdDir, "main.go")) {
			return "cmd/main.go"
		}
	}
	for _, name := range []string{"app.go", "server.go"} {
		if fileExists(filepath.Join(dir, name)) {
			return name
		}
	}
	return ""
}

func detectGoTestDir(dir string) string {
	// Go tests live beside the code; only dedicated directories count here.
	for _, d := range []string{"test", "tests", "testing", "e2e", "integration"} {
		if isDir(filepath.Join(dir, d)) {
			return d
		}
	}
	return ""
}

func detectGoWorkspace(dir string) (bool, []string) {
	data, err := os.ReadFile(filepath.Join(dir, "go.work"))
	if err != nil {
		return false, nil
	}
	f, err := modfile.ParseWork("go.work", data, nil)
	if err != nil {
		return false, nil
	}
	modules := make([]string, 0, len(f.Use))
	for _, use := range f.Use {
		modules = append(modules, use.Path)
	}
	return true, modules
}

func detectGoTestFramework(deps []model.Dependency) string {
	for _, needle := range []string{"testify", "ginkgo", "gomega", "gocheck"} {
		for _, dep := range deps {
			if strings.Contains(strings.ToLower(dep.Name), needle) {
				return needle
			}
		}
	}
	return "testing"
}
