// File: internal/detect/dotnet.go
// Brief: .NET detection over csproj project files and sln solutions.

package detect

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/example/autopipe/internal/model"
)

// DotNetDetector recognizes .NET projects from csproj files, falling back to
// solution files when a directory holds only a .sln.
type DotNetDetector struct {
	policy ScanPolicy
}

func NewDotNetDetector(policy ScanPolicy) *DotNetDetector {
	return &DotNetDetector{policy: policy}
}

func (d *DotNetDetector) Name() string { return "dotnet" }

const defaultDotNetVersion = "8.0"

// csprojFile is the slice of the MSBuild project schema the detector reads.
type csprojFile struct {
	Sdk            string `xml:"Sdk,attr"`
	PropertyGroups []struct {
		TargetFramework  string `xml:"TargetFramework"`
		TargetFrameworks string `xml:"TargetFrameworks"`
		OutputType       string `xml:"OutputType"`
		RootNamespace    string `xml:"RootNamespace"`
	} `xml:"PropertyGroup"`
	ItemGroups []struct {
		PackageReferences []struct {
			Include     string `xml:"Include,attr"`
			VersionAttr string `xml:"Version,attr"`
			VersionElem string `xml:"Version"`
		} `xml:"PackageReference"`
	} `xml:"ItemGroup"`
}

var (
	tfmRe      = regexp.MustCompile(`^net(\d+)\.(\d+)$`)
	coreTfmRe  = regexp.MustCompile(`^netcoreapp(\d+)\.(\d+)$`)
	stdTfmRe   = regexp.MustCompile(`^netstandard(\d+)\.(\d+)$`)
	slnProjRe  = regexp.MustCompile(`Project\([^)]*\)\s*=\s*"[^"]*",\s*"([^"]+\.csproj)"`)
	legacyNetRe = regexp.MustCompile(`^net(\d)(\d+)$`)
)

func (d *DotNetDetector) Detect(dir string) (*model.DetectedStack, error) {
	csprojs, _ := filepath.Glob(filepath.Join(dir, "*.csproj"))
	if len(csprojs) > 0 {
		sort.Strings(csprojs)
		return d.analyzeCsproj(csprojs[0], dir), nil
	}
	slns, _ := filepath.Glob(filepath.Join(dir, "*.sln"))
	if len(slns) > 0 {
		sort.Strings(slns)
		return d.analyzeSolution(slns[0], dir), nil
	}
	return nil, nil
}

func (d *DotNetDetector) DetectAll(root string) ([]*model.DetectedStack, error) {
	return searchProjects(root, d.policy, d.Detect)
}

func (d *DotNetDetector) analyzeCsproj(path, dir string) *model.DetectedStack {
	data, err := os.ReadFile(path)
	if err != nil {
		return dotnetFallbackStack(path)
	}
	var proj csprojFile
	if err := xml.Unmarshal(data, &proj); err != nil {
		return dotnetFallbackStack(path)
	}

	tfm := ""
	for _, pg := range proj.PropertyGroups {
		if pg.TargetFramework != "" {
			tfm = pg.TargetFramework
			break
		}
		if pg.TargetFrameworks != "" {
			tfm = strings.SplitN(pg.TargetFrameworks, ";", 2)[0]
			break
		}
	}
	version := parseTargetFramework(tfm)

	var deps []model.Dependency
	for _, ig := range proj.ItemGroups {
		for _, ref := range ig.PackageReferences {
			if ref.Include == "" {
				continue
			}
			v := ref.VersionAttr
			if v == "" {
				v = strings.TrimSpace(ref.VersionElem)
			}
			if v == "" {
				v = "latest"
			}
			deps = append(deps, model.Dependency{Name: ref.Include, Version: v, IsDev: isDotNetDevPackage(ref.Include)})
		}
	}

	framework := detectDotNetFramework(proj, deps, dir)

	stack := model.NewStack(model.LangDotNet)
	stack.Framework = framework
	stack.BuildTool = model.BuildDotNetCLI
	stack.LanguageVersion = version
	stack.DotNetVersion = version
	stack.ConfigFile = filepath.Base(path)
	stack.SourceDir = detectSourceDir(dir)
	stack.TestDir = detectTestDir(dir)
	stack.Entrypoint = dotnetEntrypoint(dir)
	stack.BuildOutputDir = "bin/Release"
	stack.Dependencies = deps
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = dotnetHasTests(dir, deps)
	stack.TestFramework = detectDotNetTestFramework(deps)
	if fileExists(filepath.Join(dir, "packages.lock.json")) {
		stack.PackageManagerLock = "packages.lock.json"
	}
	return stack
}

// analyzeSolution picks the main project from a solution. Projects whose name
// suggests tests are skipped; the first remaining project wins.
func (d *DotNetDetector) analyzeSolution(path, dir string) *model.DetectedStack {
	data, err := os.ReadFile(path)
	if err != nil {
		return dotnetFallbackStack(path)
	}

	var projects []string
	for _, m := range slnProjRe.FindAllStringSubmatch(string(data), -1) {
		projects = append(projects, strings.ReplaceAll(m[1], `\`, "/"))
	}
	for _, rel := range projects {
		lower := strings.ToLower(rel)
		if strings.Contains(lower, "test") || strings.Contains(lower, "spec") {
			continue
		}
		projPath := filepath.Join(dir, filepath.FromSlash(rel))
		if !fileExists(projPath) {
			continue
		}
		stack := d.analyzeCsproj(projPath, filepath.Dir(projPath))
		stack.ConfigFile = filepath.Base(path)
		stack.IsMultiModule = len(projects) > 1
		if stack.IsMultiModule {
			for _, p := range projects {
				stack.Modules = append(stack.Modules, strings.TrimSuffix(filepath.Base(p), ".csproj"))
			}
		}
		stack.HasDockerfile = hasDockerfile(dir)
		return stack
	}

	return dotnetFallbackStack(path)
}

func dotnetFallbackStack(path string) *model.DetectedStack {
	stack := model.NewStack(model.LangDotNet)
	stack.BuildTool = model.BuildDotNetCLI
	stack.LanguageVersion = defaultDotNetVersion
	stack.DotNetVersion = defaultDotNetVersion
	stack.ConfigFile = filepath.Base(path)
	stack.BuildOutputDir = "bin/Release"
	return stack
}

// parseTargetFramework maps a TFM to the runtime version: net8.0 and
// netcoreapp3.1 carry their own number, netstandard and legacy net4x map to
// the current default.
func parseTargetFramework(tfm string) string {
	tfm = strings.ToLower(strings.TrimSpace(tfm))
	if m := tfmRe.FindStringSubmatch(tfm); m != nil {
		return m[1] + "." + m[2]
	}
	if m := coreTfmRe.FindStringSubmatch(tfm); m != nil {
		return m[1] + "." + m[2]
	}
	if stdTfmRe.MatchString(tfm) || legacyNetRe.MatchString(tfm) {
		return defaultDotNetVersion
	}
	return defaultDotNetVersion
}

func detectDotNetFramework(proj csprojFile, deps []model.Dependency, dir string) model.Framework {
	sdk := strings.ToLower(proj.Sdk)
	hasDep := func(prefix string) bool {
		for _, dep := range deps {
			if strings.HasPrefix(strings.ToLower(dep.Name), prefix) {
				return true
			}
		}
		return false
	}
	switch {
	case hasDep("microsoft.aspnetcore.components.webassembly"):
		return model.FrameworkBlazor
	case strings.Contains(sdk, "blazorwebassembly"):
		return model.FrameworkBlazor
	case strings.Contains(sdk, "web"):
		return model.FrameworkASPNetCore
	case hasDep("microsoft.aspnetcore"):
		return model.FrameworkASPNetCore
	case fileExists(filepath.Join(dir, "Program.cs")) && fileExists(filepath.Join(dir, "appsettings.json")):
		return model.FrameworkASPNetCore
	}
	return model.FrameworkNone
}

// isDotNetDevPackage flags tooling packages that never ship with the app.
func isDotNetDevPackage(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"test", "mock", "analyzer", "coverlet"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func dotnetEntrypoint(dir string) string {
	for _, name := range []string{"Program.cs", "Startup.cs", "Main.cs"} {
		if fileExists(filepath.Join(dir, name)) {
			return name
		}
	}
	return ""
}

func dotnetHasTests(dir string, deps []model.Dependency) bool {
	if detectTestDir(dir) != "" {
		return true
	}
	return detectDotNetTestFramework(deps) != ""
}

func detectDotNetTestFramework(deps []model.Dependency) string {
	hasDep := func(name string) bool {
		for _, dep := range deps {
			if strings.EqualFold(dep.Name, name) || strings.HasPrefix(strings.ToLower(dep.Name), strings.ToLower(name)) {
				return true
			}
		}
		return false
	}
	switch {
	case hasDep("xunit"):
		return "xunit"
	case hasDep("nunit"):
		return "nunit"
	case hasDep("mstest"):
		return "mstest"
	}
	return ""
}
