// File: internal/model/model.go
// Brief: Core data model shared by detectors, the analyzer, and the resolver.

// Package model defines the normalized stack description that every detector
// emits and the resolution engine consumes. Ecosystem-specific manifest shapes
// never leak past the detector boundary; by the time a stack reaches the
// resolver it is one of these closed types.
package model

import "path/filepath"

// Language identifies the primary implementation language of a detected project.
type Language string

const (
	LangJava       Language = "java"
	LangKotlin     Language = "kotlin"
	LangPython     Language = "python"
	LangNodeJS     Language = "nodejs"
	LangTypeScript Language = "typescript"
	LangGo         Language = "go"
	LangDotNet     Language = "dotnet"
	LangPHP        Language = "php"
	LangUnknown    Language = "unknown"
)

// Framework identifies the application framework, scoped to the language ecosystem.
type Framework string

const (
	// Java / Kotlin
	FrameworkSpringBoot Framework = "spring_boot"
	FrameworkQuarkus    Framework = "quarkus"
	FrameworkMicronaut  Framework = "micronaut"
	FrameworkKtor       Framework = "ktor"
	// Python
	FrameworkDjango  Framework = "django"
	FrameworkFastAPI Framework = "fastapi"
	FrameworkFlask   Framework = "flask"
	FrameworkAIOHTTP Framework = "aiohttp"
	// Node.js / TypeScript
	FrameworkReact   Framework = "react"
	FrameworkNextJS  Framework = "nextjs"
	FrameworkNestJS  Framework = "nestjs"
	FrameworkExpress Framework = "express"
	FrameworkVue     Framework = "vue"
	FrameworkNuxt    Framework = "nuxt"
	FrameworkAngular Framework = "angular"
	// PHP
	FrameworkLaravel     Framework = "laravel"
	FrameworkSymfony     Framework = "symfony"
	FrameworkYii         Framework = "yii"
	FrameworkCodeIgniter Framework = "codeigniter"
	// .NET
	FrameworkASPNetCore Framework = "aspnet_core"
	FrameworkBlazor     Framework = "blazor"
	// Go
	FrameworkGin   Framework = "gin"
	FrameworkEcho  Framework = "echo"
	FrameworkFiber Framework = "fiber"

	FrameworkNone Framework = "none"
)

// BuildTool identifies the build or package-management tool driving the project.
type BuildTool string

const (
	BuildMaven     BuildTool = "maven"
	BuildGradle    BuildTool = "gradle"
	BuildAnt       BuildTool = "ant"
	BuildNPM       BuildTool = "npm"
	BuildYarn      BuildTool = "yarn"
	BuildPNPM      BuildTool = "pnpm"
	BuildPoetry    BuildTool = "poetry"
	BuildPip       BuildTool = "pip"
	BuildPipenv    BuildTool = "pipenv"
	BuildConda     BuildTool = "conda"
	BuildUV        BuildTool = "uv"
	BuildGoMod     BuildTool = "go_mod"
	BuildDotNetCLI BuildTool = "dotnet_cli"
	BuildComposer  BuildTool = "composer"
	BuildNone      BuildTool = "none"
)

// Dependency is one declared dependency of a detected project. Names are not
// unique: the same package may appear once as a runtime and once as a dev
// dependency.
type Dependency struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	IsDev   bool   `json:"is_dev"`
}

// DetectedStack is one candidate technology identification for one directory.
// A detector creates it immutably for a single directory; the recursive search
// may set ProjectRoot exactly once afterward, and nothing mutates it again.
type DetectedStack struct {
	Language        Language     `json:"language"`
	Framework       Framework    `json:"framework"`
	BuildTool       BuildTool    `json:"build_tool"`
	LanguageVersion string       `json:"language_version"`
	Dependencies    []Dependency `json:"dependencies,omitempty"`

	// Ecosystem-specific version hints.
	JavaVersion   string `json:"java_version,omitempty"`
	KotlinVersion string `json:"kotlin_version,omitempty"`
	DotNetVersion string `json:"dotnet_framework_version,omitempty"`
	NodeVersion   string `json:"node_version,omitempty"`
	PythonVersion string `json:"python_version,omitempty"`
	GoVersion     string `json:"go_version,omitempty"`
	PHPVersion    string `json:"php_version,omitempty"`

	// Structure hints for non-standard layouts. ProjectRoot is relative to the
	// repository root; empty means the repository root itself.
	ProjectRoot    string `json:"project_root,omitempty"`
	SourceDir      string `json:"source_dir,omitempty"`
	ConfigFile     string `json:"config_file,omitempty"`
	Entrypoint     string `json:"entrypoint,omitempty"`
	TestDir        string `json:"test_dir,omitempty"`
	BuildOutputDir string `json:"build_output_dir,omitempty"`

	// Multi-module support.
	IsMultiModule bool     `json:"is_multi_module"`
	ParentProject string   `json:"parent_project,omitempty"`
	Modules       []string `json:"modules,omitempty"`

	// Maturity signals.
	HasDockerfile      bool   `json:"has_dockerfile"`
	HasTests           bool   `json:"has_tests"`
	TestFramework      string `json:"test_framework,omitempty"`
	PackageManagerLock string `json:"package_manager_lock,omitempty"`
}

// NewStack returns a DetectedStack with the model defaults applied.
func NewStack(lang Language) *DetectedStack {
	return &DetectedStack{
		Language:        lang,
		Framework:       FrameworkNone,
		BuildTool:       BuildNone,
		LanguageVersion: "latest",
	}
}

// DedupKey is the identity used by the recursive walker to drop duplicate
// findings. Two stacks are duplicates iff language and project root match.
// The resolver never dedups; it scores the caller's list verbatim.
func (s *DetectedStack) DedupKey() string {
	return string(s.Language) + "|" + s.ProjectRoot
}

// ProjectMetadata is the human-facing name and version recovered from the
// winning stack's manifests. Derived, never detected.
type ProjectMetadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
}

// DefaultVersion is used whenever no manifest yields a version.
const DefaultVersion = "0.1.0"

// ProjectContext is the resolution engine's output: the winning stack plus
// enough surrounding information for downstream consumers. Immutable after
// creation, except that a caller may override Metadata.Name as an explicit
// escape hatch for CLI-supplied naming.
type ProjectContext struct {
	Metadata ProjectMetadata `json:"metadata"`
	Stack    *DetectedStack  `json:"stack"`
	RootPath string          `json:"root_path"`

	// IsMonorepo is true when more than one stack was detected. In that case
	// DetectedProjects holds the caller's full candidate list in its original
	// order; otherwise it is empty.
	IsMonorepo       bool             `json:"is_monorepo"`
	DetectedProjects []*DetectedStack `json:"detected_projects,omitempty"`
}

// ProjectPath returns the stack's root joined onto the repository root, or the
// repository root itself when the stack sits at the top level.
func (s *DetectedStack) ProjectPath(rootPath string) string {
	if s.ProjectRoot == "" {
		return rootPath
	}
	return filepath.Join(rootPath, s.ProjectRoot)
}
