// File: internal/detect/java.go
// Brief: Java and Kotlin detection over Maven, Gradle, and Ant builds.

package detect

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/example/autopipe/internal/model"
)

// JavaDetector recognizes JVM projects built with Maven, Gradle, or Ant.
// Kotlin builds share the same build tools, so the detector distinguishes the
// language from source extensions and build-script dialects rather than from
// a separate manifest.
type JavaDetector struct {
	policy ScanPolicy
}

func NewJavaDetector(policy ScanPolicy) *JavaDetector {
	return &JavaDetector{policy: policy}
}

func (d *JavaDetector) Name() string { return "java" }

const (
	defaultJavaVersion    = "21"
	defaultKotlinVersion  = "2.0"
	defaultAntJavaVersion = "11"
	maxPomDependencies    = 50
)

func (d *JavaDetector) Detect(dir string) (*model.DetectedStack, error) {
	switch {
	case fileExists(filepath.Join(dir, "pom.xml")):
		return d.analyzeMaven(dir), nil
	case fileExists(filepath.Join(dir, "build.gradle.kts")) || fileExists(filepath.Join(dir, "build.gradle")):
		return d.analyzeGradle(dir), nil
	case fileExists(filepath.Join(dir, "build.xml")):
		return d.analyzeAnt(dir), nil
	}
	return nil, nil
}

func (d *JavaDetector) DetectAll(root string) ([]*model.DetectedStack, error) {
	return searchProjects(root, d.policy, d.Detect)
}

// pomFile is the slice of the POM schema the detector cares about. Field names
// carry no namespace so the decoder matches by local name and tolerates both
// namespaced and bare POMs.
type pomFile struct {
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Packaging  string `xml:"packaging"`
	Parent     struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	} `xml:"parent"`
	Properties struct {
		Entries []pomProperty `xml:",any"`
	} `xml:"properties"`
	Modules struct {
		Module []string `xml:"module"`
	} `xml:"modules"`
	Dependencies struct {
		Dependency []pomDependency `xml:"dependency"`
	} `xml:"dependencies"`
	Build struct {
		SourceDirectory string `xml:"sourceDirectory"`
	} `xml:"build"`
}

type pomProperty struct {
	XMLName xml.Name
	Value   string `xml:",chardata"`
}

type pomDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
}

func (d *JavaDetector) analyzeMaven(dir string) *model.DetectedStack {
	data, err := os.ReadFile(filepath.Join(dir, "pom.xml"))
	if err != nil {
		return jvmFallbackStack(dir, model.BuildMaven)
	}
	var pom pomFile
	if err := xml.Unmarshal(data, &pom); err != nil {
		return jvmFallbackStack(dir, model.BuildMaven)
	}

	props := make(map[string]string, len(pom.Properties.Entries))
	for _, p := range pom.Properties.Entries {
		props[p.XMLName.Local] = strings.TrimSpace(p.Value)
	}

	javaVersion := defaultJavaVersion
	for _, key := range []string{"java.version", "maven.compiler.release", "maven.compiler.source", "maven.compiler.target"} {
		if v, ok := props[key]; ok && v != "" {
			javaVersion = normalizeJavaVersion(v)
			break
		}
	}

	kotlinVersion := ""
	for _, key := range []string{"kotlin.version", "kotlinVersion"} {
		if v, ok := props[key]; ok && v != "" {
			kotlinVersion = v
			break
		}
	}

	var deps []model.Dependency
	for i, dep := range pom.Dependencies.Dependency {
		if i >= maxPomDependencies {
			break
		}
		name := dep.ArtifactID
		if dep.GroupID != "" {
			name = dep.GroupID + ":" + dep.ArtifactID
		}
		version := dep.Version
		if version == "" {
			version = "latest"
		}
		isDev := dep.Scope == "test" || dep.Scope == "provided"
		deps = append(deps, model.Dependency{Name: name, Version: version, IsDev: isDev})
	}

	framework := model.FrameworkNone
	if strings.Contains(pom.Parent.ArtifactID, "spring-boot") {
		framework = model.FrameworkSpringBoot
	} else {
		framework = jvmFrameworkFromContent(strings.ToLower(string(data)))
	}

	lang := model.LangJava
	if kotlinVersion != "" || isKotlinProject(dir) {
		lang = model.LangKotlin
	}

	sourceDir := pom.Build.SourceDirectory
	if sourceDir == "" {
		sourceDir = jvmSourceDir(dir, lang)
	}

	isMultiModule := len(pom.Modules.Module) > 0 || pom.Packaging == "pom"

	stack := model.NewStack(lang)
	stack.Framework = framework
	stack.BuildTool = model.BuildMaven
	stack.LanguageVersion = javaVersion
	stack.JavaVersion = javaVersion
	stack.KotlinVersion = kotlinVersion
	stack.ConfigFile = "pom.xml"
	stack.SourceDir = sourceDir
	stack.TestDir = jvmTestDir(dir)
	stack.BuildOutputDir = "target"
	stack.Dependencies = deps
	stack.IsMultiModule = isMultiModule
	stack.Modules = pom.Modules.Module
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = jvmHasTests(dir, deps)
	stack.TestFramework = jvmTestFramework(deps, strings.ToLower(string(data)))
	return stack
}

var (
	gradleJavaCompatRe  = regexp.MustCompile(`(?:sourceCompatibility|targetCompatibility)\s*=?\s*['"]?(?:JavaVersion\.VERSION_)?(\d+(?:\.\d+)?)['"]?`)
	gradleJavaVersionRe = regexp.MustCompile(`JavaVersion\.VERSION_(\d+)`)
	gradleJvmTargetRe   = regexp.MustCompile(`jvmTarget\s*=?\s*['"]?(\d+(?:\.\d+)?)['"]?`)
	gradleLangVersionRe = regexp.MustCompile(`languageVersion\s*(?:=|\.set\()?\s*JavaLanguageVersion\.of\((\d+)\)`)
	gradleKotlinVerRe   = regexp.MustCompile(`kotlin[^\n]*['"](\d+\.\d+(?:\.\d+)?)['"]`)
	gradleIncludeRe     = regexp.MustCompile(`include\s*\(?['"]?:?([^'")\s,]+)['"]?\)?`)
	gradleDepRe         = regexp.MustCompile(`(?m)^\s*(implementation|api|compileOnly|runtimeOnly|testImplementation|testRuntimeOnly)\s*[\(]?['"]([^'":]+:[^'":]+)(?::([^'"]+))?['"]`)
)

func (d *JavaDetector) analyzeGradle(dir string) *model.DetectedStack {
	configFile := "build.gradle"
	if fileExists(filepath.Join(dir, "build.gradle.kts")) {
		configFile = "build.gradle.kts"
	}
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		return jvmFallbackStack(dir, model.BuildGradle)
	}
	content := string(data)
	lower := strings.ToLower(content)

	javaVersion := defaultJavaVersion
	if m := gradleLangVersionRe.FindStringSubmatch(content); m != nil {
		javaVersion = m[1]
	} else if m := gradleJavaVersionRe.FindStringSubmatch(content); m != nil {
		javaVersion = m[1]
	} else if m := gradleJavaCompatRe.FindStringSubmatch(content); m != nil {
		javaVersion = normalizeJavaVersion(m[1])
	} else if m := gradleJvmTargetRe.FindStringSubmatch(content); m != nil {
		javaVersion = normalizeJavaVersion(m[1])
	}

	kotlinVersion := ""
	if strings.Contains(lower, "kotlin") {
		if m := gradleKotlinVerRe.FindStringSubmatch(content); m != nil {
			kotlinVersion = m[1]
		} else {
			kotlinVersion = defaultKotlinVersion
		}
	}

	lang := model.LangJava
	if configFile == "build.gradle.kts" && strings.Contains(lower, "kotlin(") {
		lang = model.LangKotlin
	} else if kotlinVersion != "" && isKotlinProject(dir) {
		lang = model.LangKotlin
	}

	var deps []model.Dependency
	for _, m := range gradleDepRe.FindAllStringSubmatch(content, -1) {
		version := m[3]
		if version == "" {
			version = "latest"
		}
		isDev := strings.HasPrefix(m[1], "test")
		deps = append(deps, model.Dependency{Name: m[2], Version: version, IsDev: isDev})
	}

	modules := gradleModules(dir)

	stack := model.NewStack(lang)
	stack.Framework = jvmFrameworkFromContent(lower)
	stack.BuildTool = model.BuildGradle
	stack.LanguageVersion = javaVersion
	stack.JavaVersion = javaVersion
	stack.KotlinVersion = kotlinVersion
	stack.ConfigFile = configFile
	stack.SourceDir = jvmSourceDir(dir, lang)
	stack.TestDir = jvmTestDir(dir)
	stack.BuildOutputDir = "build"
	stack.Dependencies = deps
	stack.IsMultiModule = len(modules) > 0
	stack.Modules = modules
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = jvmHasTests(dir, deps)
	stack.TestFramework = jvmTestFramework(deps, lower)
	if fileExists(filepath.Join(dir, "gradle.lockfile")) {
		stack.PackageManagerLock = "gradle.lockfile"
	}
	return stack
}

// gradleModules reads the settings script for include() declarations.
func gradleModules(dir string) []string {
	var data []byte
	for _, name := range []string{"settings.gradle.kts", "settings.gradle"} {
		if b, err := os.ReadFile(filepath.Join(dir, name)); err == nil {
			data = b
			break
		}
	}
	if data == nil {
		return nil
	}
	var modules []string
	seen := make(map[string]struct{})
	for _, m := range gradleIncludeRe.FindAllStringSubmatch(string(data), -1) {
		name := strings.ReplaceAll(m[1], ":", "/")
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		modules = append(modules, name)
	}
	return modules
}

var (
	antJavacRe    = regexp.MustCompile(`<javac[^>]*\b(?:target|source)\s*=\s*["'](\d+(?:\.\d+)?)["']`)
	antPropertyRe = regexp.MustCompile(`<property[^>]*\bname\s*=\s*["'](?:java\.target|javac\.target|ant\.build\.javac\.target)["'][^>]*\bvalue\s*=\s*["'](\d+(?:\.\d+)?)["']`)
)

func (d *JavaDetector) analyzeAnt(dir string) *model.DetectedStack {
	data, err := os.ReadFile(filepath.Join(dir, "build.xml"))
	if err != nil {
		return jvmFallbackStack(dir, model.BuildAnt)
	}
	content := string(data)

	javaVersion := defaultAntJavaVersion
	if m := antJavacRe.FindStringSubmatch(content); m != nil {
		javaVersion = normalizeJavaVersion(m[1])
	} else if m := antPropertyRe.FindStringSubmatch(content); m != nil {
		javaVersion = normalizeJavaVersion(m[1])
	}

	framework := model.FrameworkNone
	if strings.Contains(strings.ToLower(content), "spring") {
		framework = model.FrameworkSpringBoot
	}

	sourceDir := "src"
	if !isDir(filepath.Join(dir, "src")) {
		sourceDir = ""
	}

	stack := model.NewStack(model.LangJava)
	stack.Framework = framework
	stack.BuildTool = model.BuildAnt
	stack.LanguageVersion = javaVersion
	stack.JavaVersion = javaVersion
	stack.ConfigFile = "build.xml"
	stack.SourceDir = sourceDir
	stack.TestDir = jvmTestDir(dir)
	stack.BuildOutputDir = "build"
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = jvmTestDir(dir) != ""
	return stack
}

func jvmFallbackStack(dir string, tool model.BuildTool) *model.DetectedStack {
	lang := model.LangJava
	if isKotlinProject(dir) {
		lang = model.LangKotlin
	}
	version := defaultJavaVersion
	if tool == model.BuildAnt {
		version = defaultAntJavaVersion
	}
	stack := model.NewStack(lang)
	stack.BuildTool = tool
	stack.LanguageVersion = version
	stack.JavaVersion = version
	return stack
}

// normalizeJavaVersion strips the legacy "1." prefix: 1.8 means Java 8.
func normalizeJavaVersion(v string) string {
	return strings.TrimPrefix(v, "1.")
}

func jvmFrameworkFromContent(lower string) model.Framework {
	switch {
	case strings.Contains(lower, "spring-boot") || strings.Contains(lower, "springframework.boot"):
		return model.FrameworkSpringBoot
	case strings.Contains(lower, "quarkus"):
		return model.FrameworkQuarkus
	case strings.Contains(lower, "micronaut"):
		return model.FrameworkMicronaut
	case strings.Contains(lower, "ktor"):
		return model.FrameworkKtor
	}
	return model.FrameworkNone
}

// isKotlinProject samples a handful of source files rather than walking the
// whole tree. A project counts as Kotlin when .kt files are at least as
// common as .java files, or a Kotlin build script exists.
func isKotlinProject(dir string) bool {
	if isDir(filepath.Join(dir, "src", "main", "kotlin")) {
		return true
	}
	if fileExists(filepath.Join(dir, "build.gradle.kts")) {
		ktFiles := globLimited(dir, "*.kt", 10)
		javaFiles := globLimited(dir, "*.java", 10)
		return len(ktFiles) >= len(javaFiles)
	}
	ktFiles := globLimited(dir, "*.kt", 10)
	if len(ktFiles) == 0 {
		return false
	}
	javaFiles := globLimited(dir, "*.java", 10)
	return len(ktFiles) >= len(javaFiles)
}

func jvmSourceDir(dir string, lang model.Language) string {
	if lang == model.LangKotlin && isDir(filepath.Join(dir, "src", "main", "kotlin")) {
		return "src/main/kotlin"
	}
	if isDir(filepath.Join(dir, "src", "main", "java")) {
		return "src/main/java"
	}
	return detectSourceDir(dir)
}

func jvmTestDir(dir string) string {
	if isDir(filepath.Join(dir, "src", "test")) {
		return "src/test"
	}
	return detectTestDir(dir)
}

func jvmHasTests(dir string, deps []model.Dependency) bool {
	if isDir(filepath.Join(dir, "src", "test")) {
		return true
	}
	for _, dep := range deps {
		lower := strings.ToLower(dep.Name)
		if strings.Contains(lower, "junit") || strings.Contains(lower, "testng") || strings.Contains(lower, "mockito") {
			return true
		}
	}
	return false
}

func jvmTestFramework(deps []model.Dependency, lowerContent string) string {
	names := strings.Builder{}
	for _, dep := range deps {
		names.WriteString(strings.ToLower(dep.Name))
		names.WriteString(" ")
	}
	haystack := names.String() + lowerContent
	switch {
	case strings.Contains(haystack, "junit-jupiter") || strings.Contains(haystack, "junit5"):
		return "junit5"
	case strings.Contains(haystack, "kotest"):
		return "kotest"
	case strings.Contains(haystack, "spock"):
		return "spock"
	case strings.Contains(haystack, "testng"):
		return "testng"
	case strings.Contains(haystack, "junit"):
		return "junit4"
	}
	return ""
}
