// File: internal/detect/python.go
// Brief: Python detection across pyproject, Pipfile, conda, requirements, setup.py.

package detect

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/example/autopipe/internal/model"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// PythonDetector recognizes Python projects across the packaging landscape:
// pyproject.toml (Poetry, PEP 621, Flit, PDM, Hatch, uv), Pipfile, conda
// environment files, requirements files, and setup.py/setup.cfg.
type PythonDetector struct {
	policy ScanPolicy
}

func NewPythonDetector(policy ScanPolicy) *PythonDetector {
	return &PythonDetector{policy: policy}
}

func (d *PythonDetector) Name() string { return "python" }

const defaultPythonVersion = "3.12"

var pythonEntrypointPatterns = []string{
	"main.py", "app.py", "run.py", "server.py", "wsgi.py", "asgi.py",
	"manage.py", "application.py", "__main__.py",
}

func (d *PythonDetector) Detect(dir string) (*model.DetectedStack, error) {
	switch {
	case fileExists(filepath.Join(dir, "pyproject.toml")):
		return d.analyzePyproject(dir), nil
	case fileExists(filepath.Join(dir, "Pipfile")):
		return d.analyzePipfile(dir), nil
	case fileExists(filepath.Join(dir, "environment.yml")):
		return d.analyzeConda(filepath.Join(dir, "environment.yml"), dir), nil
	case fileExists(filepath.Join(dir, "environment.yaml")):
		return d.analyzeConda(filepath.Join(dir, "environment.yaml"), dir), nil
	}
	if reqs := findRequirementsFiles(dir); len(reqs) > 0 {
		return d.analyzeRequirements(reqs[0], dir), nil
	}
	if fileExists(filepath.Join(dir, "setup.py")) || fileExists(filepath.Join(dir, "setup.cfg")) {
		return d.analyzeSetup(dir), nil
	}
	return nil, nil
}

func (d *PythonDetector) DetectAll(root string) ([]*model.DetectedStack, error) {
	return searchProjects(root, d.policy, d.Detect)
}

// findRequirementsFiles lists requirements files in priority order: the plain
// requirements.txt first, then prod/base variants, then the rest, dev/test
// variants last.
func findRequirementsFiles(dir string) []string {
	patterns := []string{
		"requirements.txt",
		"requirements/*.txt",
		"requirements-*.txt",
		"requirements_*.txt",
		"reqs.txt",
		"deps.txt",
		"dependencies.txt",
	}
	var found []string
	for _, pattern := range patterns {
		matches, _ := filepath.Glob(filepath.Join(dir, pattern))
		found = append(found, matches...)
	}
	rank := func(path string) int {
		name := strings.ToLower(filepath.Base(path))
		switch {
		case name == "requirements.txt":
			return 0
		case strings.Contains(name, "prod") || strings.Contains(name, "base"):
			return 1
		case strings.Contains(name, "dev") || strings.Contains(name, "test"):
			return 3
		default:
			return 2
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return rank(found[i]) < rank(found[j]) })
	return found
}

// analyzePyproject decodes into loosely typed tables because the tool section
// is an open namespace.
func (d *PythonDetector) analyzePyproject(dir string) *model.DetectedStack {
	data, err := os.ReadFile(filepath.Join(dir, "pyproject.toml"))
	if err != nil {
		return pythonFallbackStack(model.BuildPip)
	}
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return pythonFallbackStack(model.BuildPip)
	}

	buildTool, deps := pyprojectBuildTool(raw, dir)
	framework := detectPythonFramework(deps)
	pythonVersion := pyprojectPythonVersion(raw)
	testFramework := detectPythonTestFramework(deps)
	testDir := detectTestDir(dir)

	stack := model.NewStack(model.LangPython)
	stack.Framework = framework
	stack.BuildTool = buildTool
	stack.LanguageVersion = pythonVersion
	stack.PythonVersion = pythonVersion
	stack.ConfigFile = "pyproject.toml"
	stack.SourceDir = pyprojectSourceDir(raw, dir)
	stack.TestDir = testDir
	stack.Entrypoint = pyprojectEntrypoint(raw, dir)
	stack.Dependencies = deps
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = testDir != "" || testFramework != ""
	stack.TestFramework = testFramework
	stack.PackageManagerLock = detectPythonLockFile(dir, buildTool)
	return stack
}

func pythonFallbackStack(tool model.BuildTool) *model.DetectedStack {
	stack := model.NewStack(model.LangPython)
	stack.BuildTool = tool
	stack.LanguageVersion = "3.11"
	stack.PythonVersion = "3.11"
	return stack
}

// tomlTable walks nested map keys; returns nil when any level is missing.
func tomlTable(raw map[string]any, keys ...string) map[string]any {
	current := raw
	for _, key := range keys {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

func pyprojectBuildTool(raw map[string]any, dir string) (model.BuildTool, []model.Dependency) {
	if poetry := tomlTable(raw, "tool", "poetry"); poetry != nil {
		deps, _ := poetry["dependencies"].(map[string]any)
		devDeps := tomlTable(raw, "tool", "poetry", "group", "dev")
		var dev map[string]any
		if devDeps != nil {
			dev, _ = devDeps["dependencies"].(map[string]any)
		}
		if dev == nil {
			dev, _ = poetry["dev-dependencies"].(map[string]any)
		}
		all := append(parsePoetryDeps(deps, false), parsePoetryDeps(dev, true)...)
		return model.BuildPoetry, all
	}

	projectDeps := func() []model.Dependency {
		project := tomlTable(raw, "project")
		if project == nil {
			return nil
		}
		list, _ := project["dependencies"].([]any)
		return parsePEP621Deps(list, false)
	}

	// PDM, Hatch, and Flit all declare deps in PEP 621 form and install with
	// pip-compatible tooling.
	for _, tool := range []string{"pdm", "hatch", "flit"} {
		if tomlTable(raw, "tool", tool) != nil {
			return model.BuildPip, projectDeps()
		}
	}

	if fileExists(filepath.Join(dir, "uv.lock")) {
		return model.BuildUV, projectDeps()
	}

	if project := tomlTable(raw, "project"); project != nil {
		deps := projectDeps()
		if optionals, ok := project["optional-dependencies"].(map[string]any); ok {
			for _, name := range sortedAnyKeys(optionals) {
				if group, ok := optionals[name].([]any); ok {
					deps = append(deps, parsePEP621Deps(group, true)...)
				}
			}
		}
		return model.BuildPip, deps
	}

	return model.BuildPip, nil
}

func sortedAnyKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func parsePoetryDeps(deps map[string]any, isDev bool) []model.Dependency {
	var result []model.Dependency
	for _, name := range sortedAnyKeys(deps) {
		if strings.EqualFold(name, "python") {
			continue
		}
		version := "latest"
		switch v := deps[name].(type) {
		case string:
			version = v
		case map[string]any:
			if s, ok := v["version"].(string); ok {
				version = s
			}
		}
		version = strings.NewReplacer("^", "", "~", "").Replace(version)
		result = append(result, model.Dependency{Name: name, Version: version, IsDev: isDev})
	}
	return result
}

var pep621DepRe = regexp.MustCompile(`^([a-zA-Z0-9_-]+)(.*)$`)

func parsePEP621Deps(deps []any, isDev bool) []model.Dependency {
	var result []model.Dependency
	for _, entry := range deps {
		spec, ok := entry.(string)
		if !ok {
			continue
		}
		m := pep621DepRe.FindStringSubmatch(spec)
		if m == nil {
			continue
		}
		version := strings.TrimSpace(m[2])
		if version == "" {
			version = "latest"
		}
		result = append(result, model.Dependency{Name: m[1], Version: version, IsDev: isDev})
	}
	return result
}

var pythonVersionRe = regexp.MustCompile(`(\d+\.\d+)`)

func pyprojectPythonVersion(raw map[string]any) string {
	detected := ""
	if poetryDeps := tomlTable(raw, "tool", "poetry"); poetryDeps != nil {
		if deps, ok := poetryDeps["dependencies"].(map[string]any); ok {
			if py, ok := deps["python"]; ok {
				if m := pythonVersionRe.FindStringSubmatch(toString(py)); m != nil {
					detected = m[1]
				}
			}
		}
	}
	if detected == "" {
		if project := tomlTable(raw, "project"); project != nil {
			if requires, ok := project["requires-python"].(string); ok {
				if m := pythonVersionRe.FindStringSubmatch(requires); m != nil {
					detected = m[1]
				}
			}
		}
	}
	if detected != "" {
		// Requirements older than 3.11 build fine on modern interpreters.
		parts := strings.SplitN(detected, ".", 2)
		if len(parts) == 2 {
			major, err1 := strconv.Atoi(parts[0])
			minor, err2 := strconv.Atoi(parts[1])
			if err1 == nil && err2 == nil {
				if major == 3 && minor < 11 {
					return defaultPythonVersion
				}
				return detected
			}
		}
	}
	return defaultPythonVersion
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func pyprojectEntrypoint(raw map[string]any, dir string) string {
	fromScripts := func(table map[string]any) string {
		if table == nil {
			return ""
		}
		for _, key := range sortedAnyKeys(table) {
			if target, ok := table[key].(string); ok && strings.Contains(target, ":") {
				module := strings.SplitN(target, ":", 2)[0]
				return strings.ReplaceAll(module, ".", "/") + ".py"
			}
		}
		return ""
	}
	if poetry := tomlTable(raw, "tool", "poetry"); poetry != nil {
		if scripts, ok := poetry["scripts"].(map[string]any); ok {
			if ep := fromScripts(scripts); ep != "" {
				return ep
			}
		}
	}
	if project := tomlTable(raw, "project"); project != nil {
		if scripts, ok := project["scripts"].(map[string]any); ok {
			if ep := fromScripts(scripts); ep != "" {
				return ep
			}
		}
	}
	return detectPythonEntrypoint(dir)
}

func detectPythonEntrypoint(dir string) string {
	for _, pattern := range pythonEntrypointPatterns {
		if fileExists(filepath.Join(dir, pattern)) {
			return pattern
		}
	}
	for _, sub := range []string{"src", "app", "lib", filepath.Base(dir)} {
		subPath := filepath.Join(dir, sub)
		if !isDir(subPath) {
			continue
		}
		for _, pattern := range pythonEntrypointPatterns {
			if fileExists(filepath.Join(subPath, pattern)) {
				return sub + "/" + pattern
			}
		}
		if fileExists(filepath.Join(subPath, "__main__.py")) {
			return sub + "/__main__.py"
		}
	}
	return ""
}

func pyprojectSourceDir(raw map[string]any, dir string) string {
	if find := tomlTable(raw, "tool", "setuptools", "packages", "find"); find != nil {
		if where, ok := find["where"].([]any); ok && len(where) > 0 {
			if first, ok := where[0].(string); ok && first != "." {
				return first
			}
		}
	}
	if poetry := tomlTable(raw, "tool", "poetry"); poetry != nil {
		if packages, ok := poetry["packages"].([]any); ok && len(packages) > 0 {
			if first, ok := packages[0].(map[string]any); ok {
				if from, ok := first["from"].(string); ok && from != "" {
					return from
				}
				if include, ok := first["include"].(string); ok && include != "" {
					return include
				}
			}
		}
	}
	return detectSourceDir(dir)
}

func detectPythonLockFile(dir string, tool model.BuildTool) string {
	expected := map[model.BuildTool]string{
		model.BuildPoetry: "poetry.lock",
		model.BuildPipenv: "Pipfile.lock",
		model.BuildUV:     "uv.lock",
		model.BuildPip:    "requirements.txt",
	}
	if lock, ok := expected[tool]; ok && fileExists(filepath.Join(dir, lock)) {
		return lock
	}
	for _, lock := range []string{"poetry.lock", "Pipfile.lock", "uv.lock", "pdm.lock"} {
		if fileExists(filepath.Join(dir, lock)) {
			return lock
		}
	}
	return ""
}

// pipfile is genuine TOML, so it gets a real parser rather than line scraping.
type pipfile struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
	Requires    struct {
		PythonVersion string `toml:"python_version"`
	} `toml:"requires"`
}

func (d *PythonDetector) analyzePipfile(dir string) *model.DetectedStack {
	data, err := os.ReadFile(filepath.Join(dir, "Pipfile"))
	if err != nil {
		return pythonFallbackStack(model.BuildPipenv)
	}
	var pf pipfile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return pythonFallbackStack(model.BuildPipenv)
	}

	deps := append(parsePoetryDeps(pf.Packages, false), parsePoetryDeps(pf.DevPackages, true)...)

	pythonVersion := "3.11"
	if m := pythonVersionRe.FindStringSubmatch(pf.Requires.PythonVersion); m != nil {
		pythonVersion = m[1]
	}

	testDir := detectTestDir(dir)

	stack := model.NewStack(model.LangPython)
	stack.Framework = detectPythonFramework(deps)
	stack.BuildTool = model.BuildPipenv
	stack.LanguageVersion = pythonVersion
	stack.PythonVersion = pythonVersion
	stack.ConfigFile = "Pipfile"
	stack.SourceDir = detectSourceDir(dir)
	stack.TestDir = testDir
	stack.Entrypoint = detectPythonEntrypoint(dir)
	stack.Dependencies = deps
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = testDir != ""
	stack.TestFramework = detectPythonTestFramework(deps)
	if fileExists(filepath.Join(dir, "Pipfile.lock")) {
		stack.PackageManagerLock = "Pipfile.lock"
	}
	return stack
}

// condaEnv entries are either "name=version" strings or a pip sub-map.
type condaEnv struct {
	Dependencies []any `yaml:"dependencies"`
}

var condaPythonRe = regexp.MustCompile(`python[=<>]*(\d+\.\d+)`)
var condaSplitRe = regexp.MustCompile(`[=<>]`)

func (d *PythonDetector) analyzeConda(path, dir string) *model.DetectedStack {
	data, err := os.ReadFile(path)
	if err != nil {
		return pythonFallbackStack(model.BuildConda)
	}
	var env condaEnv
	if err := yaml.Unmarshal(data, &env); err != nil {
		return pythonFallbackStack(model.BuildConda)
	}

	pythonVersion := "3.11"
	var deps []model.Dependency
	for _, entry := range env.Dependencies {
		spec, ok := entry.(string)
		if !ok {
			continue // pip: sub-lists and the like
		}
		if strings.HasPrefix(spec, "python") {
			if m := condaPythonRe.FindStringSubmatch(spec); m != nil {
				pythonVersion = m[1]
			}
			continue
		}
		parts := condaSplitRe.Split(spec, -1)
		name := parts[0]
		version := "latest"
		if len(parts) > 1 && parts[1] != "" {
			version = parts[1]
		}
		deps = append(deps, model.Dependency{Name: name, Version: version})
	}

	stack := model.NewStack(model.LangPython)
	stack.Framework = detectPythonFramework(deps)
	stack.BuildTool = model.BuildConda
	stack.LanguageVersion = pythonVersion
	stack.PythonVersion = pythonVersion
	stack.ConfigFile = filepath.Base(path)
	stack.SourceDir = detectSourceDir(dir)
	stack.TestDir = detectTestDir(dir)
	stack.Entrypoint = detectPythonEntrypoint(dir)
	stack.Dependencies = deps
	stack.HasDockerfile = hasDockerfile(dir)
	stack.PackageManagerLock = filepath.Base(path)
	return stack
}

func (d *PythonDetector) analyzeRequirements(path, dir string) *model.DetectedStack {
	data, err := os.ReadFile(path)
	if err != nil {
		return pythonFallbackStack(model.BuildPip)
	}

	var deps []model.Dependency
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		m := pep621DepRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		version := strings.TrimSpace(m[2])
		if version == "" {
			version = "latest"
		}
		deps = append(deps, model.Dependency{Name: m[1], Version: version})
	}

	pythonVersion := detectPythonVersionFiles(dir)
	testDir := detectTestDir(dir)

	rel, err := filepath.Rel(dir, path)
	if err != nil {
		rel = filepath.Base(path)
	}

	stack := model.NewStack(model.LangPython)
	stack.Framework = detectPythonFramework(deps)
	stack.BuildTool = model.BuildPip
	stack.LanguageVersion = pythonVersion
	stack.PythonVersion = pythonVersion
	stack.ConfigFile = filepath.ToSlash(rel)
	stack.SourceDir = detectSourceDir(dir)
	stack.TestDir = testDir
	stack.Entrypoint = detectPythonEntrypoint(dir)
	stack.Dependencies = deps
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = testDir != ""
	stack.TestFramework = detectPythonTestFramework(deps)
	stack.PackageManagerLock = filepath.Base(path)
	return stack
}

func (d *PythonDetector) analyzeSetup(dir string) *model.DetectedStack {
	pythonVersion := detectPythonVersionFiles(dir)
	deps := parseSetupCfgDeps(filepath.Join(dir, "setup.cfg"))

	configFile := "setup.cfg"
	if fileExists(filepath.Join(dir, "setup.py")) {
		configFile = "setup.py"
	}

	stack := model.NewStack(model.LangPython)
	stack.Framework = detectPythonFramework(deps)
	stack.BuildTool = model.BuildPip
	stack.LanguageVersion = pythonVersion
	stack.PythonVersion = pythonVersion
	stack.ConfigFile = configFile
	stack.SourceDir = detectSourceDir(dir)
	stack.TestDir = detectTestDir(dir)
	stack.Entrypoint = detectPythonEntrypoint(dir)
	stack.Dependencies = deps
	stack.HasDockerfile = hasDockerfile(dir)
	return stack
}

// parseSetupCfgDeps pulls install_requires out of setup.cfg. The format is
// INI; only the one multi-line option matters, so a section scan suffices.
func parseSetupCfgDeps(path string) []model.Dependency {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var deps []model.Dependency
	inOptions := false
	inRequires := false
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]"):
			inOptions = trimmed == "[options]"
			inRequires = false
		case inOptions && strings.HasPrefix(trimmed, "install_requires"):
			inRequires = true
		case inRequires && trimmed != "" && (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")):
			if m := pep621DepRe.FindStringSubmatch(trimmed); m != nil {
				version := strings.TrimSpace(m[2])
				if version == "" {
					version = "latest"
				}
				deps = append(deps, model.Dependency{Name: m[1], Version: version})
			}
		case trimmed != "":
			inRequires = false
		}
	}
	return deps
}

var pyenvVersionRe = regexp.MustCompile(`(\d+\.\d+)`)
var herokuRuntimeRe = regexp.MustCompile(`python-(\d+\.\d+)`)

func detectPythonVersionFiles(dir string) string {
	if data, err := os.ReadFile(filepath.Join(dir, ".python-version")); err == nil {
		if m := pyenvVersionRe.FindStringSubmatch(strings.TrimSpace(string(data))); m != nil {
			return m[1]
		}
	}
	if data, err := os.ReadFile(filepath.Join(dir, "runtime.txt")); err == nil {
		if m := herokuRuntimeRe.FindStringSubmatch(strings.TrimSpace(string(data))); m != nil {
			return m[1]
		}
	}
	return "3.11"
}

func detectPythonFramework(deps []model.Dependency) model.Framework {
	names := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		names[strings.ToLower(dep.Name)] = struct{}{}
	}
	has := func(name string) bool {
		_, ok := names[name]
		return ok
	}
	switch {
	case has("django"):
		return model.FrameworkDjango
	case has("fastapi"):
		return model.FrameworkFastAPI
	case has("flask"):
		return model.FrameworkFlask
	case has("aiohttp"):
		return model.FrameworkAIOHTTP
	}
	return model.FrameworkNone
}

func detectPythonTestFramework(deps []model.Dependency) string {
	names := make(map[string]struct{}, len(deps))
	for _, dep := range deps {
		names[strings.ToLower(dep.Name)] = struct{}{}
	}
	has := func(name string) bool {
		_, ok := names[name]
		return ok
	}
	switch {
	case has("pytest"):
		return "pytest"
	case has("unittest"):
		return "unittest"
	case has("nose") || has("nose2"):
		return "nose"
	case has("hypothesis"):
		return "hypothesis"
	}
	return ""
}
