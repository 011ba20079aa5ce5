// File: internal/detect/node.go
// Brief: Node.js/TypeScript detection from package.json and workspace manifests.

package detect

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/example/autopipe/internal/model"
	"gopkg.in/yaml.v3"
)

// NodeDetector recognizes Node.js and TypeScript projects, including npm,
// yarn, and pnpm workspaces plus Lerna, Nx, and Turborepo monorepos.
type NodeDetector struct {
	policy ScanPolicy
}

func NewNodeDetector(policy ScanPolicy) *NodeDetector {
	return &NodeDetector{policy: policy}
}

func (d *NodeDetector) Name() string { return "nodejs" }

// packageJSON models only the fields detection cares about. Workspaces is raw
// because npm allows both an array and an object with a packages key.
type packageJSON struct {
	Name            string            `json:"name"`
	Main            string            `json:"main"`
	Module          string            `json:"module"`
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
	Engines         map[string]string `json:"engines"`
	Scripts         map[string]string `json:"scripts"`
	Volta           map[string]string `json:"volta"`
	Workspaces      json.RawMessage   `json:"workspaces"`
}

func (p *packageJSON) workspacePatterns() []string {
	if len(p.Workspaces) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(p.Workspaces, &list); err == nil {
		return list
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(p.Workspaces, &obj); err == nil {
		return obj.Packages
	}
	return nil
}

var nodeEntrypointPatterns = []string{
	"index.js", "index.ts", "main.js", "main.ts",
	"app.js", "app.ts", "server.js", "server.ts",
	"src/index.js", "src/index.ts", "src/main.js", "src/main.ts",
	"src/app.js", "src/app.ts", "src/server.js", "src/server.ts",
}

func (d *NodeDetector) Detect(dir string) (*model.DetectedStack, error) {
	path := filepath.Join(dir, "package.json")
	if !fileExists(path) {
		return nil, nil
	}
	return d.analyzePackageJSON(path, dir), nil
}

func (d *NodeDetector) DetectAll(root string) ([]*model.DetectedStack, error) {
	return searchProjects(root, d.policy, d.Detect)
}

const defaultNodeVersion = "22"

func (d *NodeDetector) analyzePackageJSON(path, dir string) *model.DetectedStack {
	data, err := os.ReadFile(path)
	if err != nil {
		return nodeFallbackStack()
	}
	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nodeFallbackStack()
	}

	allDeps := make(map[string]string, len(pkg.Dependencies)+len(pkg.DevDependencies))
	for name, version := range pkg.Dependencies {
		allDeps[name] = version
	}
	for name, version := range pkg.DevDependencies {
		allDeps[name] = version
	}

	isTypeScript := isTypeScriptProject(dir, allDeps)
	framework := detectNodeFramework(allDeps)
	buildTool := detectNodeBuildTool(dir)
	nodeVersion := detectNodeVersion(&pkg, dir)
	isWorkspace, workspaces := detectNodeWorkspaces(&pkg, dir)
	testDir := detectTestDir(dir)
	testFramework := detectNodeTestFramework(allDeps, pkg.Scripts)

	lang := model.LangNodeJS
	if isTypeScript {
		lang = model.LangTypeScript
	}

	stack := model.NewStack(lang)
	stack.Framework = framework
	stack.BuildTool = buildTool
	stack.LanguageVersion = nodeVersion
	stack.NodeVersion = nodeVersion
	stack.ConfigFile = "package.json"
	stack.SourceDir = detectNodeSourceDir(dir, isTypeScript)
	stack.TestDir = testDir
	stack.Entrypoint = detectNodeEntrypoint(&pkg, dir)
	stack.BuildOutputDir = detectNodeBuildOutput(dir)
	stack.IsMultiModule = isWorkspace
	stack.Modules = workspaces
	stack.Dependencies = parseNodeDependencies(pkg.Dependencies, pkg.DevDependencies)
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = testDir != "" || testFramework != ""
	stack.TestFramework = testFramework
	stack.PackageManagerLock = detectNodeLockFile(dir, buildTool)
	return stack
}

func nodeFallbackStack() *model.DetectedStack {
	stack := model.NewStack(model.LangNodeJS)
	stack.BuildTool = model.BuildNPM
	stack.LanguageVersion = "20"
	stack.NodeVersion = "20"
	return stack
}

func isTypeScriptProject(dir string, deps map[string]string) bool {
	if fileExists(filepath.Join(dir, "tsconfig.json")) {
		return true
	}
	if _, ok := deps["typescript"]; ok {
		return true
	}
	return len(globLimited(dir, "*.ts", 1)) > 0
}

func detectNodeFramework(deps map[string]string) model.Framework {
	has := func(name string) bool {
		_, ok := deps[name]
		return ok
	}
	switch {
	case has("next"):
		return model.FrameworkNextJS
	case has("nuxt") || has("nuxt3"):
		return model.FrameworkNuxt
	case has("@nestjs/core"):
		return model.FrameworkNestJS
	case has("@angular/core"):
		return model.FrameworkAngular
	case has("vue"):
		return model.FrameworkVue
	case has("react"):
		return model.FrameworkReact
	case has("express"):
		return model.FrameworkExpress
	}
	return model.FrameworkNone
}

func detectNodeBuildTool(dir string) model.BuildTool {
	if fileExists(filepath.Join(dir, "pnpm-lock.yaml")) {
		return model.BuildPNPM
	}
	if fileExists(filepath.Join(dir, "yarn.lock")) {
		return model.BuildYarn
	}
	// bun is treated like npm for pipeline purposes
	return model.BuildNPM
}

// ltsCodenames maps Node release codenames to their major versions.
var ltsCodenames = map[string]string{
	"argon": "4", "boron": "6", "carbon": "8", "dubnium": "10",
	"erbium": "12", "fermium": "14", "gallium": "16", "hydrogen": "18",
	"iron": "20", "jod": "22",
}

const minSupportedNodeVersion = 18

var (
	nodeRangeRe  = regexp.MustCompile(`[>=^~]*\s*(\d+)`)
	nodeWildRe   = regexp.MustCompile(`^(\d+)\.[x*]`)
	nodeSimpleRe = regexp.MustCompile(`^v?(\d+)`)
)

// detectNodeVersion resolves the Node major version from engines, workspace
// packages, .nvmrc, .node-version, and volta, in that priority order. Majors
// below the supported floor are bumped to the current LTS.
func detectNodeVersion(pkg *packageJSON, dir string) string {
	detected := ""
	highest := 0

	if engine, ok := pkg.Engines["node"]; ok {
		if v := parseNodeVersion(engine); v != "" {
			detected = v
			if n, err := strconv.Atoi(v); err == nil {
				highest = n
			}
		}
	}

	// Monorepos: the workspace with the highest requirement wins.
	patterns := pkg.workspacePatterns()
	if len(patterns) > 0 || isDir(filepath.Join(dir, "packages")) || isDir(filepath.Join(dir, "apps")) {
		var scanDirs []string
		for _, pattern := range patterns {
			if strings.Contains(pattern, "*") {
				base := strings.TrimSuffix(strings.Split(pattern, "*")[0], "/")
				scanDirs = append(scanDirs, filepath.Join(dir, base))
			} else {
				scanDirs = append(scanDirs, filepath.Join(dir, pattern))
			}
		}
		for _, common := range []string{"packages", "apps"} {
			if isDir(filepath.Join(dir, common)) {
				scanDirs = append(scanDirs, filepath.Join(dir, common))
			}
		}
		for _, scanDir := range scanDirs {
			if !isDir(scanDir) {
				continue
			}
			for _, pkgFile := range globLimited(scanDir, "package.json", 20) {
				data, err := os.ReadFile(pkgFile)
				if err != nil {
					continue
				}
				var sub packageJSON
				if err := json.Unmarshal(data, &sub); err != nil {
					continue
				}
				engine, ok := sub.Engines["node"]
				if !ok {
					continue
				}
				v := parseNodeVersion(engine)
				if v == "" {
					continue
				}
				if n, err := strconv.Atoi(v); err == nil && n > highest {
					highest = n
					detected = v
				}
			}
		}
	}

	if detected == "" {
		if data, err := os.ReadFile(filepath.Join(dir, ".nvmrc")); err == nil {
			detected = parseNodeVersion(strings.ToLower(strings.TrimSpace(string(data))))
		}
	}
	if detected == "" {
		if data, err := os.ReadFile(filepath.Join(dir, ".node-version")); err == nil {
			detected = parseNodeVersion(strings.TrimSpace(string(data)))
		}
	}
	if detected == "" {
		if v, ok := pkg.Volta["node"]; ok {
			detected = parseNodeVersion(v)
		}
	}

	if detected != "" {
		if n, err := strconv.Atoi(detected); err == nil {
			if n < minSupportedNodeVersion {
				return defaultNodeVersion
			}
			return detected
		}
	}
	return defaultNodeVersion
}

// parseNodeVersion normalizes engine strings, LTS codenames, and semver ranges
// down to a major version. Returns "" when nothing parses.
func parseNodeVersion(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "lts") {
		if strings.Contains(raw, "lts/*") || raw == "lts" {
			return defaultNodeVersion
		}
		for codename, version := range ltsCodenames {
			if strings.Contains(raw, codename) {
				return version
			}
		}
		return "20"
	}
	switch raw {
	case "latest", "current", "node":
		return defaultNodeVersion
	}
	if m := nodeRangeRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := nodeWildRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	if m := nodeSimpleRe.FindStringSubmatch(raw); m != nil {
		return m[1]
	}
	return ""
}

func detectNodeWorkspaces(pkg *packageJSON, dir string) (bool, []string) {
	// npm / yarn workspaces declared in package.json.
	if patterns := pkg.workspacePatterns(); len(patterns) > 0 {
		var workspaces []string
		for _, pattern := range patterns {
			if strings.Contains(pattern, "*") {
				base := strings.TrimSuffix(strings.TrimSuffix(pattern, "/**"), "/*")
				workspaces = append(workspaces, listPackageDirs(dir, base)...)
			} else {
				workspaces = append(workspaces, pattern)
			}
		}
		return true, workspaces
	}

	// pnpm workspaces.
	if data, err := os.ReadFile(filepath.Join(dir, "pnpm-workspace.yaml")); err == nil {
		var ws struct {
			Packages []string `yaml:"packages"`
		}
		if err := yaml.Unmarshal(data, &ws); err == nil {
			return true, ws.Packages
		}
	}

	// Lerna.
	if data, err := os.ReadFile(filepath.Join(dir, "lerna.json")); err == nil {
		var lerna struct {
			Packages []string `json:"packages"`
		}
		if err := json.Unmarshal(data, &lerna); err == nil {
			if len(lerna.Packages) == 0 {
				lerna.Packages = []string{"packages/*"}
			}
			return true, lerna.Packages
		}
	}

	// Nx keeps projects in apps/ and libs/.
	if fileExists(filepath.Join(dir, "nx.json")) {
		var workspaces []string
		for _, sub := range []string{"apps", "libs", "packages"} {
			workspaces = append(workspaces, listPackageDirs(dir, sub)...)
		}
		return true, workspaces
	}

	// Turborepo rides on npm/yarn/pnpm workspaces.
	if fileExists(filepath.Join(dir, "turbo.json")) {
		var workspaces []string
		for _, sub := range []string{"apps", "packages"} {
			workspaces = append(workspaces, listPackageDirs(dir, sub)...)
		}
		if len(workspaces) > 0 {
			return true, workspaces
		}
	}

	return false, nil
}

// listPackageDirs returns the relative paths of immediate subdirectories of
// base that contain a package.json.
func listPackageDirs(dir, base string) []string {
	basePath := filepath.Join(dir, base)
	if !isDir(basePath) {
		return nil
	}
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil
	}
	var found []string
	for _, entry := range entries {
		if entry.IsDir() && fileExists(filepath.Join(basePath, entry.Name(), "package.json")) {
			found = append(found, filepath.ToSlash(filepath.Join(base, entry.Name())))
		}
	}
	return found
}

func parseNodeDependencies(deps, devDeps map[string]string) []model.Dependency {
	result := make([]model.Dependency, 0, len(deps)+len(devDeps))
	clean := func(v string) string {
		return strings.NewReplacer("^", "", "~", "").Replace(v)
	}
	for _, name := range sortedKeys(deps) {
		result = append(result, model.Dependency{Name: name, Version: clean(deps[name])})
	}
	for _, name := range sortedKeys(devDeps) {
		result = append(result, model.Dependency{Name: name, Version: clean(devDeps[name]), IsDev: true})
	}
	return result
}

var startScriptRe = regexp.MustCompile(`(?:node|ts-node|tsx)\s+(\S+)`)

func detectNodeEntrypoint(pkg *packageJSON, dir string) string {
	if pkg.Main != "" {
		return pkg.Main
	}
	if pkg.Module != "" {
		return pkg.Module
	}
	if start := pkg.Scripts["start"]; start != "" {
		if m := startScriptRe.FindStringSubmatch(start); m != nil {
			return m[1]
		}
	}
	for _, pattern := range nodeEntrypointPatterns {
		if fileExists(filepath.Join(dir, pattern)) {
			return pattern
		}
	}
	return ""
}

var jsCommentRe = regexp.MustCompile(`//.*|/\*[\s\S]*?\*/`)

// tsconfigOptions reads compilerOptions from tsconfig.json, tolerating the
// JSONC comments the format allows.
func tsconfigOptions(dir string) (rootDir, outDir string) {
	data, err := os.ReadFile(filepath.Join(dir, "tsconfig.json"))
	if err != nil {
		return "", ""
	}
	stripped := jsCommentRe.ReplaceAllString(string(data), "")
	var cfg struct {
		CompilerOptions struct {
			RootDir string `json:"rootDir"`
			OutDir  string `json:"outDir"`
		} `json:"compilerOptions"`
	}
	if err := json.Unmarshal([]byte(stripped), &cfg); err != nil {
		return "", ""
	}
	return cfg.CompilerOptions.RootDir, cfg.CompilerOptions.OutDir
}

func detectNodeSourceDir(dir string, isTypeScript bool) string {
	for _, sub := range []string{"src", "lib", "app", "source"} {
		if isDir(filepath.Join(dir, sub)) {
			return sub
		}
	}
	if isTypeScript {
		if rootDir, _ := tsconfigOptions(dir); rootDir != "" {
			return strings.TrimPrefix(strings.TrimPrefix(rootDir, "./"), "/")
		}
	}
	return ""
}

func detectNodeTestFramework(deps map[string]string, scripts map[string]string) string {
	has := func(name string) bool {
		_, ok := deps[name]
		return ok
	}
	switch {
	case has("jest") || has("@types/jest"):
		return "jest"
	case has("mocha") || has("@types/mocha"):
		return "mocha"
	case has("vitest"):
		return "vitest"
	case has("ava"):
		return "ava"
	case has("jasmine"):
		return "jasmine"
	case has("@playwright/test"):
		return "playwright"
	case has("cypress"):
		return "cypress"
	}
	test := scripts["test"]
	for _, runner := range []string{"jest", "mocha", "vitest"} {
		if strings.Contains(test, runner) {
			return runner
		}
	}
	return ""
}

func detectNodeBuildOutput(dir string) string {
	for _, out := range []string{"dist", "build", "out", ".next", ".nuxt"} {
		if isDir(filepath.Join(dir, out)) {
			return out
		}
	}
	if _, outDir := tsconfigOptions(dir); outDir != "" {
		return strings.TrimPrefix(strings.TrimPrefix(outDir, "./"), "/")
	}
	return "dist"
}

func detectNodeLockFile(dir string, tool model.BuildTool) string {
	expected := map[model.BuildTool]string{
		model.BuildNPM:  "package-lock.json",
		model.BuildYarn: "yarn.lock",
		model.BuildPNPM: "pnpm-lock.yaml",
	}
	if lock, ok := expected[tool]; ok && fileExists(filepath.Join(dir, lock)) {
		return lock
	}
	for _, lock := range []string{"package-lock.json", "yarn.lock", "pnpm-lock.yaml"} {
		if fileExists(filepath.Join(dir, lock)) {
			return lock
		}
	}
	return ""
}
