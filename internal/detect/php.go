// File: internal/detect/php.go
// Brief: PHP detection over composer.json, with legacy framework markers.

package detect

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/example/autopipe/internal/model"
)

// PHPDetector recognizes PHP projects from composer.json. Directories with
// framework artifacts but no composer manifest (an artisan script, a
// symfony.lock) are still picked up as legacy projects.
type PHPDetector struct {
	policy ScanPolicy
}

func NewPHPDetector(policy ScanPolicy) *PHPDetector {
	return &PHPDetector{policy: policy}
}

func (d *PHPDetector) Name() string { return "php" }

const defaultPHPVersion = "8.2"

type composerJSON struct {
	Require    map[string]string `json:"require"`
	RequireDev map[string]string `json:"require-dev"`
	Autoload   struct {
		PSR4 map[string]json.RawMessage `json:"psr-4"`
	} `json:"autoload"`
	AutoloadDev struct {
		PSR4 map[string]json.RawMessage `json:"psr-4"`
	} `json:"autoload-dev"`
	Bin json.RawMessage `json:"bin"`
}

func (d *PHPDetector) Detect(dir string) (*model.DetectedStack, error) {
	if fileExists(filepath.Join(dir, "composer.json")) {
		return d.analyzeComposer(dir), nil
	}
	if fileExists(filepath.Join(dir, "artisan")) || fileExists(filepath.Join(dir, "symfony.lock")) {
		return d.analyzeLegacy(dir), nil
	}
	return nil, nil
}

func (d *PHPDetector) DetectAll(root string) ([]*model.DetectedStack, error) {
	return searchProjects(root, d.policy, d.Detect)
}

var phpVersionRe = regexp.MustCompile(`(\d+\.\d+)`)

func (d *PHPDetector) analyzeComposer(dir string) *model.DetectedStack {
	data, err := os.ReadFile(filepath.Join(dir, "composer.json"))
	if err != nil {
		return phpFallbackStack()
	}
	var composer composerJSON
	if err := json.Unmarshal(data, &composer); err != nil {
		return phpFallbackStack()
	}

	phpVersion := defaultPHPVersion
	if constraint, ok := composer.Require["php"]; ok {
		if m := phpVersionRe.FindStringSubmatch(constraint); m != nil {
			phpVersion = m[1]
		}
	}
	if data, err := os.ReadFile(filepath.Join(dir, ".php-version")); err == nil {
		if m := phpVersionRe.FindStringSubmatch(strings.TrimSpace(string(data))); m != nil {
			phpVersion = m[1]
		}
	}

	deps := parseComposerDeps(composer.Require, false)
	deps = append(deps, parseComposerDeps(composer.RequireDev, true)...)

	framework := detectPHPFramework(composer, dir)

	stack := model.NewStack(model.LangPHP)
	stack.Framework = framework
	stack.BuildTool = model.BuildComposer
	stack.LanguageVersion = phpVersion
	stack.PHPVersion = phpVersion
	stack.ConfigFile = "composer.json"
	stack.SourceDir = phpSourceDir(composer, dir)
	stack.TestDir = phpTestDir(composer, dir)
	stack.Entrypoint = phpEntrypoint(framework, dir)
	stack.Dependencies = deps
	stack.HasDockerfile = hasDockerfile(dir)
	stack.HasTests = phpTestDir(composer, dir) != "" || hasComposerDep(composer, "phpunit/phpunit")
	stack.TestFramework = detectPHPTestFramework(composer)
	if fileExists(filepath.Join(dir, "composer.lock")) {
		stack.PackageManagerLock = "composer.lock"
	}
	return stack
}

func (d *PHPDetector) analyzeLegacy(dir string) *model.DetectedStack {
	framework := model.FrameworkNone
	switch {
	case fileExists(filepath.Join(dir, "artisan")):
		framework = model.FrameworkLaravel
	case fileExists(filepath.Join(dir, "symfony.lock")):
		framework = model.FrameworkSymfony
	}

	stack := model.NewStack(model.LangPHP)
	stack.Framework = framework
	stack.BuildTool = model.BuildComposer
	stack.LanguageVersion = defaultPHPVersion
	stack.PHPVersion = defaultPHPVersion
	stack.SourceDir = detectSourceDir(dir)
	stack.TestDir = detectTestDir(dir)
	stack.Entrypoint = phpEntrypoint(framework, dir)
	stack.HasDockerfile = hasDockerfile(dir)
	return stack
}

func phpFallbackStack() *model.DetectedStack {
	stack := model.NewStack(model.LangPHP)
	stack.BuildTool = model.BuildComposer
	stack.LanguageVersion = defaultPHPVersion
	stack.PHPVersion = defaultPHPVersion
	stack.ConfigFile = "composer.json"
	return stack
}

// parseComposerDeps drops the php platform requirement and ext-* extensions;
// only installable packages matter downstream.
func parseComposerDeps(require map[string]string, isDev bool) []model.Dependency {
	names := make([]string, 0, len(require))
	for name := range require {
		names = append(names, name)
	}
	sort.Strings(names)

	var deps []model.Dependency
	for _, name := range names {
		if name == "php" || strings.HasPrefix(name, "ext-") {
			continue
		}
		version := require[name]
		if version == "" || version == "*" {
			version = "latest"
		}
		version = strings.TrimLeft(version, "^~")
		deps = append(deps, model.Dependency{Name: name, Version: version, IsDev: isDev})
	}
	return deps
}

func hasComposerDep(composer composerJSON, name string) bool {
	if _, ok := composer.Require[name]; ok {
		return true
	}
	_, ok := composer.RequireDev[name]
	return ok
}

func hasComposerDepPrefix(composer composerJSON, prefix string) bool {
	for name := range composer.Require {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func detectPHPFramework(composer composerJSON, dir string) model.Framework {
	switch {
	case hasComposerDep(composer, "laravel/framework") || fileExists(filepath.Join(dir, "artisan")):
		return model.FrameworkLaravel
	case hasComposerDepPrefix(composer, "symfony/framework-bundle") || fileExists(filepath.Join(dir, "symfony.lock")):
		return model.FrameworkSymfony
	case hasComposerDepPrefix(composer, "yiisoft/"):
		return model.FrameworkYii
	case hasComposerDepPrefix(composer, "codeigniter4/") || hasComposerDep(composer, "codeigniter/framework"):
		return model.FrameworkCodeIgniter
	}
	return model.FrameworkNone
}

// phpSourceDir prefers the first PSR-4 autoload mapping, normalized to a
// relative forward-slash path.
func phpSourceDir(composer composerJSON, dir string) string {
	dirs := psr4Dirs(composer.Autoload.PSR4)
	for _, d := range dirs {
		if isDir(filepath.Join(dir, d)) {
			return d
		}
	}
	if len(dirs) > 0 {
		return dirs[0]
	}
	return detectSourceDir(dir)
}

func phpTestDir(composer composerJSON, dir string) string {
	dirs := psr4Dirs(composer.AutoloadDev.PSR4)
	for _, d := range dirs {
		if isDir(filepath.Join(dir, d)) {
			return d
		}
	}
	return detectTestDir(dir)
}

// psr4Dirs flattens PSR-4 mapping values, each of which is either a string or
// a list of strings, into cleaned relative paths in namespace order.
func psr4Dirs(mapping map[string]json.RawMessage) []string {
	namespaces := make([]string, 0, len(mapping))
	for ns := range mapping {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	var dirs []string
	for _, ns := range namespaces {
		raw := mapping[ns]
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			dirs = append(dirs, cleanPHPPath(single))
			continue
		}
		var many []string
		if err := json.Unmarshal(raw, &many); err == nil {
			for _, p := range many {
				dirs = append(dirs, cleanPHPPath(p))
			}
		}
	}
	return dirs
}

func cleanPHPPath(p string) string {
	return strings.Trim(strings.ReplaceAll(p, `\`, "/"), "/")
}

func phpEntrypoint(framework model.Framework, dir string) string {
	candidates := []string{"public/index.php", "index.php", "app.php"}
	if framework == model.FrameworkLaravel {
		candidates = append([]string{"artisan"}, candidates...)
	}
	for _, c := range candidates {
		if fileExists(filepath.Join(dir, filepath.FromSlash(c))) {
			return c
		}
	}
	return ""
}

func detectPHPTestFramework(composer composerJSON) string {
	switch {
	case hasComposerDep(composer, "phpunit/phpunit"):
		return "phpunit"
	case hasComposerDep(composer, "pestphp/pest"):
		return "pest"
	case hasComposerDep(composer, "behat/behat"):
		return "behat"
	case hasComposerDep(composer, "codeception/codeception"):
		return "codeception"
	}
	return ""
}
