// File: internal/resolve/metadata.go
// Brief: Best-effort project name/version extraction from ecosystem manifests.

package resolve

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/example/autopipe/internal/model"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/mod/modfile"
)

var (
	setupNameRe    = regexp.MustCompile(`name\s*=\s*["']([^"']+)["']`)
	setupVersionRe = regexp.MustCompile(`version\s*=\s*["']([^"']+)["']`)
	gradleNameRe   = regexp.MustCompile(`rootProject\.name\s*=\s*["']([^"']+)["']`)
	gradleVerRe    = regexp.MustCompile(`version\s*=\s*["']([^"']+)["']`)
)

// ExtractMetadata recovers a human project name and version from the winning
// stack's manifest files at rootPath. Every parse step is independently
// fault-tolerant: a malformed or missing manifest degrades to a weaker
// default, never an error. The returned name is always non-empty.
func ExtractMetadata(stack *model.DetectedStack, rootPath string) model.ProjectMetadata {
	name := ""
	version := model.DefaultVersion

	switch stack.Language {
	case model.LangNodeJS, model.LangTypeScript:
		name, version = fromPackageJSON(rootPath, name, version)
	case model.LangPython:
		name, version = fromPythonConfig(rootPath, name, version)
	case model.LangJava, model.LangKotlin:
		name, version = fromJVMConfig(rootPath, name, version)
	case model.LangGo:
		name, version = fromGoMod(rootPath, name, version)
	case model.LangDotNet:
		name, version = fromCsproj(rootPath, stack, name, version)
	case model.LangPHP:
		name, version = fromComposer(rootPath, name, version)
	}

	if name == "" {
		name = lastPathSegment(rootPath)
	}
	if name == "" {
		name = fmt.Sprintf("auto-generated-%s", stack.Language)
	}
	return model.ProjectMetadata{Name: name, Version: version}
}

func lastPathSegment(path string) string {
	base := filepath.Base(filepath.Clean(path))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return base
}

func fromPackageJSON(root, name, version string) (string, string) {
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return name, version
	}
	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return name, version
	}
	if pkg.Name != "" {
		name = pkg.Name
	}
	if pkg.Version != "" {
		version = pkg.Version
	}
	return name, version
}

func fromPythonConfig(root, name, version string) (string, string) {
	if data, err := os.ReadFile(filepath.Join(root, "pyproject.toml")); err == nil {
		var py struct {
			Project struct {
				Name    string `toml:"name"`
				Version string `toml:"version"`
			} `toml:"project"`
			Tool struct {
				// Pointer so table presence is distinguishable from absence: a
				// declared [tool.poetry] owns the project identity even when it
				// names nothing, and PEP 621 must not override it.
				Poetry *struct {
					Name    string `toml:"name"`
					Version string `toml:"version"`
				} `toml:"poetry"`
			} `toml:"tool"`
		}
		if err := toml.Unmarshal(data, &py); err == nil {
			// Poetry first, then PEP 621.
			if py.Tool.Poetry != nil {
				if py.Tool.Poetry.Name != "" {
					name = py.Tool.Poetry.Name
				}
				if py.Tool.Poetry.Version != "" {
					version = py.Tool.Poetry.Version
				}
			} else {
				if py.Project.Name != "" {
					name = py.Project.Name
				}
				if py.Project.Version != "" {
					version = py.Project.Version
				}
			}
		}
	}

	if name == "" {
		if data, err := os.ReadFile(filepath.Join(root, "setup.py")); err == nil {
			content := string(data)
			if m := setupNameRe.FindStringSubmatch(content); m != nil {
				name = m[1]
			}
			if m := setupVersionRe.FindStringSubmatch(content); m != nil {
				version = m[1]
			}
		}
	}
	return name, version
}

// pomIdentity captures only what metadata extraction needs from a POM. Field
// matching is by local name, so namespaced and namespace-free documents both
// work.
type pomIdentity struct {
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

func fromJVMConfig(root, name, version string) (string, string) {
	if data, err := os.ReadFile(filepath.Join(root, "pom.xml")); err == nil {
		var pom pomIdentity
		if err := xml.Unmarshal(data, &pom); err == nil {
			if pom.ArtifactID != "" {
				name = pom.ArtifactID
			}
			if pom.Version != "" {
				version = pom.Version
			}
		}
	}

	if name == "" {
		if data, err := os.ReadFile(filepath.Join(root, "build.gradle")); err == nil {
			content := string(data)
			if m := gradleNameRe.FindStringSubmatch(content); m != nil {
				name = m[1]
			}
			if m := gradleVerRe.FindStringSubmatch(content); m != nil {
				version = m[1]
			}
		}
	}

	if name == "" {
		if data, err := os.ReadFile(filepath.Join(root, "settings.gradle")); err == nil {
			if m := gradleNameRe.FindStringSubmatch(string(data)); m != nil {
				name = m[1]
			}
		}
	}
	return name, version
}

func fromGoMod(root, name, version string) (string, string) {
	data, err := os.ReadFile(filepath.Join(root, "go.mod"))
	if err != nil {
		return name, version
	}
	f, err := modfile.ParseLax("go.mod", data, nil)
	if err != nil || f.Module == nil {
		return name, version
	}
	if path := f.Module.Mod.Path; path != "" {
		parts := strings.Split(path, "/")
		name = parts[len(parts)-1]
	}
	return name, version
}

type csprojIdentity struct {
	PropertyGroups []struct {
		Version string `xml:"Version"`
	} `xml:"PropertyGroup"`
}

func fromCsproj(root string, stack *model.DetectedStack, name, version string) (string, string) {
	var path string
	if strings.HasSuffix(stack.ConfigFile, ".csproj") {
		path = filepath.Join(root, stack.ConfigFile)
	} else if matches, err := filepath.Glob(filepath.Join(root, "*.csproj")); err == nil && len(matches) > 0 {
		path = matches[0]
	}
	if path == "" {
		return name, version
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return name, version
	}
	var proj csprojIdentity
	if err := xml.Unmarshal(data, &proj); err != nil {
		return name, version
	}
	// Project name comes from the file itself, but only once the file proved
	// to be a real project document.
	name = strings.TrimSuffix(filepath.Base(path), ".csproj")
	for _, pg := range proj.PropertyGroups {
		if pg.Version != "" {
			version = pg.Version
			break
		}
	}
	return name, version
}

func fromComposer(root, name, version string) (string, string) {
	data, err := os.ReadFile(filepath.Join(root, "composer.json"))
	if err != nil {
		return name, version
	}
	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return name, version
	}
	if pkg.Name != "" {
		// vendor/package -> package
		if idx := strings.LastIndex(pkg.Name, "/"); idx >= 0 {
			name = pkg.Name[idx+1:]
		} else {
			name = pkg.Name
		}
	}
	if pkg.Version != "" {
		version = pkg.Version
	}
	return name, version
}
