// File: internal/resolve/metadata_test.go
// Brief: Manifest metadata extraction fallbacks.

package resolve

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/autopipe/internal/model"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestExtractMetadataPackageJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{"name": "demo-svc", "version": "2.3.1"}`)

	meta := ExtractMetadata(model.NewStack(model.LangNodeJS), dir)
	if meta.Name != "demo-svc" {
		t.Fatalf("name mismatch, got %s", meta.Name)
	}
	if meta.Version != "2.3.1" {
		t.Fatalf("version mismatch, got %s", meta.Version)
	}
}

func TestExtractMetadataMalformedManifestFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "package.json", `{not json`)

	meta := ExtractMetadata(model.NewStack(model.LangNodeJS), dir)
	if meta.Name != filepath.Base(dir) {
		t.Fatalf("expected directory-name fallback, got %s", meta.Name)
	}
	if meta.Version != model.DefaultVersion {
		t.Fatalf("expected default version, got %s", meta.Version)
	}
}

func TestExtractMetadataEmptyGoDir(t *testing.T) {
	dir := t.TempDir()
	meta := ExtractMetadata(model.NewStack(model.LangGo), dir)
	if meta.Name != filepath.Base(dir) {
		t.Fatalf("expected directory name, got %s", meta.Name)
	}
	if meta.Version != "0.1.0" {
		t.Fatalf("expected default version, got %s", meta.Version)
	}
}

func TestExtractMetadataGoModule(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "go.mod", "module github.com/acme/billing-api\n\ngo 1.22\n")

	meta := ExtractMetadata(model.NewStack(model.LangGo), dir)
	if meta.Name != "billing-api" {
		t.Fatalf("expected last module path segment, got %s", meta.Name)
	}
}

func TestExtractMetadataPoetryBeatsPEP621(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", `
[project]
name = "pep-name"
version = "9.9.9"

[tool.poetry]
name = "poetry-name"
version = "1.2.3"
`)

	meta := ExtractMetadata(model.NewStack(model.LangPython), dir)
	if meta.Name != "poetry-name" {
		t.Fatalf("poetry should win over PEP 621, got %s", meta.Name)
	}
	if meta.Version != "1.2.3" {
		t.Fatalf("version mismatch, got %s", meta.Version)
	}
}

func TestExtractMetadataEmptyPoetryTableBlocksPEP621(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pyproject.toml", `
[project]
name = "pep-name"
version = "9.9.9"

[tool.poetry]
`)

	meta := ExtractMetadata(model.NewStack(model.LangPython), dir)
	if meta.Name != filepath.Base(dir) {
		t.Fatalf("a declared poetry table owns the identity even when empty, got %s", meta.Name)
	}
	if meta.Version != model.DefaultVersion {
		t.Fatalf("expected default version, got %s", meta.Version)
	}
}

func TestExtractMetadataSetupPyFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "setup.py", `
from setuptools import setup
setup(
    name="legacy-tool",
    version="0.4.2",
)
`)

	meta := ExtractMetadata(model.NewStack(model.LangPython), dir)
	if meta.Name != "legacy-tool" {
		t.Fatalf("name mismatch, got %s", meta.Name)
	}
	if meta.Version != "0.4.2" {
		t.Fatalf("version mismatch, got %s", meta.Version)
	}
}

func TestExtractMetadataMavenPOM(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "pom.xml", `<?xml version="1.0"?>
<project xmlns="http://maven.apache.org/POM/4.0.0">
  <groupId>com.acme</groupId>
  <artifactId>orders-service</artifactId>
  <version>3.1.0</version>
</project>
`)

	meta := ExtractMetadata(model.NewStack(model.LangJava), dir)
	if meta.Name != "orders-service" {
		t.Fatalf("name mismatch, got %s", meta.Name)
	}
	if meta.Version != "3.1.0" {
		t.Fatalf("version mismatch, got %s", meta.Version)
	}
}

func TestExtractMetadataGradleSettings(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "build.gradle", `version = "5.0.1"`)
	writeFile(t, dir, "settings.gradle", `rootProject.name = "inventory"`)

	meta := ExtractMetadata(model.NewStack(model.LangJava), dir)
	if meta.Name != "inventory" {
		t.Fatalf("name mismatch, got %s", meta.Name)
	}
	if meta.Version != "5.0.1" {
		t.Fatalf("version mismatch, got %s", meta.Version)
	}
}

func TestExtractMetadataComposer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "composer.json", `{"name": "acme/storefront", "version": "2.0.0"}`)

	meta := ExtractMetadata(model.NewStack(model.LangPHP), dir)
	if meta.Name != "storefront" {
		t.Fatalf("vendor prefix should be stripped, got %s", meta.Name)
	}
	if meta.Version != "2.0.0" {
		t.Fatalf("version mismatch, got %s", meta.Version)
	}
}

func TestExtractMetadataCsproj(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Payments.Api.csproj", `<Project Sdk="Microsoft.NET.Sdk.Web">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
    <Version>1.4.0</Version>
  </PropertyGroup>
</Project>
`)

	stack := model.NewStack(model.LangDotNet)
	stack.ConfigFile = "Payments.Api.csproj"
	meta := ExtractMetadata(stack, dir)
	if meta.Name != "Payments.Api" {
		t.Fatalf("name should be the csproj stem, got %s", meta.Name)
	}
	if meta.Version != "1.4.0" {
		t.Fatalf("version mismatch, got %s", meta.Version)
	}
}

func TestExtractMetadataMalformedCsprojFallsBack(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "Broken.csproj", `<Project><PropertyGroup></Project`)

	stack := model.NewStack(model.LangDotNet)
	stack.ConfigFile = "Broken.csproj"
	meta := ExtractMetadata(stack, dir)
	if meta.Name != filepath.Base(dir) {
		t.Fatalf("unparseable csproj should not donate its stem, got %s", meta.Name)
	}
	if meta.Version != model.DefaultVersion {
		t.Fatalf("expected default version, got %s", meta.Version)
	}
}
