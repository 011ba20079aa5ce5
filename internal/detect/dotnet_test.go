// File: internal/detect/dotnet_test.go
// Brief: .NET detector behavior over csproj and sln layouts.

package detect

import (
	"testing"

	"github.com/example/autopipe/internal/model"
)

func TestDotNetDetectNothing(t *testing.T) {
	d := NewDotNetDetector(DefaultScanPolicy())
	stack, err := d.Detect(t.TempDir())
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if stack != nil {
		t.Fatalf("empty dir should yield no stack")
	}
}

func TestDotNetDetectWebProject(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "Payments.Api.csproj", `<Project Sdk="Microsoft.NET.Sdk.Web">
  <PropertyGroup>
    <TargetFramework>net8.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Serilog.AspNetCore" Version="8.0.1" />
    <PackageReference Include="Npgsql">
      <Version>8.0.3</Version>
    </PackageReference>
  </ItemGroup>
</Project>
`)
	writeTestFile(t, dir, "Program.cs", "")
	writeTestFile(t, dir, "packages.lock.json", "{}")

	d := NewDotNetDetector(DefaultScanPolicy())
	stack, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if stack.Language != model.LangDotNet {
		t.Fatalf("language = %s", stack.Language)
	}
	if stack.Framework != model.FrameworkASPNetCore {
		t.Fatalf("framework = %s, want asp.net core from web sdk", stack.Framework)
	}
	if stack.DotNetVersion != "8.0" {
		t.Fatalf("version = %s, want 8.0", stack.DotNetVersion)
	}
	if stack.ConfigFile != "Payments.Api.csproj" {
		t.Fatalf("config file = %s", stack.ConfigFile)
	}
	if stack.Entrypoint != "Program.cs" {
		t.Fatalf("entrypoint = %s", stack.Entrypoint)
	}
	if stack.BuildOutputDir != "bin/Release" {
		t.Fatalf("build output = %s", stack.BuildOutputDir)
	}
	if len(stack.Dependencies) != 2 {
		t.Fatalf("dependencies = %+v", stack.Dependencies)
	}
	if stack.Dependencies[0].Name != "Serilog.AspNetCore" || stack.Dependencies[0].Version != "8.0.1" {
		t.Fatalf("unexpected dependency %+v", stack.Dependencies[0])
	}
	if stack.Dependencies[1].Name != "Npgsql" || stack.Dependencies[1].Version != "8.0.3" {
		t.Fatalf("version element should be read: %+v", stack.Dependencies[1])
	}
	if stack.PackageManagerLock != "packages.lock.json" {
		t.Fatalf("lock = %s", stack.PackageManagerLock)
	}
}

func TestDotNetDetectLegacyTFM(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "Legacy.csproj", `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup>
    <TargetFramework>net472</TargetFramework>
  </PropertyGroup>
</Project>
`)

	d := NewDotNetDetector(DefaultScanPolicy())
	stack, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if stack.DotNetVersion != "8.0" {
		t.Fatalf("version = %s, legacy TFM should map to the default", stack.DotNetVersion)
	}
	if stack.Framework != model.FrameworkNone {
		t.Fatalf("framework = %s, want none", stack.Framework)
	}
}

func TestDotNetDetectBlazor(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "Portal.csproj", `<Project Sdk="Microsoft.NET.Sdk.BlazorWebAssembly">
  <PropertyGroup>
    <TargetFramework>net9.0</TargetFramework>
  </PropertyGroup>
  <ItemGroup>
    <PackageReference Include="Microsoft.AspNetCore.Components.WebAssembly" Version="9.0.0" />
  </ItemGroup>
</Project>
`)

	d := NewDotNetDetector(DefaultScanPolicy())
	stack, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if stack.Framework != model.FrameworkBlazor {
		t.Fatalf("framework = %s, want blazor", stack.Framework)
	}
	if stack.DotNetVersion != "9.0" {
		t.Fatalf("version = %s, want 9.0", stack.DotNetVersion)
	}
}

func TestDotNetDetectSolutionSkipsTests(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "shop.sln", `Microsoft Visual Studio Solution File, Format Version 12.00
Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Shop.Tests", "Shop.Tests\Shop.Tests.csproj", "{AAAA}"
EndProject
Project("{FAE04EC0-301F-11D3-BF4B-00C04F79EFBC}") = "Shop.Api", "Shop.Api\Shop.Api.csproj", "{BBBB}"
EndProject
`)
	writeTestFile(t, dir, "Shop.Tests/Shop.Tests.csproj", `<Project Sdk="Microsoft.NET.Sdk">
  <PropertyGroup><TargetFramework>net8.0</TargetFramework></PropertyGroup>
  <ItemGroup><PackageReference Include="xunit" Version="2.7.0" /></ItemGroup>
</Project>
`)
	writeTestFile(t, dir, "Shop.Api/Shop.Api.csproj", `<Project Sdk="Microsoft.NET.Sdk.Web">
  <PropertyGroup><TargetFramework>net8.0</TargetFramework></PropertyGroup>
</Project>
`)

	d := NewDotNetDetector(DefaultScanPolicy())
	stack, err := d.Detect(dir)
	if err != nil {
		t.Fatalf("detect failed: %v", err)
	}
	if stack.ConfigFile != "shop.sln" {
		t.Fatalf("config file = %s, want the solution", stack.ConfigFile)
	}
	if stack.Framework != model.FrameworkASPNetCore {
		t.Fatalf("framework = %s, test project should be skipped", stack.Framework)
	}
	if !stack.IsMultiModule {
		t.Fatalf("solution with two projects should be multi-module")
	}
	if len(stack.Modules) != 2 || stack.Modules[0] != "Shop.Tests" || stack.Modules[1] != "Shop.Api" {
		t.Fatalf("modules = %v", stack.Modules)
	}
}
