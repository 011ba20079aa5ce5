// buildinfo.go captures build metadata (version, commit, date) for use in --version outputs.
package buildinfo

// Version is injected at build time via -ldflags and defaults to dev.
var Version = "dev"

// GitCommit is the short commit hash the binary was built from, when injected.
var GitCommit = ""

// BuildDate is the RFC 3339 build timestamp, when injected.
var BuildDate = ""
