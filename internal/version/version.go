package version

import (
	"runtime/debug"
	"strings"
)

const defaultModule = "github.com/handydandy/tabstash"

// buildVersion is set via -ldflags "-X github.com/handydandy/tabstash/internal/version.buildVersion=...".
var buildVersion = ""

// Current returns the best available version string.
func Current() string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		if v := strings.TrimSpace(info.Main.Version); v != "" && v != "(devel)" {
			return v
		}
	}
	return "v0.0.0-unknown"
}

// Module returns the module path from build info when available.
func Module() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		if path := strings.TrimSpace(info.Main.Path); path != "" {
			return path
		}
	}
	return defaultModule
}
