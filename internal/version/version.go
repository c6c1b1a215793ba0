// Package version exposes the build version injected at link time.
package version

// version is set via -ldflags at build time.
var version = "dev"

// Value returns the build version, or "dev" for untagged builds.
func Value() string {
	return version
}
