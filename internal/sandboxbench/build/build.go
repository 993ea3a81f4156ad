// Package build holds version information set at link time, e.g.
//
//	go build -ldflags "-X github.com/armadaproject/sandboxbench/internal/sandboxbench/build.ReleaseVersion=v1.0.0"
package build

var (
	ReleaseVersion = "UNKNOWN"
	GitCommit      = "UNKNOWN"
	GoVersion      = "UNKNOWN"
	BuildTime      = "UNKNOWN"
)
