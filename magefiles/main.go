//go:build mage

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
	"github.com/pkg/errors"
)

const (
	buildPackage = "github.com/armadaproject/sandboxbench/internal/sandboxbench/build"
	binary       = "bin/sandboxbench"
	image        = "sandboxbench"
)

// Check dependent tools are present and the correct version.
func CheckDeps() error {
	checks := []struct {
		name  string
		check func() error
	}{
		{"docker", dockerCheck},
		{"go", goCheck},
		{"golangci-lint", golangciLintCheck},
	}
	failures := false
	for _, check := range checks {
		fmt.Printf("Checking %s... ", check.name)
		if err := check.check(); err != nil {
			fmt.Printf("FAILED\nReason: %v\n", err)
			failures = true
		} else {
			fmt.Println("PASSED")
		}
	}
	if failures {
		return errors.New("check(s) failed.")
	}
	return nil
}

// Removes build outputs and test reports.
func Clean() {
	fmt.Println("Cleaning...")
	for _, path := range []string{"bin", testReports} {
		os.RemoveAll(path)
	}
}

// Builds the sandboxbench binary into bin/, stamping version information.
func Build() error {
	mg.Deps(goCheck)
	ldflags, err := versionLdflags()
	if err != nil {
		return err
	}
	return goTool.run("build", "-ldflags", ldflags, "-o", binary, "./cmd/sandboxbench")
}

// Builds the sandboxbench docker image, tagged with the current commit.
func BuildDocker() error {
	mg.Deps(dockerCheck)
	commit, err := sh.Output("git", "rev-parse", "--short", "HEAD")
	if err != nil {
		return err
	}
	return dockerTool.run("build", "-t", image+":"+commit, "-t", image+":latest", ".")
}

func versionLdflags() (string, error) {
	commit, err := sh.Output("git", "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil {
		return "", err
	}
	vars := map[string]string{
		"ReleaseVersion": version,
		"GitCommit":      commit,
		"GoVersion":      runtime.Version(),
		"BuildTime":      time.Now().UTC().Format(time.RFC3339),
	}
	var flags []string
	for name, value := range vars {
		flags = append(flags, fmt.Sprintf("-X %s.%s=%s", buildPackage, name, value))
	}
	return strings.Join(flags, " "), nil
}
