//go:build mage

package main

import (
	"runtime"
	"strings"

	semver "github.com/Masterminds/semver/v3"
	"github.com/magefile/mage/sh"
	"github.com/pkg/errors"
)

// tool is an external binary the build depends on.
type tool struct {
	name       string
	constraint string
	// Index of the version in the whitespace separated output of `<name> <versionArgs>`.
	versionField int
	versionArgs  []string
}

var (
	goTool = tool{
		name:         "go",
		constraint:   ">= 1.20.0",
		versionField: 2,
		versionArgs:  []string{"version"},
	}
	dockerTool = tool{
		name:         "docker",
		constraint:   ">= 19.0.0",
		versionField: 2,
		versionArgs:  []string{"--version"},
	}
	golangciLintTool = tool{
		name:         "golangci-lint",
		constraint:   ">= 1.52.0",
		versionField: 3,
		versionArgs:  []string{"--version"},
	}
)

func (t tool) binary() string {
	if runtime.GOOS == "windows" {
		return t.name + ".exe"
	}
	return t.name
}

func (t tool) output(args ...string) (string, error) {
	return sh.Output(t.binary(), args...)
}

func (t tool) run(args ...string) error {
	return sh.Run(t.binary(), args...)
}

func (t tool) version() (*semver.Version, error) {
	output, err := t.output(t.versionArgs...)
	if err != nil {
		return nil, errors.Errorf("error running version cmd: %v", err)
	}
	fields := strings.Fields(output)
	if len(fields) <= t.versionField {
		return nil, errors.Errorf("unexpected version cmd output: %s", output)
	}
	raw := strings.TrimPrefix(strings.Trim(fields[t.versionField], ","), "go")
	version, err := semver.NewVersion(strings.TrimPrefix(raw, "v"))
	if err != nil {
		return nil, errors.Errorf("error parsing version: %v", err)
	}
	return version, nil
}

func (t tool) check() error {
	version, err := t.version()
	if err != nil {
		return errors.Errorf("error getting version: %v", err)
	}
	constraint, err := semver.NewConstraint(t.constraint)
	if err != nil {
		return errors.Errorf("error parsing constraint: %v", err)
	}
	if !constraint.Check(version) {
		return errors.Errorf("found version %v but it failed constraint %v", version, constraint)
	}
	return nil
}

func goCheck() error           { return goTool.check() }
func dockerCheck() error       { return dockerTool.check() }
func golangciLintCheck() error { return golangciLintTool.check() }
