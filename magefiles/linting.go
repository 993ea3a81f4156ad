//go:build mage

package main

import (
	"fmt"

	"github.com/magefile/mage/mg"
)

// Fixing Linting
func LintFix() error {
	mg.Deps(golangciLintCheck)
	output, err := golangciLintTool.output("run", "--fix", "--timeout", "10m")
	if err != nil {
		fmt.Printf("\nOutput: %s\n", output)
		return err
	}
	return nil
}

// Linting Check
func CheckLint() error {
	mg.Deps(golangciLintCheck)
	output, err := golangciLintTool.output("run", "--timeout", "10m")
	if err != nil {
		fmt.Printf("\nOutput: %s\n", output)
		return err
	}
	return nil
}
