//go:build mage

package main

import (
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
)

// Analyze builds the CLI and runs the paper analysis stage over papers/.
func Analyze() error {
	mg.Deps(Build)
	return runCLI("analyze")
}

// Theory builds the CLI and incorporates the newest analysis into the
// cumulative theory.
func Theory() error {
	mg.Deps(Build)
	return runCLI("theory", "update", "--summary")
}

// Serve builds the CLI and starts the results dashboard.
func Serve() error {
	mg.Deps(Build)
	return runCLI("serve")
}

func runCLI(args ...string) error {
	cmd := exec.Command(filepath.Join(binDir, binName), args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
