//go:build mage
// +build mage

// Public domain.

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/magefile/mage/mg"
)

// Default target to run when none is specified
// If not set, running mage will list available targets
var Default = Build

// Build builds mapds and simds into ./bin.
func Build() error {
	mg.Deps(BuildMapds, BuildSimds)
	fmt.Println("Compilation finished")
	return nil
}

func goBuild(out, pkg string, env ...string) error {
	cmd := exec.Command("go", "build", "-o", out, pkg)
	cmd.Env = append(os.Environ(), env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func BuildMapds() error {
	fmt.Println("Building mapds executable...")
	return goBuild("./bin/mapds", ".")
}

func BuildSimds() error {
	fmt.Println("Building simds executable...")
	return goBuild("./bin/simds", "./simds")
}

// Test runs all package tests.
func Test() error {
	cmd := exec.Command("go", "test", "./...")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// Dist cross compiles mapds for common platforms into ./dist.
func Dist() error {
	mg.Deps(Test)
	for _, p := range [][2]string{
		{"linux", "amd64"},
		{"darwin", "arm64"},
		{"windows", "amd64"},
	} {
		out := filepath.Join("dist", fmt.Sprintf("mapds-%s-%s", p[0], p[1]))
		if p[0] == "windows" {
			out += ".exe"
		}
		fmt.Println("Building", out)
		if err := goBuild(out, ".",
			"GOOS="+p[0], "GOARCH="+p[1], "CGO_ENABLED=0"); err != nil {
			return err
		}
	}
	return nil
}

// Clean removes build output.
func Clean() error {
	fmt.Println("Cleaning...", runtime.GOOS)
	for _, d := range []string{"bin", "dist"} {
		if err := os.RemoveAll(d); err != nil {
			return err
		}
	}
	return nil
}
