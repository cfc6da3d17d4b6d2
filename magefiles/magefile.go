//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	composeFile = "docker-compose.yml"
	serverBin   = "bin/lingochat"
	adminBin    = "bin/lingochat-admin"
)

// Build compiles the server and the admin CLI.
func Build() error {
	fmt.Println("Building binaries...")
	if err := sh.RunV("go", "build", "-o", serverBin, "./cmd"); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", adminBin, "./cmd/admin")
}

// Test runs the unit and socket tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Run starts the backing services and the server.
func Run() error {
	mg.Deps(DockerUp)
	return sh.RunV("go", "run", "./cmd")
}

func DockerUp() error {
	fmt.Println("Starting Postgres and Redis...")
	return sh.RunV("docker", "compose", "-f", composeFile, "up", "-d")
}

func DockerDown() error {
	fmt.Println("Stopping Postgres and Redis...")
	return sh.RunV("docker", "compose", "-f", composeFile, "down")
}

func Clean() {
	fmt.Println("Cleaning up...")
	os.RemoveAll("bin")
	mg.Deps(DockerDown)
}
