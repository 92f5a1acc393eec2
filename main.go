// Package main is the entry point for the liftoff application
package main

import (
	"github.com/orbitalops/liftoff/cmd"
)

func main() {
	cmd.Execute()
}
