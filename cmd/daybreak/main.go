// Package main provides the entry point for the daybreak command.
package main

import (
	"github.com/dukerupert/daybreak/internal/cli"
)

func main() {
	cli.Execute()
}
