// Package main provides the entry point for the cppc CLI.
package main

import (
	"github.com/colthorp/cppc-go/internal/cli"
)

func main() {
	cli.Execute()
}
