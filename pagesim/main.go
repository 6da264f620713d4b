// Package main is the entry point of the paged memory simulator.
package main

import (
	"github.com/sarchlab/pagesim/pagesim/cmd"
	"github.com/tebeka/atexit"
)

func main() {
	cmd.Execute()
	atexit.Exit(0)
}
