package main

import (
	"os"

	"github.com/nimasrn/xpensemate/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	err := execute(&app{}, os.Args[1:], os.Stdout, os.Stderr)
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
