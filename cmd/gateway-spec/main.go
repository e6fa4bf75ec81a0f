package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/floxcristian/nx-starter/internal/cli"
	"github.com/floxcristian/nx-starter/internal/logging"
)

func main() {
	err := cli.Execute()
	logging.Sync()
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, cli.ErrUsage) {
		os.Exit(2)
	}
	os.Exit(1)
}
