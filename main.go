package main

import (
	"context"
	"fmt"
	"os"

	"github.com/corrlab/corrbuf/cmd"
	"github.com/corrlab/corrbuf/internal/buildinfo"
)

// Set by the linker at build time.
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	app := &cmd.Context{Build: buildinfo.NewContext(version, buildDate, "")}

	rootCmd := cmd.RootCommand(app)
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}
