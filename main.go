package main

import (
	"fmt"
	"os"

	"github.com/tphakala/trapcam/cmd"
	"github.com/tphakala/trapcam/internal/app"
	"github.com/tphakala/trapcam/internal/buildinfo"
)

// buildDate and version are set at build time with -ldflags
var (
	buildDate string
	version   string
)

func main() {
	rt := app.NewRuntime(&buildinfo.Context{
		Version:   version,
		BuildDate: buildDate,
	})

	if err := cmd.RootCommand(rt).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "trapcam: %v\n", err)
		os.Exit(1)
	}
}
