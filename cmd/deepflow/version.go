package main

import (
	"context"
	"fmt"
	"runtime/debug"
)

// VersionCmd displays version information.
type VersionCmd struct{}

// Run executes the deepflow version command.
func (cmd VersionCmd) Run(ctx context.Context) error {
	version := "(devel)"
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		version = info.Main.Version
	}
	fmt.Fprintf(stdout, "deepflow %s\n", version)
	return nil
}
