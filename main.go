// ABOUTME: Entry point for the pcmbridge command
// ABOUTME: Runs the cobra root command and reports errors
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Resonate-Protocol/pcmbridge/internal/cli"
)

func main() {
	ctx := &cli.Context{}
	if err := cli.RootCommand(ctx).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
