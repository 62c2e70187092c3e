// Command svmgrid trains, evaluates and tunes kernel classifiers on
// delimited datasets described by a YAML configuration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "svmgrid: %v\n", err)
		stop()
		os.Exit(1)
	}
}
