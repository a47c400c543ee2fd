package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/fmfi-svt/podstrom/internal/cli"
	"github.com/fmfi-svt/podstrom/internal/output"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := cli.NewRootCmd(version, commit, date)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		output.NewSplog().Error("%v", err)
		stop()
		os.Exit(1)
	}
}
