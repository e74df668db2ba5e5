package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alex-galey/docking-mcp/internal/cli"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
