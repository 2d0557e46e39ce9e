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

	if err := newApp(ctx, os.Stdout).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "roadsim:", err)
		stop()
		os.Exit(1)
	}
}
