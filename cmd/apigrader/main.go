package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/build-flow-labs/apigrader/internal/grader/cli"
)

const version = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.Version = version
	err := cli.Execute(ctx)
	stop()
	if err != nil {
		// cobra has already printed the error; a failed grade gate lands here too.
		os.Exit(1)
	}
}
