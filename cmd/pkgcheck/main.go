// Command pkgcheck audits an IPS package repository and the oi-userland
// tree that builds it.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matzehuels/pkgcheck/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.New(os.Stderr, cli.LogInfo).RootCommand().ExecuteContext(ctx)
	stop()

	code := cli.ExitCode(err)
	if code == 1 {
		fmt.Fprintln(os.Stderr, "pkgcheck:", err)
	}
	os.Exit(code)
}
