// Command kvops stores values in Redis through an instrumented cache, replays
// the recorded call history, checks store connectivity, and reports nginx log
// statistics from MongoDB.
//
//	kvops cache store foo 42 --typed --replay
//	kvops cache get 6f1c... --as int
//	kvops cache replay
//	kvops logstats --indent spaces
//	kvops health
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	return newRootCommand(stdout, stderr).execute(ctx, args)
}

func (r *rootCommand) execute(ctx context.Context, args []string) int {
	cmd := r.command()
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if shutdownErr := r.shutdown(context.WithoutCancel(ctx)); shutdownErr != nil && err == nil {
		err = shutdownErr
	}
	if err != nil {
		fmt.Fprintln(r.stderr, "Error:", err)
		return 1
	}
	return 0
}
