package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/apache/harmony-sub021/pkg/config"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := dispatch(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if errors.Is(err, flag.ErrHelp) {
		err = nil
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCodeForError(err))
}

func dispatch(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		if isInteractiveTerminal() {
			return runTUICommand(ctx, nil, stderr)
		}
		printHelp(stdout)
		return nil
	}
	switch args[0] {
	case "--version", "-v", "version":
		fmt.Fprintf(stdout, "harmony %s\n", version)
		return nil
	case "--help", "-h", "help":
		printHelp(stdout)
		return nil
	case "run":
		return runSceneCommand(ctx, args[1:], stdout, stderr)
	case "serve":
		return runServeCommand(ctx, args[1:], stderr)
	case "tui":
		return runTUICommand(ctx, args[1:], stderr)
	case "state":
		return runStateCommand(ctx, args[1:], stdout, stderr)
	case "logs":
		return runLogsCommand(args[1:], stdout, stderr)
	default:
		printHelp(stderr)
		return withExitCode(fmt.Errorf("unknown command %q", args[0]), exitUsage)
	}
}

func printHelp(w io.Writer) {
	fmt.Fprint(w, `harmony - focus and activation coordinator

Usage:
  harmony run -scene <file.yaml> [-json] [-config <file>]
  harmony serve [-bind <addr>] [-scene <file.yaml>] [-config <file>] [-watch]
  harmony tui [-config <file>]
  harmony state [-nats <url>] [-toolkit <id>] [-timeout <d>] [-json] [-config <file>]
  harmony logs [-n <count>] [-config <file>] [file.jsonl]
  harmony version

With no command on a terminal, harmony starts the tui demo.
`)
}

// loadConfig reads path when set, otherwise the user and project configs.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) &&
		term.IsTerminal(int(os.Stdout.Fd()))
}
