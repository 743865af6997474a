package main

import (
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/apache/harmony-sub021/pkg/logging"
)

// runLogsCommand prints the tail of a JSONL log written under logging.dir.
// Without a file argument it reads errors.jsonl.
func runLogsCommand(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("logs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (defaults to ~/.harmony and ./.harmony)")
	count := fs.Int("n", 20, "number of events to show (0 for all)")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	path := fs.Arg(0)
	if path == "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		if cfg.Logging.Dir == "" {
			return withExitCode(fmt.Errorf("logging.dir is not set; pass a log file"), exitUsage)
		}
		path = filepath.Join(cfg.Logging.Dir, "errors.jsonl")
	}

	events, err := logging.ReadEvents(path, *count)
	if err != nil {
		return err
	}
	for _, ev := range events {
		fmt.Fprintf(stdout, "%s %-5s %-9s %s", ev.Timestamp.Format("15:04:05.000"), ev.Level, ev.Category, ev.EventType)
		if ev.Message != "" {
			fmt.Fprintf(stdout, ": %s", ev.Message)
		}
		keys := make([]string, 0, len(ev.Details))
		for k := range ev.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(stdout, " %s=%v", k, ev.Details[k])
		}
		fmt.Fprintln(stdout)
	}
	return nil
}
