package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/scene"
	"github.com/apache/harmony-sub021/pkg/toolkit"
)

func runSceneCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	scenePath := fs.String("scene", "", "scene file to replay")
	asJSON := fs.Bool("json", false, "print events as JSON lines")
	configPath := fs.String("config", "", "config file (defaults to ~/.harmony and ./.harmony)")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}
	if *scenePath == "" && fs.NArg() > 0 {
		*scenePath = fs.Arg(0)
	}
	if *scenePath == "" {
		return withExitCode(errors.New("usage: harmony run -scene <file.yaml>"), exitUsage)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	s, err := scene.Load(*scenePath)
	if err != nil {
		return err
	}

	var opts []toolkit.Option
	if cfg.Logging.Dir == "" {
		opts = append(opts, toolkit.WithLogger(logging.New(stderr, "run")))
	}
	tk, err := toolkit.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer tk.Close()

	res, err := tk.RunScene(ctx, s)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		for _, ev := range res.Events {
			if err := enc.Encode(ev); err != nil {
				return err
			}
		}
	} else {
		for _, line := range res.Lines() {
			fmt.Fprintln(stdout, line)
		}
	}

	if !res.Passed() {
		for _, f := range res.Failures {
			fmt.Fprintf(stderr, "FAIL %s\n", f)
		}
		return withExitCode(fmt.Errorf("%d check(s) failed", len(res.Failures)), exitFailed)
	}
	return nil
}
