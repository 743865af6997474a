package main

import (
	"context"
	"flag"
	"io"

	"github.com/apache/harmony-sub021/pkg/logging"
	"github.com/apache/harmony-sub021/pkg/scene"
	"github.com/apache/harmony-sub021/pkg/toolkit"
)

// runServeCommand runs a long-lived toolkit with the inspector enabled. With
// the nats bridge the platform shim drives it over the bus.
func runServeCommand(ctx context.Context, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	bind := fs.String("bind", "", "inspector address (overrides inspector.bind)")
	scenePath := fs.String("scene", "", "scene whose windows are built at startup (steps are ignored)")
	configPath := fs.String("config", "", "config file (defaults to ~/.harmony and ./.harmony)")
	watch := fs.Bool("watch", false, "reload -config on change")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	cfg.Inspector.Enabled = true
	if *bind != "" {
		cfg.Inspector.Bind = *bind
	}

	var opts []toolkit.Option
	if cfg.Logging.Dir == "" {
		opts = append(opts, toolkit.WithLogger(logging.New(stderr, "serve")))
	}
	tk, err := toolkit.New(cfg, opts...)
	if err != nil {
		return err
	}
	defer tk.Close()

	if *scenePath != "" {
		s, err := scene.Load(*scenePath)
		if err != nil {
			return err
		}
		if _, err := scene.Build(tk.Coordinator(), tk.Manager(), s); err != nil {
			return err
		}
	}
	if *watch && *configPath != "" {
		if err := tk.WatchConfig(ctx, *configPath); err != nil {
			return err
		}
	}
	return tk.Run(ctx)
}
