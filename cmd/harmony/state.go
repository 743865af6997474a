package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/apache/harmony-sub021/pkg/bus"
	herrors "github.com/apache/harmony-sub021/pkg/errors"
	"github.com/apache/harmony-sub021/pkg/native"
)

// runStateCommand asks a running toolkit for its focus state over the
// native bus, the way a platform shim would.
func runStateCommand(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("state", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (defaults to ~/.harmony and ./.harmony)")
	url := fs.String("nats", "", "NATS server URL (overrides native.nats_url)")
	toolkitID := fs.String("toolkit", "", "toolkit ID to query (any toolkit when empty)")
	timeout := fs.Duration("timeout", 0, "reply timeout (defaults to native.timeout)")
	asJSON := fs.Bool("json", false, "print the raw reply")
	if err := fs.Parse(args); err != nil {
		return withExitCode(err, exitUsage)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *url != "" {
		cfg.Native.NATSURL = *url
	}
	wait := cfg.Native.Timeout
	if *timeout > 0 {
		wait = *timeout
	}
	if wait <= 0 {
		wait = 2 * time.Second
	}

	nb, err := bus.NewNATSBus(bus.Config{URL: cfg.Native.NATSURL, Name: "harmony-state", Timeout: wait})
	if err != nil {
		return herrors.Wrap(err, herrors.ErrCodeNativeBridge, "failed to connect native bus").
			WithContext("url", cfg.Native.NATSURL)
	}
	defer nb.Close()
	return printState(ctx, stdout, nb, cfg.Native.SubjectPrefix, *toolkitID, wait, *asJSON)
}

func printState(ctx context.Context, w io.Writer, b bus.MessageBus, prefix, toolkitID string, wait time.Duration, asJSON bool) error {
	r, err := native.QueryState(ctx, b, prefix, toolkitID, wait)
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(w).Encode(r)
	}
	fmt.Fprintf(w, "toolkit %s\n", r.Toolkit)
	fmt.Fprintf(w, "  focus owner:    %s\n", r.FocusOwner)
	fmt.Fprintf(w, "  focused window: %s\n", r.FocusedWindow)
	fmt.Fprintf(w, "  active window:  %s\n", r.ActiveWindow)
	return nil
}
