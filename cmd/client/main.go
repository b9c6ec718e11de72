// Command client is a headless front end for the reservation backend.  It
// keeps the signed-in session in a file between runs.
//
//	client signin -email ana@example.com -password secret1
//	client restaurants -q sushi
//	client reserve -restaurant 3 -date 2030-05-01 -time 19:30 -party 2
//	client reservations
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

	"github.com/iliyamo/table-reservation/internal/app"
	"github.com/iliyamo/table-reservation/internal/config"
	"github.com/iliyamo/table-reservation/internal/logger"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		return 1
	}
	cfg := config.LoadClient()
	log, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "build logger:", err)
		return 1
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// One-shot commands do not need the background refresh loop.
	cfg.AutoRefresh = false
	a := app.New(cfg, log)
	a.Start(ctx)
	defer a.Close()

	if err := run(ctx, a, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) && !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		return 1
	}
	return 0
}

func run(ctx context.Context, a *app.App, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errUsage
	}
	cmd, ok := commands[args[0]]
	if !ok {
		usage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}
	return cmd.run(ctx, a, args[1:], out)
}
