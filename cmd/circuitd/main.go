package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/circuitgrid/internal/app"
	"github.com/vk/circuitgrid/internal/cli"
)

// main is the entrypoint for the circuitd application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW io.Writer, args []string) error {
	inv, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	a, err := app.NewApp(outW, inv.Config)
	if err != nil {
		return fmt.Errorf("a critical startup error occurred: %w", err)
	}

	switch inv.Mode {
	case cli.Check:
		defer a.Close()
		n, err := a.Check(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return &cli.ExitError{Code: 1, Message: fmt.Sprintf("%d design-rule problems found", n)}
		}
		return nil
	default:
		return a.Run(ctx)
	}
}
