package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskfleet/taskfleet/internal/config"
	"github.com/taskfleet/taskfleet/internal/server"
	"github.com/taskfleet/taskfleet/internal/signals"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve task execution over HTTP",
	Long: `Serve task execution over HTTP.

POST /v1/tasks runs a task to a single JSON outcome. POST /v1/tasks/stream
delivers progress events as newline-delimited JSON. Operators can drop a
"reset-primary" file into .taskfleet/signals/ to return model selection to
the primary model, or a "stop" file to shut the server down.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := buildStack(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	watcher, err := signals.NewWatcher(".taskfleet", st.selector.ResetToPrimary)
	if err != nil {
		return fmt.Errorf("starting signal watcher: %w", err)
	}
	defer watcher.Close()

	srv := server.New(cfg.Server.Addr, st.orch, st.tracker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return shutdown(srv)
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ticker.C:
			if watcher.ShouldStop() {
				fmt.Fprintln(os.Stderr, "stop signal received, shutting down")
				watcher.ClearSignals()
				return shutdown(srv)
			}
		}
	}
}

func shutdown(srv *server.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
