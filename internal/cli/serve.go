package cli

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

	"github.com/CRISUM/MeetingTool/internal/api"
	"github.com/CRISUM/MeetingTool/internal/watcher"
)

var (
	serveHost string
	servePort int
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 8790, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the inbox and serve the HTTP API",
	Long: `Start the long-running service: recordings dropped into the inbox
directory are picked up automatically, and the HTTP API exposes task
status and controls. Unfinished tasks from a previous run resume.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.orch.Start(ctx); err != nil {
		return err
	}
	defer a.orch.Stop()

	opts := defaultTaskOptions(a)
	w, err := watcher.New(a.cfg.Paths.Input, func(ctx context.Context, path string) error {
		_, err := a.orch.Submit(ctx, path, opts)
		return err
	}, a.logger)
	if err != nil {
		return err
	}
	defer w.Stop()

	go func() {
		if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error(ctx, "Watcher stopped: %v", err)
		}
	}()

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", serveHost, servePort),
		Handler: api.NewServer(a.orch, a.store, a.logger).Handler(),
	}
	go func() {
		a.logger.Info(ctx, "API listening on http://%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(ctx, "API server: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		a.logger.Info(ctx, "Received %s, shutting down...", s)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn(ctx, "API shutdown: %v", err)
	}
	return nil
}
