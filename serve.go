package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/harrisonrobin/planner/pkg/logging"
	"github.com/harrisonrobin/planner/pkg/server"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run an in-memory planner API",
	Long: `Serve /api/tasks/ and /api/habits/ from memory, plus /health and
/metrics. Data is lost when the server stops.

Examples:
  planner serve
  planner serve --host 0.0.0.0 --port 9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "listen host (overrides server.host)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "listen port (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logging.Sync(logger)

	sc := &server.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}
	if serveHost != "" {
		sc.Host = serveHost
	}
	if servePort != 0 {
		sc.Port = servePort
	}

	srv, err := server.NewServer(server.NewRepository(), logger, sc)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()
	fmt.Fprintf(cmd.OutOrStdout(), "planner api listening on http://%s:%d/api\n", sc.Host, sc.Port)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-cmd.Context().Done():
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
