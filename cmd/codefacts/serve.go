package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"codefacts/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP API server",
	Long: `Start the codefacts HTTP API server. Every query of the CLI is available
as a REST endpoint under /v1/projects/{project}. When server.tokenHash is
configured, requests must carry "Authorization: Bearer <token>".

Examples:
  codefacts serve
  codefacts serve --addr 0.0.0.0:9130`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Address to listen on (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	server := api.NewServer(serveAddr, s.app, s.logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()
	fmt.Fprintln(cmd.ErrOrStderr(), "Press Ctrl+C to stop")

	select {
	case err := <-serverErr:
		if err != nil {
			s.logger.Error("Server error", "error", err)
			return err
		}
	case sig := <-shutdown:
		s.logger.Info("Received shutdown signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			s.logger.Error("Error during shutdown", "error", err)
			return err
		}
		s.logger.Info("Server stopped gracefully")
	}
	return nil
}
