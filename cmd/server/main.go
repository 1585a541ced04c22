package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stregea/PartyChat/internal/server"
)

var addr string

func main() {
	rootCmd := &cobra.Command{
		Use:   "partychat-server",
		Short: "The PartyChat room server",
		Long:  "Runs the single-room PartyChat server: accepts client connections, authenticates usernames, and broadcasts every message to all connected clients.",
		RunE:  runServe,
	}

	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides PARTYCHAT_ADDR, default :12345)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := server.NewConfigFromEnv()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	server.SetConfig(cfg)

	quitCh := make(chan os.Signal, 1)
	signal.Notify(quitCh, os.Interrupt, syscall.SIGTERM)

	mux := server.SetupRoutes()
	httpServer := server.CreateServer(cfg.Addr, mux)

	errCh := make(chan error, 1)
	go func() {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case sig := <-quitCh:
		log.Printf("Received signal: %v", sig)
	case err := <-errCh:
		return err
	}

	if err := server.ShutdownServer(httpServer, cfg.ShutdownTimeout); err != nil {
		log.Printf("HTTP shutdown: %v", err)
	}
	if err := server.GetHub().Shutdown(cfg.ShutdownTimeout); err != nil {
		log.Printf("Hub shutdown: %v", err)
	}
	return nil
}
