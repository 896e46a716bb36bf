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

	"github.com/rs/cors"

	"fortunad"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var e errSuppressUsage
		if !errors.As(err, &e) {
			fmt.Fprintln(os.Stderr, "Use -h to show usage")
		}
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	closeLog, err := initLogging(cfg.LogDir, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := fortuna.New(ctx)
	defer svc.Close()

	svc.SetFilePeer(cfg.FilePeer)
	svc.SetTCPPeer(cfg.TCPPeer, cfg.TCPTLS, cfg.TCPPort)
	if cfg.HeartbeatInterval > 0 {
		svc.SetSendByte(cfg.HeartbeatByte, cfg.HeartbeatInterval)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/random", randomHandler(svc))
	mux.HandleFunc("/status", statusHandler(svc))
	mux.HandleFunc("/healthz", healthzHandler)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	srv := &http.Server{
		Addr:              cfg.HTTPListen,
		Handler:           c.Handler(mux),
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("fortunad listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("http server shutdown: %v", err)
		}
	}

	return nil
}
