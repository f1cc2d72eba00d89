package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/cryptofs/pkg/metrics"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the repository and serve /metrics, /health, /ready, /live until interrupted",
	Long: `serve opens the repository (read-only only when --read-only is
given) and holds it open, exposing
its entity map cache size and content map entry count as Prometheus
gauges alongside the usual process counters. It never stages a
transaction itself; it exists for operators to point a scrape config
at a long-lived cryptofs process.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		r, err := openRepoFromFlags(cmd)
		if err != nil {
			return err
		}
		defer r.Close()

		metrics.SetVersion(Version)
		metrics.RegisterComponent("backend", true, "")
		metrics.RegisterComponent("emap", true, "")

		collector := metrics.NewCollector(func() metrics.Stats {
			return metrics.Stats{
				EmapCacheSize:     r.FS().EmapCacheLen(),
				ContentMapEntries: r.FS().ContentMap().Len(),
			}
		})
		collector.Start()
		defer collector.Stop()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		mux.HandleFunc("/health", metrics.HealthHandler())
		mux.HandleFunc("/ready", metrics.ReadyHandler())
		mux.HandleFunc("/live", metrics.LivenessHandler())

		server := &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			fmt.Printf("cryptofs serve listening on %s\n", addr)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		select {
		case <-sigCh:
			fmt.Println("\nShutting down...")
		case err := <-errCh:
			return fmt.Errorf("serve: %w", err)
		}

		return server.Close()
	},
}

func init() {
	serveCmd.Flags().String("addr", ":9090", "Address to serve /metrics and health endpoints on")
}
