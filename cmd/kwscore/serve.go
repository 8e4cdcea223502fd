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

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/kwscore/internal/hash"
	"github.com/ogulcanaydogan/kwscore/internal/server"
	"github.com/ogulcanaydogan/kwscore/internal/store"
)

// listenAndServe is replaced in tests.
var listenAndServe = func(srv *http.Server) error { return srv.ListenAndServe() }

func newServeCommand() *cobra.Command {
	var cfgPath, dbPath, addr string
	var cacheTTLSeconds int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run history over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			log := clog.FromContext(ctx)

			p, err := loadProject(ctx, cfgPath)
			if err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = p.historyPath()
			}
			if addr == "" {
				addr = p.env.ListenAddr
			}
			if !hash.FileExists(dbPath) {
				return fmt.Errorf("no run history at %s", dbPath)
			}
			h, err := store.OpenHistory(dbPath)
			if err != nil {
				return err
			}
			defer h.Close()

			cfg := server.Config{Addr: addr, CacheTTLSeconds: cacheTTLSeconds}
			s, err := server.New(h, cfg)
			if err != nil {
				return err
			}
			srv := server.NewHTTPServer(s, cfg)

			errc := make(chan error, 1)
			go func() { errc <- listenAndServe(srv) }()
			log.Infof("serving run history %s on %s", dbPath, addr)

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				log.Infof("shutting down")
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	def := server.DefaultConfig()
	cmd.Flags().StringVar(&cfgPath, "config", "", "project config path")
	cmd.Flags().StringVar(&dbPath, "db", "", "history database (default $KWSCORE_HISTORY_DB or the project history_path)")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default $KWSCORE_LISTEN_ADDR)")
	cmd.Flags().IntVar(&cacheTTLSeconds, "cache-ttl-seconds", def.CacheTTLSeconds, "best-run cache TTL in seconds")
	return cmd
}
