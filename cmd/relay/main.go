package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pairchat/internal/app"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		envFile  string
		addr     string
		rate     float64
		burst    int
		logLevel string
		logJSON  bool
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "Serve the pairchat session relay",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig(envFile)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				cfg.ListenAddr = addr
			}
			if flags.Changed("rate") {
				cfg.RateLimit = rate
			}
			if flags.Changed("burst") {
				cfg.RateBurst = burst
			}
			if flags.Changed("log-level") {
				cfg.LogLevel = logLevel
			}
			if flags.Changed("log-json") {
				cfg.LogJSON = logJSON
			}
			log, err := app.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogJSON)
			if err != nil {
				return err
			}
			w, err := app.NewWire(cfg, log)
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           w.NewRelayServer(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info().Str("addr", srv.Addr).Float64("rate", cfg.RateLimit).Int("burst", cfg.RateBurst).Msg("relay listening")
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				log.Info().Msg("relay shutting down")
				return srv.Shutdown(sctx)
			})
			return g.Wait()
		},
	}
	f := cmd.Flags()
	f.StringVar(&envFile, "env-file", "", "dotenv file to load (default .env if present)")
	f.StringVar(&addr, "addr", ":8080", "listen address")
	f.Float64Var(&rate, "rate", 0, "frames per second allowed per connection")
	f.IntVar(&burst, "burst", 0, "rate limiter burst per connection")
	f.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.BoolVar(&logJSON, "log-json", false, "log JSON lines instead of console output")
	return cmd
}
