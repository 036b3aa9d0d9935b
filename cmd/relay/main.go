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

	logpkg "argoya/internal/log"
	"argoya/internal/relay"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		addr        string
		ttl         time.Duration
		sweep       time.Duration
		maxMessages int
		logLevel    string
		pretty      bool
	)
	cmd := &cobra.Command{
		Use:          "relay",
		Short:        "In-memory development relay for argoya",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, closer := logpkg.New(logpkg.Config{Level: logLevel, Pretty: pretty, Component: "relay"})
			defer closer.Close()

			srv := relay.NewServer(
				relay.WithLogger(logger),
				relay.WithSessionTTL(ttl),
				relay.WithMaxMessages(maxMessages),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go srv.RunJanitor(ctx, sweep)

			hs := &http.Server{
				Addr:              addr,
				Handler:           srv,
				ReadHeaderTimeout: 5 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() { errCh <- hs.ListenAndServe() }()
			logger.Info().Str("addr", addr).Dur("session_ttl", ttl).Msg("relay listening")

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := hs.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info().Msg("relay stopped")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "listen address")
	f.DurationVar(&ttl, "ttl", relay.DefaultSessionTTL, "inactivity before a session expires")
	f.DurationVar(&sweep, "sweep", relay.DefaultSweepInterval, "how often expired sessions are removed")
	f.IntVar(&maxMessages, "max-messages", relay.DefaultMaxMessages, "broadcast messages retained")
	f.StringVar(&logLevel, "log-level", "info", "log level")
	f.BoolVar(&pretty, "pretty", false, "human-readable console logs")
	return cmd
}
