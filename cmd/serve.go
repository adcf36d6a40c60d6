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

	"race-telemetry-dashboard/internal/api"
	"race-telemetry-dashboard/internal/client"
	"race-telemetry-dashboard/internal/config"
	"race-telemetry-dashboard/internal/dashboard"
	"race-telemetry-dashboard/internal/db"
	"race-telemetry-dashboard/internal/log"
	"race-telemetry-dashboard/internal/parser"
	"race-telemetry-dashboard/internal/web"
)

// newClient creates the racing API client from the global flags.
func newClient() (*client.Client, error) {
	timeout, err := config.ParseDuration("request-timeout", config.RequestTimeout, 10*time.Second)
	if err != nil {
		return nil, err
	}
	return client.New(config.APIURL,
		client.WithTimeout(timeout),
		client.WithLogger(log.Default().Named("client")),
	), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// serverCmd starts the dashboard server
func serverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the dashboard server",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			ttl, err := config.ParseDuration("session-ttl", config.SessionTTL, web.DefaultSessionTTL)
			if err != nil {
				return err
			}
			errorTimeout, err := config.ParseDuration("error-timeout", config.ErrorTimeout,
				dashboard.DefaultErrorTimeout)
			if err != nil {
				return err
			}

			logger := log.Default()
			factory := func() *dashboard.Controller {
				return dashboard.NewController(c,
					dashboard.WithAPIName(c.BaseURL()),
					dashboard.WithErrorTimeout(errorTimeout),
					dashboard.WithLogger(logger.Named("dashboard")),
				)
			}
			srv := web.NewServer(factory,
				web.WithLogger(logger.Named("web")),
				web.WithSessionTTL(ttl),
			)

			ctx, stop := signalContext()
			defer stop()

			logger.Info("starting dashboard",
				log.String("addr", config.Addr),
				log.String("api", c.BaseURL()))
			return srv.Serve(ctx, config.Addr)
		},
	}

	cmd.Flags().StringVar(&config.Addr, "addr", ":8050", "Listen address of the dashboard")
	cmd.Flags().StringVar(&config.SessionTTL, "session-ttl", config.DefaultSessionTTL,
		"Idle time after which a browser session is dropped")
	cmd.Flags().StringVar(&config.ErrorTimeout, "error-timeout", config.DefaultErrorTimeout,
		"Time an error banner stays visible")
	return cmd
}

// loadFixtures reads the fixture directory into a fresh in-memory database.
func loadFixtures(ctx context.Context) (*db.Database, error) {
	database, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	start := time.Now()
	stats, err := parser.LoadDir(ctx, config.FixturesDir, database, log.Default().Named("parser"))
	if err != nil {
		database.Close()
		return nil, err
	}
	log.Info("fixtures loaded",
		log.String("dir", config.FixturesDir),
		log.Int64("races", stats.Races),
		log.Int64("laps", stats.Laps),
		log.Int64("telemetry", stats.Telemetry),
		log.Duration("took", time.Since(start)))
	return database, nil
}

// apiCmd serves the racing API from fixture files
func apiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "api",
		Short: "Serve the racing API from fixture files",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			database, err := loadFixtures(ctx)
			if err != nil {
				return err
			}
			defer database.Close()

			logger := log.Default().Named("api")
			server := api.NewServer(database,
				api.WithLogger(logger),
				api.WithAllowedOrigins(config.AllowedOrigins),
			)
			srv := &http.Server{
				Addr:              config.APIAddr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 15 * time.Second,
				ReadTimeout:       15 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("racing API listening", log.String("addr", config.APIAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&config.APIAddr, "api-addr", ":8000", "Listen address of the racing API")
	cmd.Flags().StringVar(&config.FixturesDir, "fixtures", "fixtures", "Directory holding the fixture files")
	cmd.Flags().StringSliceVar(&config.AllowedOrigins, "allowed-origins", nil,
		"CORS origins accepted by the API (default all)")
	return cmd
}

// statsCmd shows the record counts of the fixture files
func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show fixture statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := loadFixtures(cmd.Context())
			if err != nil {
				return err
			}
			defer database.Close()

			stats, err := database.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("error getting stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Race Telemetry Fixtures")
			fmt.Fprintln(out, "=======================")
			fmt.Fprintf(out, "  Races:              %d\n", stats.Races)
			fmt.Fprintf(out, "  Laps:               %d\n", stats.Laps)
			fmt.Fprintf(out, "  Telemetry Samples:  %d\n", stats.Telemetry)
			fmt.Fprintf(out, "  Directory:          %s\n", config.FixturesDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&config.FixturesDir, "fixtures", "fixtures", "Directory holding the fixture files")
	return cmd
}
