// Command statehubd serves per-entity session state over HTTP and
// WebSocket, backed by a configurable durable store.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/supabase-community/supabase-go"

	"github.com/creastat/statehub/actor"
	"github.com/creastat/statehub/server"
	"github.com/creastat/statehub/store"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "statehubd",
		Short:         "Per-entity session-state service",
		Long:          "statehubd tracks sessions, decisions and context per entity, persists every mutation to a durable store, and streams change events to WebSocket subscribers.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          run,
	}

	flags := rootCmd.Flags()
	flags.String("addr", ":8080", "listen address")
	flags.String("store", "memory", "durable store driver (memory|redis|supabase)")
	flags.String("redis-url", "redis://localhost:6379/0", "Redis connection URL")
	flags.Duration("redis-ttl", 0, "TTL for Redis entity keys (0 = no expiry)")
	flags.String("supabase-url", "", "Supabase project URL")
	flags.String("supabase-key", "", "Supabase API key")
	flags.String("supabase-table", "entity_state", "Supabase table for entity rows")
	flags.Duration("session-ttl", actor.DefaultSessionTTL, "session lifetime")
	flags.Int("decision-cap", actor.DefaultDecisionCap, "maximum decision log length per entity")
	flags.Duration("decision-retention", actor.DefaultDecisionRetention, "decision age purged by the sweep")
	flags.Duration("sweep-interval", actor.DefaultSweepInterval, "periodic cleanup interval")
	flags.Duration("idle-timeout", actor.DefaultIdleTimeout, "idle time before an actor is unloaded")

	return rootCmd
}

func run(cmd *cobra.Command, _ []string) error {
	v := viper.New()
	v.SetEnvPrefix("STATEHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := buildStore(v)
	if err != nil {
		return err
	}
	defer db.Close()

	router := actor.NewRouter(db,
		actor.WithLogger(logger),
		actor.WithSessionTTL(v.GetDuration("session-ttl")),
		actor.WithDecisionCap(v.GetInt("decision-cap")),
		actor.WithDecisionRetention(v.GetDuration("decision-retention")),
		actor.WithSweepInterval(v.GetDuration("sweep-interval")),
		actor.WithIdleTimeout(v.GetDuration("idle-timeout")),
	)
	defer router.Shutdown()

	srv := &http.Server{
		Addr:              v.GetString("addr"),
		Handler:           server.New(router, server.WithLogger(logger)).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "store", v.GetString("store"))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// buildStore constructs the configured durable store driver.
func buildStore(v *viper.Viper) (store.Store, error) {
	switch store.Type(v.GetString("store")) {
	case store.TypeMemory:
		return store.New(store.TypeMemory)

	case store.TypeRedis:
		opt, err := redis.ParseURL(v.GetString("redis-url"))
		if err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		return store.New(store.TypeRedis,
			store.WithRedisClient(redis.NewClient(opt)),
			store.WithRedisTTL(v.GetDuration("redis-ttl")),
		)

	case store.TypeSupabase:
		client, err := supabase.NewClient(v.GetString("supabase-url"), v.GetString("supabase-key"), nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create supabase client: %w", err)
		}
		return store.New(store.TypeSupabase,
			store.WithSupabaseClient(client),
			store.WithSupabaseTable(v.GetString("supabase-table")),
		)

	default:
		return nil, fmt.Errorf("unknown store driver %q", v.GetString("store"))
	}
}
