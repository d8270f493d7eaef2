package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/roniherschmann/linkgate/internal/config"
	"github.com/roniherschmann/linkgate/internal/core"
	httpapi "github.com/roniherschmann/linkgate/internal/http"
	"github.com/roniherschmann/linkgate/internal/session"
	"github.com/roniherschmann/linkgate/internal/store"
)

func main() {
	// Fast JSON logs by default; pretty if running in a TTY/dev
	if isatty() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	cfg := config.Load()

	var dsnFlag string
	flag.StringVar(&dsnFlag, "dsn", "", "SQLite DSN (overrides env DB_DSN)")
	flag.Parse()
	if dsnFlag != "" {
		cfg.DBDSN = dsnFlag
	}

	// Open, tune and migrate
	db, err := store.Open(cfg.DBDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer db.Close()

	kv, closeKV := openSessions(cfg)
	defer closeKV()

	svc := core.NewService(db, session.NewGates(kv, cfg.SessionTTL),
		core.WithStepDwell(cfg.GateStepDwell),
		core.WithBlockedDomains(cfg.BlockedDomains),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := svc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Fatal().Err(err).Msg("seed admin")
	}
	cancel()

	// HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           httpapi.NewRouter(cfg, svc, session.NewAdmins(kv, cfg.SessionTTL)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.Port).Strs("gate_prefixes", cfg.GatePrefixes).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal")
	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	log.Info().Msg("bye")
}

// openSessions picks the session backend named by SESSION_BACKEND.
func openSessions(cfg config.Config) (session.KV, func()) {
	switch cfg.SessionBackend {
	case "redis":
		rdb, err := session.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect redis")
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("sessions in redis")
		return rdb, func() { _ = rdb.Close() }
	case "memory", "":
		log.Info().Dur("ttl", cfg.SessionTTL).Msg("sessions in memory")
		return session.NewMemory(cfg.SessionTTL), func() {}
	default:
		log.Fatal().Str("backend", cfg.SessionBackend).Msg("unknown session backend")
		return nil, nil
	}
}

func isatty() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
