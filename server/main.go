package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"nestlist/internal/auth"
	"nestlist/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	st, err := store.Open(openCtx, cfg.Database.Driver, cfg.Database.URL)
	if err != nil {
		log.Error("db open", "driver", cfg.Database.Driver, "err", err)
		return err
	}
	defer st.Close()
	if cfg.Database.Driver == store.DriverPostgres {
		st.DB().SetMaxOpenConns(10)
		st.DB().SetMaxIdleConns(5)
		st.DB().SetConnMaxLifetime(30 * time.Minute)
	}
	if err := st.Migrate(openCtx); err != nil {
		log.Error("migrate", "err", err)
		return err
	}

	if cfg.Auth.Secret == "" {
		b := make([]byte, 32)
		if _, err := rand.Read(b); err != nil {
			return err
		}
		cfg.Auth.Secret = hex.EncodeToString(b)
		log.Warn("AUTH_SECRET not set; sessions will not survive a restart")
	}
	tokens, err := auth.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	a := newAPI(st, tokens, cfg, log)
	srv := &http.Server{Addr: cfg.Addr, Handler: a.handler(),
		ReadTimeout: 15 * time.Second, ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout: 120 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		ctxSh, cancelSh := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelSh()
		return srv.Shutdown(ctxSh)
	})
	return g.Wait()
}
