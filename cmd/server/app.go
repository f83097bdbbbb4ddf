package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-contact-intake/internal/config"
	httpapi "github.com/tbourn/go-contact-intake/internal/http"
	"github.com/tbourn/go-contact-intake/internal/notify"
	"github.com/tbourn/go-contact-intake/internal/repo"
	"github.com/tbourn/go-contact-intake/internal/services"
	"github.com/tbourn/go-contact-intake/internal/storage"
)

// app is the wired process: one storage backend, an optional SQLite handle
// (sqlite backend and/or idempotency ledger) and the Gin engine.
type app struct {
	engine  *gin.Engine
	backend storage.Backend
	db      *gorm.DB
	closeFn storage.CloseFunc
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{closeFn: func(context.Context) error { return nil }}

	if cfg.Backend == config.BackendSQLite || cfg.IdempotencyEnabled {
		db, err := repo.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.DBPath, err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			_ = repo.Close(db)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		a.db = db
	}

	backend, closeFn, err := storage.Open(ctx, cfg, a.db)
	if err != nil {
		a.closeDB()
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}
	a.backend, a.closeFn = backend, closeFn

	svc := &services.ContactService{Backend: backend}
	deps := httpapi.Deps{Contact: svc}

	if cfg.IdempotencyEnabled {
		ledger := &services.IdempotencyLedger{DB: a.db, TTL: cfg.IdempotencyTTL}
		svc.Ledger = ledger
		deps.IdempotencyLookup = func(ctx context.Context, key string, now time.Time) (bool, error) {
			_, ok, err := ledger.Lookup(ctx, key, now)
			return ok, err
		}
	}

	if cfg.Notify.Enabled() {
		m, err := notify.New(cfg.Notify)
		if err != nil {
			_ = a.close(ctx)
			return nil, err
		}
		svc.Notifier = m
	}

	gin.SetMode(cfg.GinMode)
	a.engine = gin.New()
	if err := a.engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		_ = a.close(ctx)
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	httpapi.RegisterRoutes(a.engine, cfg, deps)

	log.Info().
		Str("backend", backend.Name()).
		Bool("idempotency", cfg.IdempotencyEnabled).
		Bool("notify", cfg.Notify.Enabled()).
		Msg("storage ready")
	return a, nil
}

func (a *app) server(cfg config.Config) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.engine,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// close releases the backend client, then the SQLite handle.
func (a *app) close(ctx context.Context) error {
	err := a.closeFn(ctx)
	return errors.Join(err, a.closeDB())
}

func (a *app) closeDB() error {
	if a.db == nil {
		return nil
	}
	db := a.db
	a.db = nil
	return repo.Close(db)
}
