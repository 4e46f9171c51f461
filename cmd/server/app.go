package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"blog/internal/auth"
	"blog/internal/config"
	"blog/internal/db"
	"blog/internal/store"
)

// app holds what every subcommand needs: config, logger and a migrated
// database.
type app struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	db     *sql.DB
	store  *store.Store
	rdb    *redis.Client
}

func newApp(g globalFlags) (*app, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	dbc, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Migrate(context.Background(), dbc); err != nil {
		dbc.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &app{cfg: cfg, logger: logger, db: dbc, store: store.New(dbc)}, nil
}

func newLogger(level string) (*zap.SugaredLogger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	l, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// sessionStore picks the session backend named in the config.
func (a *app) sessionStore(ctx context.Context) (auth.SessionStore, error) {
	ttl := a.cfg.Session.TTL
	if a.cfg.Session.Backend != config.BackendRedis {
		return auth.NewManager(a.db, ttl), nil
	}
	rdb, err := auth.NewRedisClient(ctx, a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	a.rdb = rdb
	return auth.NewRedisStore(rdb, ttl), nil
}

func (a *app) authService(sessions auth.SessionStore) *auth.Service {
	return auth.NewService(a.store, sessions, a.logger)
}

func (a *app) Close() {
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.db.Close()
	_ = a.logger.Sync()
}
