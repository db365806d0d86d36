package main

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"

	"pomodoro-backend/internal/config"
	"pomodoro-backend/internal/database"
	"pomodoro-backend/internal/repository"
)

// app holds the long-lived resources every command needs.
type app struct {
	cfg   *config.Config
	store repository.SessionStore
	pool  *pgxpool.Pool
	redis *database.RedisClients
}

func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{cfg: cfg}

	// ──── Session Store ────
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("PostgreSQL connection failed: %w", err)
		}
		a.pool = pool
		log.Println("✓ PostgreSQL connected")

		applied, err := database.RunMigrations(ctx, pool, cfg.MigrationsDir)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("database migration failed: %w", err)
		}
		log.Printf("✓ Database migrations applied (%d new)", applied)

		a.store = repository.NewPostgresSessionStore(pool)

	default:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("SQLite open failed: %w", err)
		}
		store, err := repository.NewSQLiteSessionStore(ctx, db)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("SQLite schema setup failed: %w", err)
		}
		a.store = store
		log.Printf("✓ SQLite session store ready (%s)", cfg.SQLitePath)
	}

	// ──── Redis (optional) ────
	if cfg.RedisURL != "" {
		clients, err := database.NewRedisClients(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("Redis connection failed: %w", err)
		}
		a.redis = clients
		a.store = repository.NewCachedSessionStore(a.store, clients.Cache)
		log.Println("✓ Redis connected (latest-session cache, pub/sub)")
	}

	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Printf("Closing session store: %v", err)
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
