package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"    // .env loading for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/waylysyn-hub/SchoolManagementAPI/internal/config"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/database"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/handler"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/middleware"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/queue"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/repository"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/revocation"
	"github.com/waylysyn-hub/SchoolManagementAPI/internal/router"
)

func main() {
	// Load .env if present; real deployments set the environment
	// directly and have no file.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis is optional: without it the revocation cache and the login
	// rate limiter disable themselves and every lookup hits MySQL.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable; revocation cache and rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	perms := repository.NewPermissionRepo(db)
	revoked := repository.NewRevocationRepo(db)
	registry := revocation.NewRegistry(revoked, rdb, cfg.RevokedCacheTTL)

	// Background pruning of revocation records whose copied expiry has
	// passed; see RevocationRepo.PruneExpired for why this is safe.
	go func() {
		t := time.NewTicker(cfg.PruneInterval)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if n, err := registry.PruneExpired(ctx, time.Now().UTC()); err != nil {
				log.Printf("revocation prune failed: %v", err)
			} else if n > 0 {
				log.Printf("revocation prune removed %d expired records", n)
			}
			cancel()
		}
	}()

	// Audit consumer runs for the lifetime of the process and
	// reconnects on broker failures.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, router.Deps{
		Auth:        handler.NewAuthHandler(cfg, users, perms, registry),
		Permissions: handler.NewPermissionHandler(perms),
		Users:       handler.NewUserHandler(cfg, users, perms),
		JWTSecret:   cfg.JWTSecret,
		Registry:    registry,
		LoginLimit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
