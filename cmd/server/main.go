package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/venuepass/visitor-management/internal/admission"
	"github.com/venuepass/visitor-management/internal/config"
	"github.com/venuepass/visitor-management/internal/database"
	"github.com/venuepass/visitor-management/internal/handler"
	"github.com/venuepass/visitor-management/internal/middleware"
	"github.com/venuepass/visitor-management/internal/notifier"
	"github.com/venuepass/visitor-management/internal/queue"
	"github.com/venuepass/visitor-management/internal/realtime"
	"github.com/venuepass/visitor-management/internal/repository"
	"github.com/venuepass/visitor-management/internal/router"
)

// deniedRetention is how long denied entries are kept for audit before
// the maintenance loop prunes them.
const deniedRetention = 90 * 24 * time.Hour

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer func() { _ = db.Close() }()

	// Redis backs the rate limiter, the response cache and the realtime
	// status push. All three degrade gracefully when it is absent.
	rdb := config.NewRedisClient()
	hub := realtime.NewHub(rdb)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	premises := repository.NewPremiseRepo(db)
	configs := repository.NewFieldConfigRepo(db, cfg.PublicBaseURL)
	entries := repository.NewEntryRepo(db)
	visits := repository.NewVisitRepo(db)
	registered := repository.NewRegisteredUserRepo(db)

	store := repository.NewAdmissionStore(db, entries, visits)
	engine := admission.NewEngine(store, notifier.New(hub, premises))

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterPublic(e,
		handler.NewIntakeHandler(premises, configs, entries, registered),
		handler.NewStatusHandler(hub, entries, visits),
		handler.NewRegistrationHandler(cfg, registered, visits),
		limiter, cache)
	router.RegisterOwner(e, cfg.JWTSecret,
		handler.NewPremiseHandler(premises),
		handler.NewFieldConfigHandler(premises, configs),
		handler.NewAdmissionHandler(engine, premises, entries, visits))

	// Background notification consumer; runs its own reconnect loop.
	go func() {
		if err := queue.StartDecisionConsumer(); err != nil {
			log.Printf("decision consumer stopped: %v", err)
		}
	}()

	// Daily prune of old denied entries. Visits are never pruned.
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			n, err := entries.PruneDenied(ctx, time.Now().UTC().Add(-deniedRetention))
			cancel()
			if err != nil {
				log.Printf("prune denied entries: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("pruned %d denied entries", n)
			}
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
