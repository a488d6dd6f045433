package main // Entry point package

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/famasyang/flashcard/internal/config"
	"github.com/famasyang/flashcard/internal/database"
	"github.com/famasyang/flashcard/internal/handler"
	"github.com/famasyang/flashcard/internal/middleware"
	"github.com/famasyang/flashcard/internal/queue"
	"github.com/famasyang/flashcard/internal/repository"
	"github.com/famasyang/flashcard/internal/router"
)

func main() {
	// .env is a development convenience; in production the variables come
	// from the environment and the file is simply absent.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(migrateCtx, db); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	cards, err := repository.NewCardStore(cfg.CardsDir)
	if err != nil {
		log.Fatalf("open card store: %v", err)
	}

	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)
	recordRepo := repository.NewRecordRepo(db)

	setup, err := handler.NewSetupToken(cfg.SetupToken)
	if err != nil {
		log.Fatalf("init setup token: %v", err)
	}

	authH := handler.NewAuthHandler(cfg, userRepo, tokenRepo, cards)
	cardH := handler.NewCardHandler(cards)
	recordH := handler.NewRecordHandler(recordRepo)
	adminH := handler.NewAdminHandler(cfg, userRepo, tokenRepo, recordRepo, cards, setup)

	// Redis backs the rate limiter and the response cache. NewRedisClient
	// returns nil when Redis is unconfigured or unreachable and both
	// middlewares degrade to pass-through in that case.
	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	// The limiter goes to the router, not e.Use: protected groups attach
	// it after JWTAuth so buckets key on the authenticated username.
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e, adminH, recordH, cache, limit)
	router.RegisterAuth(e, authH, cfg.JWTSecret, limit)
	router.RegisterCards(e, cardH, recordH, cfg.JWTSecret, limit)
	router.RegisterAdmin(e, adminH, cfg.JWTSecret, limit)

	// Activity consumer drains learning.activity into logs/activity.log.
	// It runs its own reconnect loop, so a missing broker only costs log
	// lines, never requests.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
