package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-class-booking/internal/config"
	"github.com/iliyamo/gym-class-booking/internal/database"
	"github.com/iliyamo/gym-class-booking/internal/handler"
	"github.com/iliyamo/gym-class-booking/internal/identity"
	"github.com/iliyamo/gym-class-booking/internal/middleware"
	"github.com/iliyamo/gym-class-booking/internal/queue"
	"github.com/iliyamo/gym-class-booking/internal/repository"
	"github.com/iliyamo/gym-class-booking/internal/router"
	"github.com/iliyamo/gym-class-booking/internal/service"
	"github.com/iliyamo/gym-class-booking/internal/sweeper"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	pool := database.Pool{MaxOpen: cfg.DBMaxOpen, MaxIdle: cfg.DBMaxIdle}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, pool)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	sessions := repository.NewSessionRepo(db)
	occurrences := repository.NewOccurrenceRepo(db)
	reservations := repository.NewReservationRepo(db)
	members := repository.NewMemberRepo(db)
	tokens := repository.NewTokenRepo(db)
	store := repository.NewBookingStore(db, sessions, occurrences, reservations)

	publisher := queue.NewPublisher()
	bookings := service.NewBookingService(store, publisher)
	resolver := identity.NewResolver(cfg.JWTSecret, cfg.QRTokenTTL)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sw := sweeper.New(reservations, publisher, sweeperConfig(config.LoadSweeperConfig())).
		WithTokenPurger(tokens)
	go sw.Run(ctx)

	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true

	// Redis is optional; with no client both middlewares are no-ops.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting and response cache disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, members, tokens), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewSessionBrowseHandler(sessions, occurrences), cache)
	router.RegisterBooking(e,
		handler.NewBookingHandler(bookings, reservations),
		handler.NewCheckInHandler(bookings, resolver),
		cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminSessionHandler(sessions), cfg.JWTSecret)

	go func() {
		<-ctx.Done()
		if err := e.Shutdown(context.Background()); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Println(err)
	}
}

func sweeperConfig(c config.SweeperConfig) sweeper.Config {
	return sweeper.Config{
		Reminder24hEvery: c.Reminder24hEvery,
		Reminder2hEvery:  c.Reminder2hEvery,
		NoShowEvery:      c.NoShowEvery,
	}
}
