package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinepiu-booking/internal/booking"
	"github.com/iliyamo/cinepiu-booking/internal/config"
	"github.com/iliyamo/cinepiu-booking/internal/database"
	"github.com/iliyamo/cinepiu-booking/internal/handler"
	"github.com/iliyamo/cinepiu-booking/internal/logger"
	"github.com/iliyamo/cinepiu-booking/internal/middleware"
	"github.com/iliyamo/cinepiu-booking/internal/programming"
	"github.com/iliyamo/cinepiu-booking/internal/queue"
	"github.com/iliyamo/cinepiu-booking/internal/repository"
	"github.com/iliyamo/cinepiu-booking/internal/router"
	"github.com/iliyamo/cinepiu-booking/internal/service"
)

func main() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	// Bootstrap logger for config errors; replaced once the level is known.
	if err := logger.Init("info"); err != nil {
		panic(err)
	}
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if err := logger.Init(cfg.LogLevel); err != nil {
		logger.Fatal("init logger", zap.Error(err))
	}
	defer logger.Sync()
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	movies := repository.NewMovieRepo(db)
	rooms := repository.NewRoomRepo(db)
	seats := repository.NewSeatRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	reservations := repository.NewReservationRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	bc := cfg.Booking
	opts := []booking.Option{
		booking.WithLocation(bc.Location),
		booking.WithPricing(booking.Pricing{StandardCents: bc.PriceStandardCents, MemberCents: bc.PriceMemberCents}),
		booking.WithSeatCap(bc.MaxSeatsPerCustomer),
		booking.WithCancelCutoff(bc.CancelCutoff),
		booking.WithLogger(log.Named("booking")),
	}
	if cfg.RabbitMQURL != "" {
		opts = append(opts, booking.WithPublisher(service.NewEventPublisher(cfg.RabbitMQURL, log.Named("publisher"))))
		startConsumer(ctx, cfg, log)
	} else {
		log.Info("RABBITMQ_URL not set, booking events disabled")
	}
	engine := booking.NewEngine(booking.NewSQLStore(db, seats, showtimes, reservations), opts...)

	programmer := programming.NewService(
		programming.NewSQLStore(db, movies, rooms, showtimes, reservations),
		programming.WithLocation(bc.Location),
		programming.WithLogger(log.Named("programming")),
	)

	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	router.Register(e, router.Deps{
		Log:          log,
		JWTSecret:    cfg.JWTSecret,
		RateLimit:    middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log),
		BookingLimit: middleware.NewTokenBucket(config.LoadBookingRateLimitConfig(), rdb, log),
		Cache:        cache,
		Health:       handler.Health(db),
		Auth:         handler.NewAuthHandler(cfg, users, tokens),
		Catalog:      handler.NewCatalogHandler(movies, showtimes, seats, reservations, bc.Location),
		Booking:      handler.NewBookingHandler(engine, users, reservations, movies, bc.Location),
		Programming:  handler.NewProgrammingHandler(programmer, cache, bc.Location),
		Rooms:        handler.NewRoomHandler(rooms, cache),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("tz", bc.TimeZone))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", zap.Error(err))
	}
}

// startConsumer runs the audit consumer until ctx is cancelled. A broken
// audit log path only disables the consumer.
func startConsumer(ctx context.Context, cfg config.Config, log *zap.Logger) {
	if err := os.MkdirAll(filepath.Dir(cfg.BookingLogPath), 0o755); err != nil {
		log.Error("create booking log dir", zap.Error(err))
		return
	}
	audit, err := logger.NewFile(cfg.BookingLogPath)
	if err != nil {
		log.Error("open booking log", zap.Error(err))
		return
	}
	c := queue.NewConsumer(cfg.RabbitMQURL, audit, log.Named("consumer"))
	go func() {
		defer audit.Sync()
		if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("consumer stopped", zap.Error(err))
		}
	}()
}
