package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/seat-booking/internal/config"
	"github.com/iliyamo/seat-booking/internal/database"
	"github.com/iliyamo/seat-booking/internal/handler"
	"github.com/iliyamo/seat-booking/internal/middleware"
	"github.com/iliyamo/seat-booking/internal/queue"
	"github.com/iliyamo/seat-booking/internal/repository"
	"github.com/iliyamo/seat-booking/internal/router"
	"github.com/iliyamo/seat-booking/internal/service"
)

type stores struct {
	seats  repository.SeatStore
	users  repository.UserDirectory
	accts  repository.UserAccounts
	tokens repository.TokenStore
	db     *sql.DB
}

func openStores(cfg config.Config, logger *log.Logger) stores {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		m := repository.NewMemoryStore()
		return stores{seats: m, users: m, accts: m, tokens: m}
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	if cfg.DBMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := database.Migrate(ctx, db); err != nil {
			logger.Fatalf("database: %v", err)
		}
	}
	users := repository.NewUserRepo(db)
	return stores{
		seats:  repository.NewSeatRepo(db),
		users:  users,
		accts:  users,
		tokens: repository.NewTokenRepo(db),
		db:     db,
	}
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()
	cfg := config.Load()

	logger := log.New("booking")
	logger.SetHeader("${time_rfc3339} ${level} ${prefix} ${short_file}:${line}")
	if cfg.Env == "prod" {
		logger.SetLevel(log.INFO)
	} else {
		logger.SetLevel(log.DEBUG)
	}

	st := openStores(cfg, logger)
	if st.db != nil {
		defer st.db.Close()
	}

	ready := &handler.ReadyHandler{}
	if st.db != nil {
		ready.DB = st.db
	}
	rlCfg := config.LoadRateLimitConfig()
	limit := middleware.RateLimit(rlCfg, nil) // pass-through until Redis answers
	if rlCfg.Enabled {
		rdb, err := config.NewRedisClient(config.LoadRedisConfig())
		if err != nil {
			logger.Warnf("redis unavailable, rate limiting disabled: %v", err)
		} else {
			defer rdb.Close()
			ready.Redis = rdb
			limit = middleware.RateLimit(rlCfg, rdb)
		}
	}

	var events service.EventPublisher
	if cfg.Broker.Enabled() {
		events = queue.NewPublisher(cfg.Broker.URL, cfg.Broker.Queue)
	} else {
		logger.Info("RABBITMQ_URL not set, seat events are not published")
	}
	svc := service.NewBookingService(st.seats, st.users, events, logger)

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Errorf("%s %s %d %s ip=%s err=%v", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP, v.Error)
				return nil
			}
			logger.Infof("%s %s %d %s ip=%s", v.Method, v.URI, v.Status, v.Latency, v.RemoteIP)
			return nil
		},
	}))

	router.RegisterRoutes(e, ready)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, st.accts, st.tokens), limit)
	router.RegisterBooking(e, handler.NewBookingHandler(svc), cfg.JWTSecret, limit)

	go func() {
		addr := ":" + cfg.Port
		logger.Infof("listening on %s (env=%s, store=%s)", addr, cfg.Env, cfg.Store)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}
