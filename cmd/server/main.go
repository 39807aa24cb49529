package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/irisova/flower-order-reservation/internal/clock"
	"github.com/irisova/flower-order-reservation/internal/config"
	"github.com/irisova/flower-order-reservation/internal/database"
	"github.com/irisova/flower-order-reservation/internal/handler"
	appmw "github.com/irisova/flower-order-reservation/internal/middleware"
	"github.com/irisova/flower-order-reservation/internal/queue"
	"github.com/irisova/flower-order-reservation/internal/repository"
	"github.com/irisova/flower-order-reservation/internal/router"
	"github.com/irisova/flower-order-reservation/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()
	log := config.NewLogger(cfg.Env)

	loc, err := time.LoadLocation(cfg.MarketTZ)
	if err != nil {
		log.WithError(err).Fatalf("invalid MARKET_TZ %q", cfg.MarketTZ)
	}

	sqlDB, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer sqlDB.Close()
	if err := database.Migrate(sqlDB, cfg.DBName); err != nil {
		log.WithError(err).Fatal("schema migration failed")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and slot caching disabled")
	}

	db := repository.NewDB(sqlDB)
	users := repository.NewUserRepo(db)
	sellers := repository.NewSellerRepo(db)
	capacity := repository.NewCapacityRepo(db)
	stock := repository.NewStockRepo(db)
	cart := repository.NewCartRepo(db)
	orders := repository.NewOrderRepo(db)

	clk := clock.NewSystem()
	ttl := time.Duration(cfg.ReservationTTL) * time.Second

	cartSvc := service.NewCartService(db, stock, cart, clk, ttl, log)
	slotSvc := service.NewSlotService(sellers, orders, rdb, clk, loc, log)
	sellerSvc := service.NewSellerService(db, sellers, capacity, stock, clk, loc, cfg.QuotaResetHour)
	orderSvc := service.NewOrderService(service.OrderServiceParams{
		Tx:        db,
		Sellers:   sellers,
		Capacity:  capacity,
		Stock:     stock,
		Cart:      cart,
		Orders:    orders,
		Pricer:    service.StaticDeliveryPricer{Prices: config.LoadDeliveryPrices()},
		Payments:  service.LogPaymentGateway{Log: log},
		Events:    queue.NewPublisher(log),
		Clock:     clk,
		Location:  loc,
		ResetHour: cfg.QuotaResetHour,
		Log:       log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := service.NewSweeper(db, stock, cart, clk, ttl,
		time.Duration(cfg.SweepInterval)*time.Second, config.NewLocker(rdb), log)
	go sweeper.Run(ctx)
	go queue.StartOrderConsumer(ctx, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echomw.Logger())

	limiter := appmw.RateLimit(config.LoadRateLimitConfig(), rdb)
	router.RegisterRoutes(e, router.Handlers{
		Auth: &handler.AuthHandler{
			Users: users, JWTSecret: cfg.JWTSecret,
			AccessTTL: cfg.AccessTTLMin, BcryptCost: cfg.BcryptCost, Log: log,
		},
		Cart:   &handler.CartHandler{Cart: cartSvc, Log: log},
		Orders: &handler.OrderHandler{Orders: orderSvc, Log: log},
		Seller: &handler.SellerHandler{Sellers: sellerSvc, Log: log},
		Slots:  &handler.SlotHandler{Slots: slotSvc, Log: log},
	}, cfg.JWTSecret, limiter)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil {
			log.WithError(err).Info("http server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
