package main

import (
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"jewelry-backend/config"
	"jewelry-backend/internal/basket"
	"jewelry-backend/internal/checkout"
	"jewelry-backend/internal/payment"
	"jewelry-backend/internal/producer"
	"jewelry-backend/internal/repository"
	"jewelry-backend/internal/service"
	transport "jewelry-backend/internal/transport/http"
	"jewelry-backend/pkg/database"
	"jewelry-backend/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}

	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)
	db := database.ConnectDB(&cfg.DB.Config, log)
	defer database.CloseDB(db, log)

	repos := repository.New(db)

	var events service.EventBus
	if len(cfg.KafkaBrokers) > 0 {
		p := producer.NewOrderEventsProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer p.Close()
		events = p
	}

	orders := service.NewOrderService(repos, events)

	basketStore, err := basket.NewRedisStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
	if err != nil {
		log.Fatal("failed to connect basket store", zap.Error(err))
	}
	defer basketStore.Close()
	basketSvc := basket.NewService(basketStore, log)

	statusSource := payment.NewRepoStatusSource(repos.Payments)
	reconciler := payment.NewReconciler(statusSource, orders, cfg.PollInterval, payment.DefaultWatchRetention, log)
	defer reconciler.Shutdown()

	simulator := payment.NewSimulator(repos.Payments)
	gateway := payment.NewMockGateway()

	checkoutSvc := checkout.NewService(orders, basketSvc, gateway, repos.Payments, reconciler, log)

	r := transport.Router(orders, basketSvc, checkoutSvc, repos.Payments, simulator, log)

	addr := cfg.Port
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info("starting storefront HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-quit
	log.Info("shutting down storefront HTTP server...")
	if err := srv.Close(); err != nil {
		log.Error("server close failed", zap.Error(err))
	}
	log.Info("storefront HTTP server stopped")
}
