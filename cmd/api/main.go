package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"storeapi/internal/catalog"
	"storeapi/internal/config"
	"storeapi/internal/httpx"
	kafkax "storeapi/internal/kafka"
	"storeapi/internal/logging"
	"storeapi/internal/orders"
	"storeapi/internal/postgres"
	"storeapi/internal/redisx"
	"storeapi/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024)
	prod.Start(ctx)

	// Repos & service
	ordersRepo := &orders.Repo{DB: db}
	placement := orders.NewService(ordersRepo)

	// Handlers
	router := httpx.NewRouter()
	(&httpx.ProductsHandler{
		Store: &catalog.Repo{DB: db},
		Log:   log,
	}).Register(router)
	(&httpx.UsersHandler{
		Store:  &users.Repo{DB: db},
		Orders: ordersRepo,
		Log:    log,
	}).Register(router)
	(&httpx.OrdersHandler{
		Service:  placement,
		Reader:   ordersRepo,
		Producer: prod,
		Cache:    rdb,
		Log:      log,
		Name:     cfg.ServiceName,
	}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "err", err)
			os.Exit(1)
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prod.Close()      // close inbox -> flush & close writer
	cancel()          // stop producer loop
	prod.WaitClosed() // drain
}
