package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"stockbill/internal/config"
	"stockbill/internal/events"
	"stockbill/internal/grpcserver"
	httpapi "stockbill/internal/http"
	"stockbill/internal/logger"
	"stockbill/internal/notify"
	"stockbill/internal/receipt"
	"stockbill/internal/repository"
	"stockbill/internal/service"

	_ "stockbill/docs"
)

type alertPublisher interface {
	service.AlertPublisher
	Close() error
}

func main() {
	// .env is optional, real environment wins
	_ = godotenv.Load()
	cfg := config.Load()

	log, err := logger.New(cfg.Server.AppEnv, cfg.Logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	blobs, tx, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to open store", zap.String("backend", cfg.Store.Backend), zap.Error(err))
	}
	defer closeStore()

	catalog := repository.NewCatalog(blobs)
	ledger := repository.NewLedger(blobs)

	var publisher alertPublisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka, log)
		log.Info("refill alerts go to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("close publisher", zap.Error(err))
		}
	}()

	productsSvc := service.NewProductService(catalog, tx, log)
	billingSvc := service.NewBillingService(catalog, ledger, tx, publisher, log)
	refillsSvc := service.NewRefillService(ledger)
	renderer := receipt.NewRenderer(cfg.Receipt)

	var mailQueue httpapi.ReceiptQueue
	var dispatcher *notify.Dispatcher
	if cfg.Mail.Host != "" {
		dispatcher = notify.NewDispatcher(notify.NewMailer(cfg.Mail), cfg.Mail.Workers, cfg.Mail.QueueSize, log)
		mailQueue = dispatcher
		log.Info("receipt email enabled", zap.String("smtp_host", cfg.Mail.Host))
	}

	srv := httpapi.NewServer(productsSvc, billingSvc, refillsSvc, renderer, mailQueue, log)
	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Engine(),
	}

	health := grpcserver.New(blobs, log)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatal("failed to listen", zap.String("addr", cfg.Server.GRPCAddr), zap.Error(err))
	}
	go health.Watch(ctx, 10*time.Second)
	go func() {
		if err := health.Serve(lis); err != nil {
			log.Error("grpc server error", zap.Error(err))
		}
	}()

	go func() {
		log.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
	health.GracefulStop()
	billingSvc.Wait()
	if dispatcher != nil {
		dispatcher.Close()
	}
	log.Info("server stopped")
}

// openStore собирает хранилище документов и блокировку, сериализующую изменения каталога.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.BlobStore, repository.TxManager, func(), error) {
	noop := func() {}
	switch cfg.Store.Backend {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return repository.NewMemoryStore(), repository.NewMutexTx(), noop, nil

	case "file", "":
		store := repository.NewFileStore(cfg.Store.DataDir)
		if err := store.Ping(ctx); err != nil {
			return nil, nil, noop, err
		}
		log.Info("using file store", zap.String("dir", cfg.Store.DataDir))
		return store, repository.NewMutexTx(), noop, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, noop, fmt.Errorf("connect redis: %w", err)
		}
		log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
		store := repository.NewRedisStore(client, cfg.Redis.KeyPrefix)
		tx := repository.NewRedisTx(client, cfg.Redis.KeyPrefix+"lock:catalog", cfg.Redis.LockTTL)
		return store, tx, func() { _ = client.Close() }, nil

	case "mysql":
		db, err := sqlx.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, noop, fmt.Errorf("open mysql: %w", err)
		}
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, noop, fmt.Errorf("connect mysql: %w", err)
		}
		store := repository.NewMySQLStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, noop, err
		}
		log.Info("connected to MySQL")
		return store, repository.NewMutexTx(), func() { _ = db.Close() }, nil

	default:
		return nil, nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
