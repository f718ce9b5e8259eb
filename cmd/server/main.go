package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-inventory-service/config"
	"github.com/fekuna/omnipos-inventory-service/pkg/broker"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/postgres"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"

	batchRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/batch/repository"
	batchUCPkg "github.com/fekuna/omnipos-inventory-service/internal/batch/usecase"
	saleListenerPkg "github.com/fekuna/omnipos-inventory-service/internal/sale/listener"
	saleUCPkg "github.com/fekuna/omnipos-inventory-service/internal/sale/usecase"
	storeRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/store/repository"
	transferUCPkg "github.com/fekuna/omnipos-inventory-service/internal/transfer/usecase"
	userRepoPkg "github.com/fekuna/omnipos-inventory-service/internal/user/repository"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             "info",
		DisableCaller:     false,
		DisableStacktrace: false,
	}
	if cfg.Server.AppEnv == "development" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = "console"
		logConfig.Level = "debug"
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := postgres.NewPostgres(&postgres.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// 5. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 6. Initialize Repositories
	storeRepo := storeRepoPkg.NewPGRepository(db)
	batchRepo := batchRepoPkg.NewPGRepository(db)
	userDir := userRepoPkg.NewPGDirectory(db)

	// 7. Initialize UseCases
	batchUC := batchUCPkg.NewBatchUseCase(batchRepo, storeRepo, redisClient, appLogger)
	transferUC := transferUCPkg.NewTransferUseCase(batchRepo, storeRepo, storeRepo, userDir, redisClient, appLogger)
	saleUC := saleUCPkg.NewSaleUseCase(batchRepo, storeRepo, redisClient, appLogger, cfg.Sale.ReservationTimeout)

	// The allocation and transfer usecases are served to the upstream
	// controller layer; keep references alive for registration there.
	_ = batchUC
	_ = transferUC

	// 8. Start Listener
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	saleListener := saleListenerPkg.NewSaleListener(kafkaConsumer, saleUC, appLogger)
	go saleListener.Start(ctx)

	appLogger.Info("Inventory allocation service started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")
	cancel()
	appLogger.Info("Service stopped")
}
