package main

import (
	"context"
	"log"
	"time"

	"restaurant-ops/cmd"
	"restaurant-ops/internal/data/entity"
	"restaurant-ops/internal/data/repository"
	"restaurant-ops/internal/usecase"
	"restaurant-ops/internal/wire"
	"restaurant-ops/pkg/database"
	"restaurant-ops/pkg/locker"
	"restaurant-ops/pkg/notifier"
	"restaurant-ops/pkg/payos"
	"restaurant-ops/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load config
	config, err := utils.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		log.Printf("Failed to init logger: %v. Using standard log.", err)
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting application",
		zap.String("app", config.App.Name),
		zap.String("port", config.App.Port),
		zap.String("storage", config.App.StorageDriver),
		zap.Bool("debug", config.App.Debug),
	)

	repos, closeStore := openRepository(config, logger)
	defer closeStore()

	deps, closeDeps := buildDeps(config, logger)
	defer closeDeps()

	// Wire all dependencies
	app := wire.Wiring(repos, deps, config, logger)

	logger.Info("Starting HTTP server", zap.String("port", config.App.Port))
	if err := cmd.APIServer(app.Router, config.App.Port, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
		return
	}
	logger.Info("Server stopped")
}

// openRepository picks the storage backend. memory is for local runs and demos.
func openRepository(config *utils.Config, logger *zap.Logger) (*repository.Repository, func()) {
	if config.App.StorageDriver == "memory" {
		store := repository.NewMemoryStore()
		seedFloor(store)
		logger.Warn("Using in-memory storage, data is lost on restart")
		return repository.NewMemoryRepository(store), func() {}
	}

	db, err := database.InitDB(config.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	logger.Info("Database connected successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		db.Close()
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	return repository.NewRepository(db, logger), db.Close
}

func buildDeps(config *utils.Config, logger *zap.Logger) (usecase.Deps, func()) {
	var closers []func()

	var lk locker.Locker
	if config.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     config.Redis.Addr,
			Password: config.Redis.Password,
			DB:       config.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err), zap.String("addr", config.Redis.Addr))
		}
		lk = locker.NewRedisLocker(rdb, config.Redis.LockTTL, config.Redis.LockWait, logger)
		closers = append(closers, func() { rdb.Close() })
		logger.Info("Using redis table locks", zap.String("addr", config.Redis.Addr))
	} else {
		lk = locker.NewLocalLocker(config.Redis.LockWait)
		logger.Warn("REDIS_ADDR not set, table locks are process-local")
	}

	var nt notifier.Notifier
	if config.RabbitMQ.URL != "" {
		mq, err := notifier.NewRabbitMQNotifier(config.RabbitMQ.URL, config.RabbitMQ.Queue, logger)
		if err != nil {
			logger.Fatal("Failed to connect to rabbitmq", zap.Error(err))
		}
		nt = mq
		logger.Info("Publishing confirmations to rabbitmq", zap.String("queue", config.RabbitMQ.Queue))
	} else {
		nt = notifier.NewLogNotifier(logger)
		logger.Warn("RABBITMQ_URL not set, confirmations are only logged")
	}
	closers = append(closers, func() {
		if err := nt.Close(); err != nil {
			logger.Warn("Failed to close notifier", zap.Error(err))
		}
	})

	gateway := payos.NewClient(payos.Config{
		BaseURL:     config.PayOS.BaseURL,
		ClientID:    config.PayOS.ClientID,
		APIKey:      config.PayOS.APIKey,
		ChecksumKey: config.PayOS.ChecksumKey,
		ReturnURL:   config.PayOS.ReturnURL,
		CancelURL:   config.PayOS.CancelURL,
		Timeout:     config.PayOS.Timeout,
	}, logger)
	if config.PayOS.ChecksumKey == "" {
		logger.Warn("PAYOS_CHECKSUM_KEY not set, webhook signatures are not verified")
	}

	return usecase.Deps{Locker: lk, Notifier: nt, Gateway: gateway}, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

// seedFloor gives the in-memory store a small dining room to book against.
func seedFloor(store *repository.MemoryStore) {
	now := time.Now()
	capacities := []int{2, 2, 4, 4, 4, 6, 6, 8}
	for i, c := range capacities {
		store.AddTable(&entity.Table{
			Base:     entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
			Number:   i + 1,
			Capacity: c,
			IsOpen:   true,
		})
	}
}
