package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"go.uber.org/zap"

	"ironmq-client/configs"
	"ironmq-client/internal/cache"
	rediscache "ironmq-client/internal/cache/redis"
	"ironmq-client/internal/httpserver"
	"ironmq-client/internal/logger"
	"ironmq-client/internal/metrics"
	"ironmq-client/mq"
	"ironmq-client/worker"
)

func main() {
	if err := logger.Setup(); err != nil {
		panic(err)
	}

	cfg, err := configs.Parse()
	if err != nil {
		logger.Fatal("unable to load config", zap.Error(err))
	}

	metrics.Setup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpserver.Start(ctx, cfg.MetricsAddr)

	client, err := mq.New(cfg.MQ(), mq.WithLogger(logger.L()))
	if err != nil {
		logger.Fatal("unable to build mq client", zap.Error(err))
	}

	var store cache.Store
	if cfg.CacheRedisEndpoint != "" {
		redisClient := rediscache.NewClient(cfg.CacheRedisEndpoint, cfg.CacheRedisDB)
		store = &rediscache.Repository{Client: redisClient}

		// one polling instance per lock name
		rs := redsync.New(goredis.NewPool(redisClient))
		mutex := rs.NewMutex(cfg.WorkerLockName)
		if err := mutex.LockContext(ctx); err != nil {
			logger.Fatal("unable to acquire worker lock", zap.Error(err))
		}
		defer func() {
			if ok, err := mutex.Unlock(); !ok || err != nil {
				logger.Warn("unlock failed", zap.Error(err))
			}
		}()
	}

	w := &worker.Worker{
		Client:        client,
		Queue:         cfg.QueueName,
		Handler:       handleMessage,
		Cache:         store,
		KeyPrefix:     cfg.CacheKeyPrefix,
		PoolSize:      cfg.WorkerPoolSize,
		BatchSize:     cfg.ReserveBatchSize,
		PollInterval:  cfg.PollingIntervalDuration,
		ReserveWait:   cfg.ReserveWaitSeconds,
		ReleaseDelay:  cfg.ReleaseDelayDuration,
		TouchInterval: cfg.TouchIntervalDuration,
	}

	logger.Info("start queue polling",
		zap.String("queue", cfg.QueueName),
		zap.Int("pool_size", cfg.WorkerPoolSize),
	)
	w.Run(ctx)
}

// handleMessage is where an application plugs its own processing. The stock
// binary just logs the payload.
func handleMessage(ctx context.Context, msg *mq.ReservedMessage) error {
	logger.InfoCtx(ctx, "message received",
		zap.String("id", msg.ID),
		zap.String("body", msg.Body),
	)
	return nil
}
