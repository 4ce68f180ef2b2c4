package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"ironmq-client/configs"
	"ironmq-client/internal/logger"
	"ironmq-client/mq"
)

// Posts each argument as a message body to the configured queue.
func main() {
	var (
		delay     = flag.Int("delay", 0, "visibility delay in seconds")
		timeout   = flag.Int("timeout", mq.DefaultTimeout, "reservation timeout in seconds")
		expiresIn = flag.Int("expires-in", mq.DefaultExpiresIn, "message expiry in seconds")
	)
	flag.Parse()

	if err := logger.Setup(); err != nil {
		panic(err)
	}

	cfg, err := configs.Parse()
	if err != nil {
		logger.Fatal("unable to load config", zap.Error(err))
	}

	if flag.NArg() == 0 {
		logger.Fatal("no message bodies given")
	}

	client, err := mq.New(cfg.MQ(), mq.WithLogger(logger.L()))
	if err != nil {
		logger.Fatal("unable to build mq client", zap.Error(err))
	}

	msgs := make([]mq.Message, flag.NArg())
	for i, body := range flag.Args() {
		msgs[i] = mq.Message{
			Body:      body,
			Timeout:   *timeout,
			Delay:     *delay,
			ExpiresIn: *expiresIn,
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ids, err := client.PostMessages(ctx, cfg.QueueName, msgs...)
	if err != nil {
		logger.Fatal("post failed", zap.Error(err))
	}
	logger.Info("messages posted",
		zap.String("queue", cfg.QueueName),
		zap.Strings("ids", ids),
	)
}
