// Package worker consumes a queue through the mq client: it reserves batches
// of messages, fans them out to a goroutine pool, and deletes, releases, or
// touches them according to the handler's outcome.
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"ironmq-client/internal/cache"
	"ironmq-client/internal/logger"
	"ironmq-client/internal/metrics"
	"ironmq-client/mq"
)

// Record states kept in the cache store per message id.
const (
	recordInFlight = "inflight"
	recordDone     = "done"
)

// Handler processes one reserved message. Returning nil deletes the message;
// returning an error releases it back to the queue for redelivery.
type Handler func(ctx context.Context, msg *mq.ReservedMessage) error

// Worker polls one queue and dispatches reserved messages to a pool.
type Worker struct {
	Client  *mq.Client
	Queue   string
	Handler Handler

	// Cache suppresses duplicate deliveries by message id when set. The
	// service is at-least-once; this is the higher-layer de-duplication.
	Cache     cache.Store
	KeyPrefix string
	DedupTTL  time.Duration

	PoolSize     int
	BatchSize    int
	PollInterval time.Duration
	ReserveWait  int // long-poll seconds for empty queues, 0 to disable

	// ReleaseDelay defers redelivery of failed messages.
	ReleaseDelay time.Duration

	// TouchInterval, when positive, extends the lease of a message still in
	// its handler every interval so slow handlers don't lose the reservation.
	TouchInterval time.Duration
}

// Run polls until ctx is cancelled. It blocks.
func (w *Worker) Run(ctx context.Context) {
	if w.Cache != nil {
		w.recoverRecords(ctx)
	}

	jobs := make(chan mq.ReservedMessage, w.PoolSize)

	for i := 0; i < w.PoolSize; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					logger.Info("message worker exiting")
					return
				case msg := <-jobs:
					w.safeProcess(ctx, msg)
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("stopping message polling loop")
			return
		default:
			var opts []mq.ReserveOption
			if w.ReserveWait > 0 {
				opts = append(opts, mq.WithWait(w.ReserveWait))
			}
			messages, err := w.Client.ReserveMessages(ctx, w.Queue, w.BatchSize, opts...)
			if err != nil {
				logger.Error("failed to reserve messages", zap.Error(err))
			}
			metrics.ReservedBatchSize.Set(float64(len(messages)))

			for _, msg := range messages {
				select {
				case jobs <- msg:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(w.PollInterval):
			}
		}
	}
}

// recoverRecords sweeps leftover in-flight records from a previous run. Their
// leases have lapsed and the service will redeliver those messages; the stale
// record must not make the redelivery look like a duplicate. Completed
// records stay until their TTL.
func (w *Worker) recoverRecords(ctx context.Context) {
	records, err := w.Cache.ScanPrefix(ctx, w.KeyPrefix)
	if err != nil {
		logger.Error("failed to scan processing records", zap.Error(err))
		return
	}
	for key, state := range records {
		if state != recordInFlight {
			continue
		}
		logger.Warn("clearing stale in-flight record", zap.String("key", key))
		if err := w.Cache.Delete(ctx, key); err != nil {
			logger.Error("failed to clear stale record", zap.Error(err))
		}
	}
}

// safeProcess keeps a panic anywhere in message handling from killing the
// pool goroutine.
func (w *Worker) safeProcess(ctx context.Context, msg mq.ReservedMessage) {
	defer w.recoverWorker("message-pool")
	w.process(ctx, msg)
}

func (w *Worker) process(ctx context.Context, msg mq.ReservedMessage) {
	ctx = logger.WithTraceID(ctx, msg.ID)
	key := w.KeyPrefix + msg.ID

	if w.Cache != nil {
		fresh, err := w.Cache.SetNX(ctx, key, recordInFlight, w.dedupTTL())
		if err != nil {
			logger.ErrorCtx(ctx, "dedup store unavailable, processing anyway", zap.Error(err))
		} else if !fresh {
			logger.WarnCtx(ctx, "duplicate delivery, discarding")
			if err := w.Client.DeleteReserved(ctx, w.Queue, &msg); err != nil {
				logger.ErrorCtx(ctx, "failed to delete duplicate", zap.Error(err))
			}
			return
		}
	}

	if err := w.runHandler(ctx, &msg); err != nil {
		logger.ErrorCtx(ctx, "handler failed, releasing message", zap.Error(err))
		metrics.MessagesFailed.Inc()
		if w.Cache != nil {
			// let the redelivered copy through
			if derr := w.Cache.Delete(ctx, key); derr != nil {
				logger.ErrorCtx(ctx, "failed to clear dedup record", zap.Error(derr))
			}
		}
		var relOpts []mq.ReleaseOption
		if w.ReleaseDelay > 0 {
			relOpts = append(relOpts, mq.WithDelay(int(w.ReleaseDelay.Seconds())))
		}
		if rerr := w.Client.ReleaseMessage(ctx, w.Queue, &msg, relOpts...); rerr != nil {
			logger.ErrorCtx(ctx, "failed to release message", zap.Error(rerr))
		}
		return
	}

	if err := w.Client.DeleteReserved(ctx, w.Queue, &msg); err != nil {
		logger.ErrorCtx(ctx, "failed to delete message", zap.Error(err))
		metrics.MessagesFailed.Inc()
		return
	}
	metrics.MessagesProcessed.Inc()
	if w.Cache != nil {
		if err := w.Cache.Set(ctx, key, recordDone, w.dedupTTL()); err != nil {
			logger.ErrorCtx(ctx, "failed to mark record done", zap.Error(err))
		}
	}
}

// runHandler invokes the handler under the lease keep-alive. A handler panic
// becomes an error so the message takes the release path instead of tearing
// anything down.
func (w *Worker) runHandler(ctx context.Context, msg *mq.ReservedMessage) (err error) {
	stop := w.keepAlive(ctx, msg)
	defer stop()
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "handler panic",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return w.Handler(ctx, msg)
}

// keepAlive touches msg every TouchInterval until the returned stop function
// is called. A stale reservation after an expired lease ends the loop.
func (w *Worker) keepAlive(ctx context.Context, msg *mq.ReservedMessage) func() {
	if w.TouchInterval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ticker := time.NewTicker(w.TouchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				// rotates msg.ReservationID; callers only read it again
				// after stop has returned
				if err := w.Client.TouchMessage(ctx, w.Queue, msg); err != nil {
					logger.WarnCtx(ctx, "failed to touch message", zap.Error(err))
					return
				}
			}
		}
	}()
	return func() {
		close(done)
		<-finished
	}
}

func (w *Worker) dedupTTL() time.Duration {
	if w.DedupTTL > 0 {
		return w.DedupTTL
	}
	return 24 * time.Hour
}

func (w *Worker) recoverWorker(source string) {
	if r := recover(); r != nil {
		logger.Error("worker panic",
			zap.String("source", source),
			zap.Any("panic", r),
			zap.String("stack", string(debug.Stack())),
		)
	}
}
