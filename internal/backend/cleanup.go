package backend

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	cleanupQueryTimeout = 30 * time.Second
	cleanupBatchSize    = 10000
	cleanupShutdownWait = 5 * time.Second
	digestRetention     = 24 * time.Hour
)

// deleteAppliedDigestsStmt sweeps applied digests older than the retention
// window in batches, avoiding a long-running table lock on fill_update_queue.
const deleteAppliedDigestsStmt = `
DELETE FROM fill_update_queue
WHERE ctid IN (
	SELECT ctid FROM fill_update_queue
	WHERE applied_at < $1
	LIMIT $2
)
`

// QueueCleaner periodically sweeps applied digests out of fill_update_queue
// so the table doesn't grow unbounded across runs, adapted from the
// teacher's idempotency-key cleanup goroutine.
type QueueCleaner struct {
	conn     *Connection
	interval time.Duration
	logger   *slog.Logger

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewQueueCleaner(conn *Connection, interval time.Duration, logger *slog.Logger) *QueueCleaner {
	return &QueueCleaner{
		conn:     conn,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the cleanup goroutine. Call Stop to shut it down.
func (c *QueueCleaner) Start() {
	go c.run()
}

// Stop signals the cleanup goroutine to exit and waits for it, with a bounded timeout.
func (c *QueueCleaner) Stop() {
	c.once.Do(func() {
		close(c.stop)

		select {
		case <-c.done:
			c.logger.Info("update queue cleanup goroutine stopped gracefully")
		case <-time.After(cleanupShutdownWait):
			c.logger.Warn("update queue cleanup goroutine did not stop within timeout")
		}
	})
}

func (c *QueueCleaner) run() {
	defer close(c.done)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		select {
		case <-c.stop:
			cancel()

			return
		case <-ticker.C:
			sweepCtx, sweepCancel := context.WithTimeout(ctx, cleanupQueryTimeout)
			c.sweepExpired(sweepCtx)
			sweepCancel()
		}
	}
}

func (c *QueueCleaner) sweepExpired(ctx context.Context) {
	cutoff := time.Now().Add(-digestRetention)

	for {
		result, err := c.conn.ExecContext(ctx, deleteAppliedDigestsStmt, cutoff, cleanupBatchSize)
		if err != nil {
			c.logger.Error("update queue cleanup failed", slog.String("error", err.Error()))

			return
		}

		n, err := result.RowsAffected()
		if err != nil || n < cleanupBatchSize {
			return
		}
	}
}
