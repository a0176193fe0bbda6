package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrBudgetExceeded is returned when a reservation would exceed the memory budget.
var ErrBudgetExceeded = errors.New("memory budget exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryBudget caps bytes reserved through Reserve.
	// If 0, usage is only tracked.
	MemoryBudget int64

	// Workers is the number of concurrent engine runs.
	// If 0, defaults to 1.
	Workers int64

	// IOBytesPerSec limits spill throughput. If 0, unlimited.
	IOBytesPerSec int64
}

// Controller manages memory, worker and IO budgets.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	workers *semaphore.Weighted

	io *rate.Limiter
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	c := &Controller{
		cfg:     cfg,
		workers: semaphore.NewWeighted(cfg.Workers),
	}

	if cfg.MemoryBudget > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryBudget)
	}

	if cfg.IOBytesPerSec > 0 {
		c.io = rate.NewLimiter(rate.Limit(cfg.IOBytesPerSec), int(cfg.IOBytesPerSec))
	}

	return c
}

// Reserve reserves bytes of the memory budget without blocking.
func (c *Controller) Reserve(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrBudgetExceeded
	}
	c.memUsed.Add(bytes)
	return nil
}

// Release returns bytes to the memory budget.
func (c *Controller) Release(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// Used returns the reserved bytes.
func (c *Controller) Used() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// Budget returns the memory budget in bytes (0 if unlimited).
func (c *Controller) Budget() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryBudget
}

// AcquireWorker blocks until a worker slot is free or ctx is done.
func (c *Controller) AcquireWorker(ctx context.Context) error {
	if c == nil {
		return ctx.Err()
	}
	return c.workers.Acquire(ctx, 1)
}

// ReleaseWorker frees a worker slot.
func (c *Controller) ReleaseWorker() {
	if c == nil {
		return
	}
	c.workers.Release(1)
}

// WaitIO blocks until the IO limit admits n bytes.
func (c *Controller) WaitIO(ctx context.Context, n int) error {
	if c == nil || c.io == nil {
		return nil
	}
	burst := c.io.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.io.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}
