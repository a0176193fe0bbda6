// Package resource governs the shared resources of a checker.
//
// A Controller manages three budgets:
//
//   - Memory: bytes held by cached snapshots (non-blocking, fail-fast)
//   - Workers: concurrent engine runs in CheckAll
//   - IO: throughput of snapshot spill writes (token bucket)
//
// # Memory
//
// Reserve never blocks. When the budget is exhausted it returns
// ErrBudgetExceeded and the caller decides whether to evict or skip:
//
//	rc := resource.NewController(resource.Config{MemoryBudget: 64 << 20})
//	if err := rc.Reserve(int64(len(blob))); err != nil {
//	    // skip caching
//	}
//	defer rc.Release(int64(len(blob)))
//
// # Workers
//
//	if err := rc.AcquireWorker(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseWorker()
//
// # IO
//
// WaitIO blocks until n bytes may be written. Requests larger than the
// burst are paced in burst-sized steps.
//
// All methods are safe for concurrent use and on a nil *Controller, which
// imposes no limits.
package resource
