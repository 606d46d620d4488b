// Package resource implements the runtime's resource controller.
//
// The Controller governs three things:
//
//   - Memory: a hard budget for array allocations made while executing
//     filters. AcquireMemory never blocks; it fails with
//     ErrMemoryLimitExceeded so the caller can report an error instead of
//     swapping.
//   - Workers: a cap on the number of parallel ranges in flight across all
//     dispatches sharing the controller.
//   - IO: a token bucket limiting container write throughput, applied
//     through RateLimitedWriterAt.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//		MemoryLimitBytes:   8 << 30,
//		MaxWorkers:         4,
//		IOLimitBytesPerSec: 200 << 20,
//	})
//
// All methods are safe for concurrent use and treat a nil *Controller as
// "no limits".
package resource
