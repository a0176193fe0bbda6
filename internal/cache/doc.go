// Package cache provides a byte-budgeted LRU for encoded snapshots.
//
// Values are immutable byte slices. Size is accounted locally against the
// cache capacity and, when a resource.Controller is attached, against the
// shared memory budget. An eviction callback lets the owner spill or forget
// evicted keys.
package cache
