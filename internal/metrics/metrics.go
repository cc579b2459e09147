package metrics

import (
	"sync/atomic"
	"time"
)

// ID identifies one metric.
type ID uint16

const (
	LoginSuccess ID = iota
	LoginFailure
	LoginRateLimited
	RefreshSuccess
	RefreshFailure
	RefreshReuseDetected
	RefreshRateLimited
	Logout
	RateLimitHit
	RateLimitStoreError
	AuthenticateSuccess
	AuthenticateFailure
	IdentityCacheHit
	IdentityCacheMiss
	IdentityCacheStoreError
	IdentityInvalidated
	AccountCreationSuccess
	AccountCreationDuplicate
	PasswordChangeSuccess
	PasswordChangeInvalidOld
	PasswordRehash
	RoleChanged
	AccountDeleted
	AccountRestored
	ValidateLatency
	idCount
)

// Count is the number of defined metric IDs.
const Count = int(idCount)

const (
	BucketCount   = 8
	cacheLineSize = 64
)

type histogram struct {
	buckets [BucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Config toggles collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Registry holds every counter. A nil *Registry is a valid disabled registry.
type Registry struct {
	enabled       bool
	enableLatency bool
	counters      [idCount]paddedCounter
	histograms    [idCount]histogram
}

// Snapshot is a point-in-time copy of the registry. Histogram buckets are not
// cumulative.
type Snapshot struct {
	Counters   map[ID]uint64
	Histograms map[ID][]uint64
}

func New(cfg Config) *Registry {
	return &Registry{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (r *Registry) Enabled() bool {
	return r != nil && r.enabled
}

func (r *Registry) LatencyEnabled() bool {
	return r != nil && r.enableLatency
}

func (r *Registry) Inc(id ID) {
	if r == nil || !r.enabled || id >= idCount {
		return
	}
	atomic.AddUint64(&r.counters[id].value, 1)
}

// Observe records d into the histogram of id. Only ValidateLatency carries a
// histogram; other IDs are ignored.
func (r *Registry) Observe(id ID, d time.Duration) {
	if r == nil || !r.enableLatency || id != ValidateLatency {
		return
	}
	atomic.AddUint64(&r.histograms[id].buckets[bucketIndex(d)], 1)
}

func (r *Registry) Value(id ID) uint64 {
	if r == nil || id >= idCount {
		return 0
	}
	return atomic.LoadUint64(&r.counters[id].value)
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil || !r.enabled {
		return Snapshot{
			Counters:   map[ID]uint64{},
			Histograms: map[ID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[ID]uint64, Count),
		Histograms: make(map[ID][]uint64, 1),
	}
	for id := ID(0); id < idCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&r.counters[id].value)
	}
	if r.enableLatency {
		buckets := make([]uint64, BucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&r.histograms[ValidateLatency].buckets[i])
		}
		s.Histograms[ValidateLatency] = buckets
	}
	return s
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
