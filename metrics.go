package authcore

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that issued a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins rejected for bad credentials.
	MetricLoginFailure
	// MetricLoginRateLimited counts logins refused by the attempt tracker.
	MetricLoginRateLimited
	// MetricLoginUnverified counts correct-password logins on unverified accounts.
	MetricLoginUnverified
	// MetricRegistrationStaged counts accepted registrations.
	MetricRegistrationStaged
	// MetricRegistrationDuplicate counts registrations for a taken email.
	MetricRegistrationDuplicate
	// MetricRegistrationRateLimited counts registrations refused by the throttle.
	MetricRegistrationRateLimited
	// MetricOTPVerifySuccess counts promoted pending accounts.
	MetricOTPVerifySuccess
	// MetricOTPVerifyFailure counts wrong codes.
	MetricOTPVerifyFailure
	// MetricOTPExpired counts correct or wrong codes presented after expiry.
	MetricOTPExpired
	// MetricOTPResent counts fresh codes sent for a pending account.
	MetricOTPResent
	// MetricEmailVerificationSuccess counts accounts verified by link.
	MetricEmailVerificationSuccess
	// MetricEmailVerificationFailure counts rejected verification links.
	MetricEmailVerificationFailure
	// MetricVerificationResent counts re-sent verification links.
	MetricVerificationResent
	// MetricRefreshSuccess counts rotations.
	MetricRefreshSuccess
	// MetricRefreshFailure counts rejected refresh tokens.
	MetricRefreshFailure
	// MetricRefreshRaceLost counts rotations that lost the compare-and-swap.
	MetricRefreshRaceLost
	// MetricLogout counts logouts.
	MetricLogout
	// MetricPasswordResetRequest counts reset links sent.
	MetricPasswordResetRequest
	// MetricPasswordResetLocked counts requests refused by the reset lock.
	MetricPasswordResetLocked
	// MetricPasswordResetConfirmSuccess counts completed resets.
	MetricPasswordResetConfirmSuccess
	// MetricPasswordResetConfirmFailure counts rejected reset tokens.
	MetricPasswordResetConfirmFailure
	// MetricEmailRateLimited counts mail-sending operations refused by the throttle.
	MetricEmailRateLimited
	// MetricMailFailure counts notifier errors.
	MetricMailFailure
	// MetricMailQueueDropped counts messages dropped by a full async queue.
	MetricMailQueueDropped
	// MetricPasswordRehash counts legacy or outdated hashes upgraded on login.
	MetricPasswordRehash
	// MetricRoleChanged counts role updates.
	MetricRoleChanged
	// MetricAccountDeleted counts deleted accounts.
	MetricAccountDeleted
	// MetricValidateLatency is the ValidateAccess latency histogram.
	MetricValidateLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free engine counters. A nil or disabled Metrics ignores
// every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics builds a Metrics from cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Add adds n to counter id.
func (m *Metrics) Add(id MetricID, n uint64) {
	if m == nil || !m.enabled || id >= metricIDCount || n == 0 {
		return
	}
	atomic.AddUint64(&m.counters[id].value, n)
}

// Observe records d in the histogram for id. Only MetricValidateLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricValidateLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter. Disabled metrics return empty maps.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricValidateLatency].buckets[i])
		}
		s.Histograms[MetricValidateLatency] = buckets
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
