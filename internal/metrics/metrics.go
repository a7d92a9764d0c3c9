package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

// Metrics is the in-memory store behind the /stats snapshot, keyed by
// instance URL.
type Metrics struct {
	mutex         sync.RWMutex
	services      map[string]string
	calls         map[string]int64
	failures      map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	healthStatus  map[string]bool
	startTime     time.Time
}

type Snapshot struct {
	TotalCalls int64                      `json:"total_calls"`
	Uptime     time.Duration              `json:"uptime"`
	Strategy   string                     `json:"strategy"`
	Instances  map[string]InstanceMetrics `json:"instances"`
}

type InstanceMetrics struct {
	Service     string        `json:"service"`
	Calls       int64         `json:"calls"`
	Failures    int64         `json:"failures"`
	Healthy     bool          `json:"healthy"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		services:      make(map[string]string),
		calls:         make(map[string]int64),
		failures:      make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		healthStatus:  make(map[string]bool),
		startTime:     time.Now(),
	}
}

func (m *Metrics) IncrementCalls(service, instance string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.services[instance] = service
	m.calls[instance]++
}

// RecordResponse stores a finished call. A zero status code means the call
// never got a response.
func (m *Metrics) RecordResponse(service, instance string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.services[instance] = service

	samples := append(m.responseTimes[instance], duration)
	if len(samples) > maxSamples {
		samples = samples[len(samples)-maxSamples:]
	}
	m.responseTimes[instance] = samples

	if statusCode == 0 || statusCode >= 300 {
		m.failures[instance]++
	}

	if statusCode == 0 {
		return
	}

	if m.statusCodes[instance] == nil {
		m.statusCodes[instance] = make(map[int]int64)
	}
	m.statusCodes[instance][statusCode]++
}

func (m *Metrics) UpdateHealthStatus(service, instance string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.services[instance] = service
	m.healthStatus[instance] = healthy
}

func (m *Metrics) Snapshot(strategy string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		Uptime:    time.Since(m.startTime),
		Strategy:  strategy,
		Instances: make(map[string]InstanceMetrics, len(m.services)),
	}

	// every event records the owning service, so services covers all keys
	for instance, service := range m.services {
		snap.TotalCalls += m.calls[instance]

		im := InstanceMetrics{
			Service:     service,
			Calls:       m.calls[instance],
			Failures:    m.failures[instance],
			Healthy:     m.healthStatus[instance],
			StatusCodes: copyCodes(m.statusCodes[instance]),
		}

		if durations := m.responseTimes[instance]; len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

			im.AvgResponse = average(sorted)
			im.P50Response = percentile(sorted, 0.50)
			im.P95Response = percentile(sorted, 0.95)
			im.P99Response = percentile(sorted, 0.99)
		}

		snap.Instances[instance] = im
	}

	return snap
}

func copyCodes(codes map[int]int64) map[int]int64 {
	out := make(map[int]int64, len(codes))
	for code, n := range codes {
		out[code] = n
	}
	return out
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
