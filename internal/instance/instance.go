package instance

import (
	"net/url"
	"sync"
	"time"
)

const ewmaAlpha = 0.2

// Instance is one reachable endpoint of a logical service. It tracks health,
// in-flight calls and a smoothed response time used by the selection strategies.
type Instance struct {
	service string
	url     *url.URL
	weight  int

	mutex    sync.Mutex
	healthy  bool
	inFlight int
	ewma     time.Duration
	hasEWMA  bool
}

// Snapshot is a point-in-time copy of an instance's state.
type Snapshot struct {
	Service  string        `json:"service"`
	URL      string        `json:"url"`
	Weight   int           `json:"weight"`
	Healthy  bool          `json:"healthy"`
	InFlight int           `json:"in_flight"`
	Latency  time.Duration `json:"latency"`
}

// New creates an instance of service reachable at u.
// Instances start healthy; weights below 1 are raised to 1.
func New(service string, u *url.URL, weight int) *Instance {
	if weight < 1 {
		weight = 1
	}

	return &Instance{
		service: service,
		url:     u,
		weight:  weight,
		healthy: true,
	}
}

// Service returns the logical service name the instance belongs to.
func (i *Instance) Service() string {
	return i.service
}

// URL returns the instance base URL.
func (i *Instance) URL() *url.URL {
	return i.url
}

// Weight returns the configured weight.
func (i *Instance) Weight() int {
	return i.weight
}

// IsHealthy reports whether the instance may receive calls.
func (i *Instance) IsHealthy() bool {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.healthy
}

// SetHealthy updates the health flag and reports whether it changed.
func (i *Instance) SetHealthy(healthy bool) (changed bool) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.healthy == healthy {
		return false
	}

	i.healthy = healthy
	return true
}

// Acquire marks one more call in flight.
func (i *Instance) Acquire() {
	i.mutex.Lock()
	i.inFlight++
	i.mutex.Unlock()
}

// Release marks one call as finished.
func (i *Instance) Release() {
	i.mutex.Lock()
	if i.inFlight > 0 {
		i.inFlight--
	}
	i.mutex.Unlock()
}

// InFlight returns the number of calls currently in flight.
func (i *Instance) InFlight() int {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.inFlight
}

// ObserveLatency folds d into the moving average.
func (i *Instance) ObserveLatency(d time.Duration) {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if !i.hasEWMA {
		i.ewma = d
		i.hasEWMA = true
		return
	}

	// ewma = (1 - α) * ewma + α * latest
	i.ewma = time.Duration((1-ewmaAlpha)*float64(i.ewma) + ewmaAlpha*float64(d))
}

// Latency returns the moving average response time, or 0 before the first call.
func (i *Instance) Latency() time.Duration {
	i.mutex.Lock()
	defer i.mutex.Unlock()
	return i.ewma
}

func (i *Instance) Snapshot() Snapshot {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	return Snapshot{
		Service:  i.service,
		URL:      i.url.String(),
		Weight:   i.weight,
		Healthy:  i.healthy,
		InFlight: i.inFlight,
		Latency:  i.ewma,
	}
}
