package strategy

import (
	"time"

	"github.com/angeloszaimis/service-client2/internal/instance"
)

type leastResponseStrategy struct{}

// Select scores each instance as latency * (in-flight + 1) and returns the
// lowest. An instance without a latency sample wins immediately so that
// every instance gets measured.
func (leastResponseStrategy) Select(instances []*instance.Instance) *instance.Instance {
	var (
		chosen *instance.Instance
		best   time.Duration
	)

	for _, inst := range instances {
		latency := inst.Latency()
		if latency == 0 {
			return inst
		}

		score := latency * time.Duration(inst.InFlight()+1)
		if chosen == nil || score < best {
			chosen = inst
			best = score
		}
	}

	return chosen
}

func NewLeastResponseStrategy() Strategy {
	return leastResponseStrategy{}
}
