package strategy

import (
	"sync"

	"github.com/angeloszaimis/service-client2/internal/instance"
)

// weightedRoundRobinStrategy is smooth weighted round-robin as done by nginx:
// every candidate gains its weight each round, the highest running total is
// chosen and pays back the sum of all weights.
type weightedRoundRobinStrategy struct {
	mutex   sync.Mutex
	current map[*instance.Instance]int
}

func NewWeightedRoundRobinStrategy() Strategy {
	return &weightedRoundRobinStrategy{
		current: make(map[*instance.Instance]int),
	}
}

func (w *weightedRoundRobinStrategy) Select(instances []*instance.Instance) *instance.Instance {
	if len(instances) == 0 {
		return nil
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.forgetMissing(instances)

	total := 0
	var chosen *instance.Instance

	for _, inst := range instances {
		weight := inst.Weight()
		w.current[inst] += weight
		total += weight

		if chosen == nil || w.current[inst] > w.current[chosen] {
			chosen = inst
		}
	}

	w.current[chosen] -= total
	return chosen
}

// forgetMissing drops running totals of instances that are no longer
// candidates, e.g. because they went unhealthy.
func (w *weightedRoundRobinStrategy) forgetMissing(instances []*instance.Instance) {
	present := make(map[*instance.Instance]struct{}, len(instances))
	for _, inst := range instances {
		present[inst] = struct{}{}
	}

	for inst := range w.current {
		if _, ok := present[inst]; !ok {
			delete(w.current, inst)
		}
	}
}
