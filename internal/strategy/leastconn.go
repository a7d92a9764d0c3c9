package strategy

import (
	"github.com/angeloszaimis/service-client2/internal/instance"
)

type leastConnStrategy struct{}

// Select returns the instance with the fewest calls in flight; ties go to the
// earliest instance in the list.
func (leastConnStrategy) Select(instances []*instance.Instance) *instance.Instance {
	var (
		chosen *instance.Instance
		best   int
	)

	for _, inst := range instances {
		n := inst.InFlight()
		if chosen == nil || n < best {
			chosen = inst
			best = n
		}
	}

	return chosen
}

func NewLeastConnStrategy() Strategy {
	return leastConnStrategy{}
}
