package strategy

import (
	"sync/atomic"

	"github.com/angeloszaimis/service-client2/internal/instance"
)

type roundRobinStrategy struct {
	next atomic.Uint64
}

func (rr *roundRobinStrategy) Select(instances []*instance.Instance) *instance.Instance {
	if len(instances) == 0 {
		return nil
	}

	n := rr.next.Add(1)
	return instances[(n-1)%uint64(len(instances))]
}

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{}
}
