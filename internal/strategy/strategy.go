package strategy

import (
	"fmt"

	"github.com/angeloszaimis/service-client2/internal/instance"
)

const (
	RoundRobin         = "round-robin"
	Random             = "random"
	LeastConn          = "least-conn"
	LeastResponse      = "least-response"
	WeightedRoundRobin = "weighted-round-robin"
)

// Names lists every strategy accepted by NewFactory.
var Names = []string{RoundRobin, Random, LeastConn, LeastResponse, WeightedRoundRobin}

// Strategy picks one instance out of a non-empty candidate list.
// Implementations return nil for an empty list.
type Strategy interface {
	Select(instances []*instance.Instance) *instance.Instance
}

// Factory builds a fresh Strategy. Each logical service gets its own so
// cursors and weight accumulators are never shared between services.
type Factory func() Strategy

// NewFactory returns the factory for the named strategy.
func NewFactory(name string) (Factory, error) {
	switch name {
	case RoundRobin:
		return NewRoundRobinStrategy, nil
	case Random:
		return NewRandomStrategy, nil
	case LeastConn:
		return NewLeastConnStrategy, nil
	case LeastResponse:
		return NewLeastResponseStrategy, nil
	case WeightedRoundRobin:
		return NewWeightedRoundRobinStrategy, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}
