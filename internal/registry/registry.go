package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/angeloszaimis/service-client2/internal/instance"
	"github.com/angeloszaimis/service-client2/internal/strategy"
)

var (
	ErrUnknownService     = errors.New("unknown service")
	ErrNoHealthyInstances = errors.New("no healthy instances")
)

type service struct {
	mutex     sync.Mutex
	instances []*instance.Instance
	strategy  strategy.Strategy
}

// Registry is a static service directory: logical service names mapped to the
// instances that serve them, each name with its own selection strategy.
type Registry struct {
	mutex       sync.RWMutex
	services    map[string]*service
	newStrategy strategy.Factory
}

func New(newStrategy strategy.Factory) *Registry {
	return &Registry{
		services:    make(map[string]*service),
		newStrategy: newStrategy,
	}
}

// Register adds a logical service. Names are case-insensitive, like the host
// part of the URLs they are looked up from.
func (r *Registry) Register(name string, instances ...*instance.Instance) error {
	name = normalize(name)
	if name == "" {
		return errors.New("service name cannot be empty")
	}

	if len(instances) == 0 {
		return fmt.Errorf("service %q: at least one instance required", name)
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.services[name]; exists {
		return fmt.Errorf("service %q already registered", name)
	}

	r.services[name] = &service{
		instances: instances,
		strategy:  r.newStrategy(),
	}

	return nil
}

// Resolve picks a healthy instance of the named service and reserves it: the
// instance's in-flight count is incremented and the caller must Release it.
func (r *Registry) Resolve(ctx context.Context, name string) (*instance.Instance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mutex.RLock()
	svc, ok := r.services[normalize(name)]
	r.mutex.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownService, name)
	}

	svc.mutex.Lock()
	healthy := filterHealthy(svc.instances)
	if len(healthy) == 0 {
		svc.mutex.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNoHealthyInstances, name)
	}

	chosen := svc.strategy.Select(healthy)
	svc.mutex.Unlock()

	if chosen == nil {
		return nil, fmt.Errorf("%w: %s: strategy returned no instance", ErrNoHealthyInstances, name)
	}

	chosen.Acquire()
	return chosen, nil
}

// Services returns the registered names in sorted order.
func (r *Registry) Services() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Instances returns every instance of every service.
func (r *Registry) Instances() []*instance.Instance {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	var all []*instance.Instance
	for _, svc := range r.services {
		all = append(all, svc.instances...)
	}

	return all
}

// Snapshot returns the state of every instance grouped by service.
func (r *Registry) Snapshot() map[string][]instance.Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	snap := make(map[string][]instance.Snapshot, len(r.services))
	for name, svc := range r.services {
		states := make([]instance.Snapshot, 0, len(svc.instances))
		for _, inst := range svc.instances {
			states = append(states, inst.Snapshot())
		}
		snap[name] = states
	}

	return snap
}

func filterHealthy(instances []*instance.Instance) []*instance.Instance {
	healthy := make([]*instance.Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.IsHealthy() {
			healthy = append(healthy, inst)
		}
	}

	return healthy
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
