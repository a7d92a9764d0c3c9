package strategy

import (
	"math/rand/v2"

	"github.com/angeloszaimis/service-client2/internal/instance"
)

type randomStrategy struct{}

func (randomStrategy) Select(instances []*instance.Instance) *instance.Instance {
	if len(instances) == 0 {
		return nil
	}

	return instances[rand.IntN(len(instances))]
}

func NewRandomStrategy() Strategy {
	return randomStrategy{}
}
