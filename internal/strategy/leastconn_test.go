package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/service-client2/internal/instance"
	"github.com/angeloszaimis/service-client2/internal/strategy"
)

var _ = Describe("LeastConn", func() {
	var (
		strat     strategy.Strategy
		instances []*instance.Instance
	)

	BeforeEach(func() {
		strat = strategy.NewLeastConnStrategy()
		instances = newInstances(1, 1, 1)
	})

	It("should select the instance with the fewest calls in flight", func() {
		instances[0].Acquire()
		instances[0].Acquire()
		instances[1].Acquire()

		Expect(strat.Select(instances)).To(BeIdenticalTo(instances[2]))
	})

	It("should break ties by list order", func() {
		Expect(strat.Select(instances)).To(BeIdenticalTo(instances[0]))
	})

	It("should return nil for an empty list", func() {
		Expect(strat.Select(nil)).To(BeNil())
	})
})
