package registry_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/service-client2/internal/instance"
	"github.com/angeloszaimis/service-client2/internal/registry"
	"github.com/angeloszaimis/service-client2/internal/strategy"
)

var _ = Describe("Registry", func() {
	var (
		reg       *registry.Registry
		instances []*instance.Instance
		ctx       context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = registry.New(strategy.NewRoundRobinStrategy)
		instances = []*instance.Instance{
			instance.New("service-client1", mustParseURL("http://localhost:8081"), 1),
			instance.New("service-client1", mustParseURL("http://localhost:8082"), 1),
		}
		Expect(reg.Register("service-client1", instances...)).To(Succeed())
	})

	Describe("Register", func() {
		It("should reject empty names", func() {
			Expect(reg.Register("  ", instances...)).To(HaveOccurred())
		})

		It("should reject services without instances", func() {
			Expect(reg.Register("service-client3")).To(HaveOccurred())
		})

		It("should reject duplicates regardless of case", func() {
			Expect(reg.Register("Service-Client1", instances...)).To(MatchError(ContainSubstring("already registered")))
		})

		It("should list registered services sorted", func() {
			other := instance.New("alpha", mustParseURL("http://localhost:9000"), 1)
			Expect(reg.Register("alpha", other)).To(Succeed())

			Expect(reg.Services()).To(Equal([]string{"alpha", "service-client1"}))
			Expect(reg.Instances()).To(HaveLen(3))
		})
	})

	Describe("Resolve", func() {
		It("should rotate across healthy instances", func() {
			first, err := reg.Resolve(ctx, "service-client1")
			Expect(err).NotTo(HaveOccurred())
			second, err := reg.Resolve(ctx, "service-client1")
			Expect(err).NotTo(HaveOccurred())

			Expect(first).To(BeIdenticalTo(instances[0]))
			Expect(second).To(BeIdenticalTo(instances[1]))
		})

		It("should reserve the chosen instance", func() {
			inst, err := reg.Resolve(ctx, "service-client1")
			Expect(err).NotTo(HaveOccurred())
			Expect(inst.InFlight()).To(Equal(1))
		})

		It("should match names case-insensitively", func() {
			_, err := reg.Resolve(ctx, "SERVICE-CLIENT1")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should skip unhealthy instances", func() {
			instances[0].SetHealthy(false)

			for i := 0; i < 3; i++ {
				inst, err := reg.Resolve(ctx, "service-client1")
				Expect(err).NotTo(HaveOccurred())
				Expect(inst).To(BeIdenticalTo(instances[1]))
			}
		})

		It("should fail when every instance is down", func() {
			for _, inst := range instances {
				inst.SetHealthy(false)
			}

			inst, err := reg.Resolve(ctx, "service-client1")
			Expect(err).To(MatchError(registry.ErrNoHealthyInstances))
			Expect(inst).To(BeNil())
		})

		It("should fail for unknown services", func() {
			inst, err := reg.Resolve(ctx, "service-client9")
			Expect(err).To(MatchError(registry.ErrUnknownService))
			Expect(inst).To(BeNil())
		})

		It("should fail for a cancelled context", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			_, err := reg.Resolve(cancelled, "service-client1")
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("Handler", func() {
		It("should serve the instance table as JSON", func() {
			instances[1].SetHealthy(false)

			w := httptest.NewRecorder()
			reg.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/registry", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))

			var body map[string][]instance.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
			Expect(body["service-client1"]).To(HaveLen(2))
			Expect(body["service-client1"][0].Healthy).To(BeTrue())
			Expect(body["service-client1"][1].Healthy).To(BeFalse())
		})
	})
})
