package lbclient_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/angeloszaimis/service-client2/internal/instance"
	"github.com/angeloszaimis/service-client2/internal/lbclient"
	"github.com/angeloszaimis/service-client2/internal/metrics"
	"github.com/angeloszaimis/service-client2/internal/registry"
	"github.com/angeloszaimis/service-client2/internal/strategy"
)

var _ = Describe("Client", func() {
	var (
		server1   *httptest.Server
		server2   *httptest.Server
		elsewhere *httptest.Server
		redirects int
		instances []*instance.Instance
		reg       *registry.Registry
		client    *http.Client
		log       *slog.Logger
		lastReq   chan *http.Request
	)

	newServer := func(name string) *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case lastReq <- r.Clone(context.Background()):
			default:
			}
			switch r.URL.Path {
			case "/broken":
				w.WriteHeader(http.StatusBadGateway)
				return
			case "/moved":
				http.Redirect(w, r, elsewhere.URL+"/hello", http.StatusFound)
				return
			}
			_, _ = io.WriteString(w, "Hello from "+name)
		}))
	}

	get := func(rawURL string) (string, int, error) {
		resp, err := client.Get(rawURL)
		if err != nil {
			return "", 0, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		return string(body), resp.StatusCode, err
	}

	BeforeEach(func() {
		lastReq = make(chan *http.Request, 1)
		redirects = 0
		elsewhere = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			redirects++
			_, _ = io.WriteString(w, "Hello from elsewhere")
		}))
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		server1 = newServer("client1-a")
		server2 = newServer("client1-b")

		instances = []*instance.Instance{
			instance.New("service-client1", mustParseURL(server1.URL), 1),
			instance.New("service-client1", mustParseURL(server2.URL), 1),
		}

		reg = registry.New(strategy.NewRoundRobinStrategy)
		Expect(reg.Register("service-client1", instances...)).To(Succeed())

		client = lbclient.NewClient(reg, lbclient.WithLogger(log))
	})

	AfterEach(func() {
		server1.Close()
		server2.Close()
		elsewhere.Close()
	})

	It("should send requests for a logical name to its instances", func() {
		body, status, err := get("http://service-client1/hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(http.StatusOK))
		Expect(body).To(Equal("Hello from client1-a"))

		req := <-lastReq
		Expect(req.Method).To(Equal(http.MethodGet))
		Expect(req.URL.Path).To(Equal("/hello"))
	})

	It("should balance across instances", func() {
		first, _, err := get("http://service-client1/hello")
		Expect(err).NotTo(HaveOccurred())
		second, _, err := get("http://service-client1/hello")
		Expect(err).NotTo(HaveOccurred())

		Expect([]string{first, second}).To(ConsistOf("Hello from client1-a", "Hello from client1-b"))
	})

	It("should keep the instance reserved until the body is closed", func() {
		resp, err := client.Get("http://service-client1/hello")
		Expect(err).NotTo(HaveOccurred())
		Expect(instances[0].InFlight()).To(Equal(1))

		Expect(resp.Body.Close()).To(Succeed())
		Expect(instances[0].InFlight()).To(Equal(0))
		Expect(instances[0].Latency()).To(BeNumerically(">", 0))

		Expect(resp.Body.Close()).To(Succeed())
		Expect(instances[0].InFlight()).To(Equal(0))
	})

	It("should hand non-2xx responses back to the caller", func() {
		_, status, err := get("http://service-client1/broken")
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(http.StatusBadGateway))
	})

	It("should hand redirects back instead of following them", func() {
		resp, err := client.Get("http://service-client1/moved")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(http.StatusFound))
		Expect(resp.Header.Get("Location")).To(Equal(elsewhere.URL + "/hello"))
		Expect(redirects).To(BeZero())
	})

	It("should fail for unknown services", func() {
		_, _, err := get("http://service-client9/hello")
		Expect(err).To(MatchError(registry.ErrUnknownService))
	})

	It("should fail when every instance is down", func() {
		for _, inst := range instances {
			inst.SetHealthy(false)
		}

		_, _, err := get("http://service-client1/hello")
		Expect(err).To(MatchError(registry.ErrNoHealthyInstances))
	})

	It("should release the instance when the instance is unreachable", func() {
		server1.Close()

		_, _, err := get("http://service-client1/hello")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring(server1.URL))
		Expect(instances[0].InFlight()).To(Equal(0))
	})

	It("should honour the configured timeout", func() {
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer slow.Close()

		slowReg := registry.New(strategy.NewRoundRobinStrategy)
		Expect(slowReg.Register("slow", instance.New("slow", mustParseURL(slow.URL), 1))).To(Succeed())
		client = lbclient.NewClient(slowReg, lbclient.WithTimeout(50*time.Millisecond))

		_, _, err := get("http://slow/")
		Expect(err).To(HaveOccurred())
	})

	It("should nest the path under the instance base path and merge queries", func() {
		based := instance.New("based", mustParseURL(server1.URL+"/api/v1?tenant=a"), 1)
		Expect(reg.Register("based", based)).To(Succeed())

		_, _, err := get("http://based/hello?x=1")
		Expect(err).NotTo(HaveOccurred())

		req := <-lastReq
		Expect(req.URL.Path).To(Equal("/api/v1/hello"))
		Expect(req.URL.Query().Get("tenant")).To(Equal("a"))
		Expect(req.URL.Query().Get("x")).To(Equal("1"))
	})

	Describe("metrics", func() {
		It("should report calls to the collector", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			collector := metrics.NewCollector(10, log)
			collector.Start(ctx)
			client = lbclient.NewClient(reg, lbclient.WithCollector(collector))

			_, _, err := get("http://service-client1/hello")
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() int64 {
				return collector.Snapshot("round-robin").Instances[server1.URL].StatusCodes[200]
			}).Should(Equal(int64(1)))
			Expect(collector.Snapshot("round-robin").Instances[server1.URL].Calls).To(Equal(int64(1)))
		})
	})

	Describe("tracing", func() {
		var recorder *tracetest.SpanRecorder

		BeforeEach(func() {
			recorder = tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
			client = lbclient.NewClient(reg,
				lbclient.WithTracerProvider(tp),
				lbclient.WithPropagator(propagation.TraceContext{}))
		})

		It("should record a client span and propagate its context", func() {
			_, _, err := get("http://service-client1/hello")
			Expect(err).NotTo(HaveOccurred())

			req := <-lastReq
			Expect(req.Header.Get("Traceparent")).NotTo(BeEmpty())

			spans := recorder.Ended()
			Expect(spans).To(HaveLen(1))
			Expect(spans[0].Name()).To(Equal("GET service-client1"))
			Expect(req.Header.Get("Traceparent")).To(ContainSubstring(spans[0].SpanContext().TraceID().String()))
		})

		It("should mark failed resolutions as errors", func() {
			_, _, err := get("http://service-client9/hello")
			Expect(err).To(HaveOccurred())

			spans := recorder.Ended()
			Expect(spans).To(HaveLen(1))
			Expect(spans[0].Status().Code).To(Equal(codes.Error))
		})
	})
})
