package tracing_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/service-client2/internal/tracing"
)

var _ = Describe("NewProvider", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	It("should build a provider without an exporter", func() {
		tp, err := tracing.NewProvider("", "", log)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(tp.Shutdown, context.Background())

		_, span := tp.Tracer("test").Start(context.Background(), "GET service-client1")
		Expect(span.SpanContext().IsValid()).To(BeTrue())
		span.End()
	})

	It("should reject unknown exporters", func() {
		_, err := tracing.NewProvider("jaeger", "http://localhost:14268", log)
		Expect(err).To(MatchError(ContainSubstring("jaeger")))
	})

	It("should ship finished spans to the zipkin collector", func() {
		var (
			mu     sync.Mutex
			paths  []string
			bodies []string
		)
		collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			paths = append(paths, r.URL.Path)
			bodies = append(bodies, string(body))
			mu.Unlock()
			w.WriteHeader(http.StatusAccepted)
		}))
		defer collector.Close()

		tp, err := tracing.NewProvider(tracing.ExporterZipkin, collector.URL+"/api/v2/spans", log)
		Expect(err).NotTo(HaveOccurred())

		_, span := tp.Tracer("test").Start(context.Background(), "GET service-client1")
		span.End()
		Expect(tp.ForceFlush(context.Background())).To(Succeed())
		Expect(tp.Shutdown(context.Background())).To(Succeed())

		mu.Lock()
		defer mu.Unlock()
		Expect(paths).To(ContainElement("/api/v2/spans"))
		Expect(bodies).To(ContainElement(ContainSubstring("service-client2")))
	})
})
