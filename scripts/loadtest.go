//go:build ignore

// Loadtest sends concurrent GET requests to the proxy and reports throughput,
// latency percentiles and how responses were distributed.
//
// Usage:
//
//	go run loadtest.go -url http://localhost:8080/call-client1 -concurrency 10 -requests 1000
//	go run loadtest.go -concurrency 50 -requests 5000 -out summary.json
//
// Responses are grouped by body, so running client1.go instances with distinct
// -tag values shows the balancing strategy at work.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type bodyStats struct {
	Count     int32           `json:"count"`
	Latencies []time.Duration `json:"-"`
}

func main() {
	var (
		url         = flag.String("url", "http://localhost:8080/call-client1", "Target URL")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		timeoutSec  = flag.Int("timeout", 10, "Per-request timeout in seconds")
		outJSON     = flag.String("out", "", "Write JSON summary to this file (optional)")
		verbose     = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}

	jobs := make(chan int)
	var wg sync.WaitGroup

	var success, failure int32

	bodies := make(map[string]*bodyStats)
	statusCodes := make(map[int]int32)
	var allLatencies []time.Duration
	var mu sync.Mutex

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				start := time.Now()
				resp, err := client.Get(*url)
				if err != nil {
					atomic.AddInt32(&failure, 1)
					if *verbose {
						fmt.Printf("[%d] idx=%d error=%v\n", workerID, idx, err)
					}
					continue
				}
				body, err := io.ReadAll(resp.Body)
				resp.Body.Close()
				dur := time.Since(start)

				if err != nil || resp.StatusCode != http.StatusOK {
					atomic.AddInt32(&failure, 1)
				} else {
					atomic.AddInt32(&success, 1)
				}

				mu.Lock()
				allLatencies = append(allLatencies, dur)
				statusCodes[resp.StatusCode]++
				if resp.StatusCode == http.StatusOK {
					bs, ok := bodies[string(body)]
					if !ok {
						bs = &bodyStats{}
						bodies[string(body)] = bs
					}
					bs.Count++
					bs.Latencies = append(bs.Latencies, dur)
				}
				mu.Unlock()

				if *verbose {
					fmt.Printf("[%d] idx=%d status=%d body=%q dur=%v\n", workerID, idx, resp.StatusCode, body, dur)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)
	throughput := float64(*requests) / totalDuration.Seconds()

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", *url)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Success: %d  Failure: %d\n", success, failure)
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, throughput)

	fmt.Println("\nStatus codes:")
	var codes []int
	for k := range statusCodes {
		codes = append(codes, k)
	}
	sort.Ints(codes)
	for _, k := range codes {
		fmt.Printf("  %d -> %d\n", k, statusCodes[k])
	}

	fmt.Println("\nResponse distribution:")
	var keys []string
	for k := range bodies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	summary := make(map[string]map[string]float64, len(keys))
	for _, k := range keys {
		bs := bodies[k]
		p50, p95, p99 := percentiles(bs.Latencies)
		fmt.Printf("  %q -> %d  p50=%v p95=%v p99=%v\n", k, bs.Count, p50, p95, p99)
		summary[k] = map[string]float64{
			"count":  float64(bs.Count),
			"p50_ms": float64(p50.Microseconds()) / 1000,
			"p95_ms": float64(p95.Microseconds()) / 1000,
			"p99_ms": float64(p99.Microseconds()) / 1000,
		}
	}

	if len(allLatencies) > 0 {
		p50, p95, p99 := percentiles(allLatencies)
		fmt.Printf("\nOverall latencies: samples=%d p50=%v p95=%v p99=%v\n", len(allLatencies), p50, p95, p99)
	}

	if *outJSON != "" {
		report := map[string]interface{}{
			"target":         *url,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"success":        success,
			"failure":        failure,
			"duration_ms":    totalDuration.Milliseconds(),
			"throughput_rps": throughput,
			"responses":      summary,
		}
		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failure > 0 {
		os.Exit(2)
	}
}

func percentiles(samples []time.Duration) (p50, p95, p99 time.Duration) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	tmp := make([]time.Duration, len(samples))
	copy(tmp, samples)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })
	pick := func(p float64) time.Duration { return tmp[int(float64(len(tmp)-1)*p)] }
	return pick(0.50), pick(0.95), pick(0.99)
}
