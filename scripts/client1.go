//go:build ignore

// Client1 is a stand-in for service-client1 used when running the proxy locally.
// It provides /hello and /health endpoints.
//
// Usage:
//
//	go run client1.go -port 8081
//	go run client1.go -port 8082 -tag b
//
// With -tag set the greeting carries the tag, which makes the instance that
// served a call visible through the proxy.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
)

const greeting = "Hello from client1"

func main() {
	port := flag.Int("port", 8081, "port to listen on")
	tag := flag.String("tag", "", "optional suffix appended to the greeting")
	flag.Parse()

	body := greeting
	if *tag != "" {
		body = fmt.Sprintf("%s [%s]", greeting, *tag)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /hello", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("request: method=%s path=%s from=%s", r.Method, r.URL.Path, r.RemoteAddr)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(body))
	})

	// polled by the proxy's health checker
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("starting client1 on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
