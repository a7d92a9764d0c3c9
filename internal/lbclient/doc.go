// Package lbclient provides an http.Client for service-to-service calls by
// logical name.
//
// A request to http://service-client1/hello is resolved through a Resolver to
// one concrete instance, rewritten to that instance's address and forwarded by
// the base transport:
//
//	client := lbclient.NewClient(reg,
//		lbclient.WithLogger(log),
//		lbclient.WithCollector(collector))
//	resp, err := client.Get("http://service-client1/hello")
//
// The chosen instance stays reserved until the response body is closed, so
// in-flight aware strategies see long downloads. Every call gets an
// OpenTelemetry client span and the configured propagator injects its context
// into the outbound headers. There are no retries: a failed call fails.
package lbclient
