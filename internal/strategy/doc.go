// Package strategy holds the algorithms that pick one instance of a logical
// service for an outbound call:
//
//   - round-robin: instances in turn
//   - random: uniform random pick
//   - least-conn: fewest calls in flight
//   - least-response: lowest EWMA latency weighted by calls in flight
//   - weighted-round-robin: smooth weighted round-robin over configured weights
//
// Strategies only see healthy instances; filtering happens in the registry.
package strategy
