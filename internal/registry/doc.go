// Package registry resolves logical service names to concrete instances.
//
// Instances come from static configuration. Resolve filters out unhealthy
// instances, lets the service's strategy choose, and reserves the chosen one
// so in-flight aware strategies see the call.
package registry
