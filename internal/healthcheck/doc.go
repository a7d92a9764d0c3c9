// Package healthcheck keeps instance health flags current by polling each
// instance's health endpoint. Unhealthy instances are skipped by the registry
// until a later probe succeeds.
package healthcheck
