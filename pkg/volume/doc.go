// Package volume ensures the host-side directories a service descriptor's
// bind mounts point at exist before the lifecycle engine creates that
// service's container.
package volume
