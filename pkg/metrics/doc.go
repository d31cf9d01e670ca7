/*
Package metrics defines and registers the Prometheus metrics the control
plane exposes at /metrics: catalog install gauges, image-pull and
health-probe counters/histograms, runtime reachability, wizard step
status, and HTTP API request counters, alongside a small process
liveness/readiness tracker (HealthChecker) consumed by the /health, /ready,
and /live endpoints.

Collector polls the gauge-shaped metrics (catalog install counts, runtime
reachability, wizard step status) on a fixed interval; everything else is
a counter or histogram that is registered and exposed but not updated by
any component in this repository.
*/
package metrics
