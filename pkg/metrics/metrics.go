package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Catalog / install metrics
	ServicesInstalledTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warden_services_installed_total",
			Help: "Number of cataloged services currently installed, by category",
		},
		[]string{"category"},
	)

	InstallRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_install_runs_total",
			Help: "Total number of installation runs by final status",
		},
		[]string{"status"},
	)

	InstallRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "warden_install_run_duration_seconds",
			Help:    "Time taken for an installation run to reach a terminal status",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	ServiceInstallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_service_install_duration_seconds",
			Help:    "Time taken to install a single service, by service name",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// Image pull metrics
	ImagePullsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_image_pulls_total",
			Help: "Total number of image pulls by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	ImagePullDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_image_pull_duration_seconds",
			Help:    "Time taken to pull a service's image",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	// Health probe metrics
	HealthProbesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_health_probes_total",
			Help: "Total number of healthUrl probes by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	HealthProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_health_probe_duration_seconds",
			Help:    "Duration of a single healthUrl probe",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)

	// Runtime metrics
	RuntimeAvailable = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_runtime_available",
			Help: "Whether the resolved Docker Engine endpoint is currently reachable (1) or not (0)",
		},
	)

	// Wizard metrics
	WizardStepStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "warden_wizard_step_status",
			Help: "Current status of each wizard step (1 for the active status, 0 otherwise)",
		},
		[]string{"step", "status"},
	)

	WizardWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_wizard_store_write_failures_total",
			Help: "Total number of failed writes to the external wizard-state store",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_api_requests_total",
			Help: "Total number of API requests by method, route, and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(ServicesInstalledTotal)
	prometheus.MustRegister(InstallRunsTotal)
	prometheus.MustRegister(InstallRunDuration)
	prometheus.MustRegister(ServiceInstallDuration)
	prometheus.MustRegister(ImagePullsTotal)
	prometheus.MustRegister(ImagePullDuration)
	prometheus.MustRegister(HealthProbesTotal)
	prometheus.MustRegister(HealthProbeDuration)
	prometheus.MustRegister(RuntimeAvailable)
	prometheus.MustRegister(WizardStepStatus)
	prometheus.MustRegister(WizardWriteFailuresTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler, mounted alongside the
// control-plane API's /health and /ready endpoints.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
