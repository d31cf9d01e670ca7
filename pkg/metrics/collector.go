package metrics

import (
	"context"
	"time"

	"github.com/noona-project/warden/pkg/types"
)

// CatalogSource is the subset of the Service Catalog the collector needs:
// enough to report how many cataloged services are currently installed.
type CatalogSource interface {
	List(includeInstalled bool) []types.DescriptorSummary
}

// RuntimePinger is the subset of the Runtime Client Resolver's resolved
// client the collector needs to report endpoint reachability.
type RuntimePinger interface {
	Ping(ctx context.Context) error
}

// WizardSource is the subset of the Wizard State Service the collector
// needs to report each step's current status.
type WizardSource interface {
	CurrentState() (*types.WizardState, error)
}

// Collector polls the catalog, runtime client, and wizard state on a
// fixed interval and updates the corresponding gauges. It updates only
// those "current state" gauges; the counters and histograms (install
// runs, pulls, health probes, API requests) are registered and exposed,
// but no component in this repository updates them.
type Collector struct {
	catalog CatalogSource
	runtime RuntimePinger
	wizard  WizardSource
	stopCh  chan struct{}
}

// NewCollector creates a metrics collector over the given sources. Any
// source may be nil, in which case the collector skips that gauge group.
func NewCollector(catalog CatalogSource, runtime RuntimePinger, wizard WizardSource) *Collector {
	return &Collector{
		catalog: catalog,
		runtime: runtime,
		wizard:  wizard,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds, collecting once
// immediately so /metrics is populated before the first tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectCatalogMetrics()
	c.collectRuntimeMetrics()
	c.collectWizardMetrics()
}

func (c *Collector) collectCatalogMetrics() {
	if c.catalog == nil {
		return
	}

	counts := make(map[types.ServiceCategory]int)
	for _, svc := range c.catalog.List(true) {
		if svc.Installed {
			counts[svc.Category]++
		}
	}

	for _, category := range []types.ServiceCategory{types.CategoryCore, types.CategoryAddon} {
		ServicesInstalledTotal.WithLabelValues(string(category)).Set(float64(counts[category]))
	}
}

func (c *Collector) collectRuntimeMetrics() {
	if c.runtime == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.runtime.Ping(ctx); err != nil {
		RuntimeAvailable.Set(0)
		return
	}
	RuntimeAvailable.Set(1)
}

func (c *Collector) collectWizardMetrics() {
	if c.wizard == nil {
		return
	}

	state, err := c.wizard.CurrentState()
	if err != nil || state == nil {
		return
	}

	for _, step := range types.WizardStepOrder {
		stepState := state.Steps[step]
		active := types.StepPending
		if stepState != nil {
			active = stepState.Status
		}

		for _, status := range []types.StepStatus{
			types.StepPending, types.StepInProgress, types.StepComplete,
			types.StepError, types.StepSkipped,
		} {
			value := 0.0
			if status == active {
				value = 1.0
			}
			WizardStepStatus.WithLabelValues(string(step), string(status)).Set(value)
		}
	}
}
