// Package install implements the Installation Coordinator (C4): the
// component that expands a set of requested services into their full
// dependency closure, drives the Lifecycle Engine over that closure in
// topological order, and keeps the Wizard State Service's step statuses
// in sync with install progress as it goes.
package install

import (
	"context"
	"fmt"
	"sync"

	"github.com/noona-project/warden/pkg/apierr"
	"github.com/noona-project/warden/pkg/catalog"
	"github.com/noona-project/warden/pkg/history"
	"github.com/noona-project/warden/pkg/lifecycle"
	"github.com/noona-project/warden/pkg/log"
	"github.com/noona-project/warden/pkg/types"
	"github.com/noona-project/warden/pkg/wizard"
)

// roleToStep is the fixed wizard step-to-service-role mapping.
var roleToStep = map[types.ServiceRole]types.WizardStepKey{
	types.RoleCache:        types.StepFoundation,
	types.RoleDatabase:     types.StepFoundation,
	types.RoleStore:        types.StepFoundation,
	types.RoleUI:           types.StepFoundation,
	types.RoleAPI:          types.StepFoundation,
	types.RoleOrchestrator: types.StepFoundation,
	types.RoleIntegration:  types.StepPortal,
	types.RoleDownloader:   types.StepRaven,
}

// Coordinator runs one install at a time; a second concurrent call while
// one is in flight is rejected with apierr.InstallInProgress.
type Coordinator struct {
	catalog *catalog.Catalog
	engine  *lifecycle.Engine
	history *history.Store
	wizard  *wizard.Service

	mu sync.Mutex
}

// NewCoordinator wires the catalog, lifecycle engine, history store, and
// wizard service the coordinator drives a run across.
func NewCoordinator(cat *catalog.Catalog, engine *lifecycle.Engine, hist *history.Store, wiz *wizard.Service) *Coordinator {
	return &Coordinator{catalog: cat, engine: engine, history: hist, wizard: wiz}
}

// InstallServices validates requests, expands them to their dependency
// closure, and starts every service in that closure in topological order,
// continuing past a per-service failure rather than aborting the run.
func (c *Coordinator) InstallServices(ctx context.Context, requests []types.InstallRequest) ([]types.InstallResult, error) {
	if !c.mu.TryLock() {
		return nil, apierr.InstallInProgress()
	}
	defer c.mu.Unlock()

	names, envByName, err := c.validate(requests)
	if err != nil {
		return nil, err
	}

	closureNames, err := c.catalog.Closure(names)
	if err != nil {
		return nil, err
	}

	c.history.BeginInstall(closureNames)
	participants := c.resetWizardSteps(closureNames)

	results := make([]types.InstallResult, 0, len(closureNames))
	hasErrors := false

	// failed tracks services that have already ended this run in
	// InstallError, so a dependent later in closureNames (which Closure
	// guarantees always comes after its dependencies) can be skipped
	// instead of attempted against a prerequisite that never came up.
	failed := make(map[string]bool, len(closureNames))

	for _, name := range closureNames {
		descriptor, err := c.catalog.Get(name)
		if err != nil {
			hasErrors = true
			failed[name] = true
			c.history.SetInstallStatus(name, types.InstallError, err.Error())
			results = append(results, types.InstallResult{Name: name, Status: types.InstallError, Error: err.Error()})
			c.updateStepAggregate(participants)
			continue
		}

		if dep, blocked := firstFailedDependency(descriptor.Dependencies, failed); blocked {
			hasErrors = true
			failed[name] = true
			reason := fmt.Sprintf("dependency failed: %s", dep)
			c.history.SetInstallStatus(name, types.InstallError, reason)
			results = append(results, types.InstallResult{Name: name, Status: types.InstallError, Error: reason})
			c.updateStepAggregate(participants)
			continue
		}

		c.history.SetInstallStatus(name, types.InstallInstalling, "")
		c.updateStepAggregate(participants)

		if err := c.engine.StartService(ctx, descriptor, envByName[name]); err != nil {
			hasErrors = true
			failed[name] = true
			c.history.SetInstallStatus(name, types.InstallError, err.Error())
			results = append(results, types.InstallResult{Name: name, Status: types.InstallError, Error: err.Error()})
		} else {
			c.history.SetInstallStatus(name, types.InstallInstalled, "")
			results = append(results, types.InstallResult{Name: name, Status: types.InstallInstalled})
		}
		c.updateStepAggregate(participants)
	}

	overall := types.OverallComplete
	if hasErrors {
		overall = types.OverallFailed
	}
	c.history.FinishInstall(overall)

	if _, err := c.wizard.CompleteInstall(hasErrors); err != nil {
		log.WithComponent("install").Warn().Err(err).Msg("failed to finalize wizard verification step")
	}

	return results, nil
}

// firstFailedDependency reports the first of deps already marked failed in
// this run, so its dependent can be short-circuited to InstallError instead
// of attempted against a prerequisite that never came up.
func firstFailedDependency(deps []string, failed map[string]bool) (string, bool) {
	for _, dep := range deps {
		if failed[dep] {
			return dep, true
		}
	}
	return "", false
}

// validate checks every request names a known service and collects each
// one's env overrides, deduplicating repeated names (later entries win).
func (c *Coordinator) validate(requests []types.InstallRequest) ([]string, map[string]map[string]string, error) {
	if len(requests) == 0 {
		return nil, nil, &apierr.ValidationError{Message: "at least one service must be requested"}
	}

	names := make([]string, 0, len(requests))
	envByName := make(map[string]map[string]string, len(requests))
	seen := make(map[string]bool, len(requests))

	for _, r := range requests {
		if r.Name == "" {
			return nil, nil, &apierr.ValidationError{Message: "service name must not be empty"}
		}
		if _, err := c.catalog.Get(r.Name); err != nil {
			return nil, nil, &apierr.ValidationError{Message: fmt.Sprintf("unknown service %q", r.Name)}
		}
		envByName[r.Name] = r.Env
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}

	return names, envByName, nil
}

// resetWizardSteps computes which services in closureNames participate in
// each wizard step, marks the first step with participants in-progress
// and the rest pending, and marks steps with no participating service in
// this run skipped. It returns the participant map so later aggregate
// updates don't need to recompute it.
func (c *Coordinator) resetWizardSteps(closureNames []string) map[types.WizardStepKey][]string {
	participants := make(map[types.WizardStepKey][]string)
	for _, name := range closureNames {
		descriptor, err := c.catalog.Get(name)
		if err != nil {
			continue
		}
		step, ok := roleToStep[descriptor.Role]
		if !ok {
			continue
		}
		participants[step] = append(participants[step], name)
	}

	var updates []types.StepUpdate
	firstActiveSet := false
	for _, step := range types.WizardStepOrder {
		if step == types.StepVerification {
			status := types.StepPending
			updates = append(updates, types.StepUpdate{Step: step, Status: &status})
			continue
		}

		var status types.StepStatus
		switch {
		case len(participants[step]) == 0:
			status = types.StepSkipped
		case !firstActiveSet:
			status = types.StepInProgress
			firstActiveSet = true
		default:
			status = types.StepPending
		}
		updates = append(updates, types.StepUpdate{Step: step, Status: &status})
	}

	if _, err := c.wizard.ApplyUpdates(updates); err != nil {
		log.WithComponent("install").Warn().Err(err).Msg("failed to reset wizard steps for new install")
	}

	return participants
}

// updateStepAggregate recomputes and writes each participating step's
// status from the current per-service install statuses, then advances
// any step that just became complete's successor from pending to
// in-progress.
func (c *Coordinator) updateStepAggregate(participants map[types.WizardStepKey][]string) {
	progress := c.history.GetInstallationProgress()
	statusByName := make(map[string]types.InstallStatus, len(progress.Items))
	for _, item := range progress.Items {
		statusByName[item.Name] = item.Status
	}

	var updates []types.StepUpdate
	for _, step := range types.WizardStepOrder {
		names := participants[step]
		if len(names) == 0 {
			continue
		}
		status := aggregateStepStatus(names, statusByName)
		updates = append(updates, types.StepUpdate{Step: step, Status: &status})
	}
	if len(updates) == 0 {
		return
	}

	state, err := c.wizard.ApplyUpdates(updates)
	if err != nil {
		log.WithComponent("install").Warn().Err(err).Msg("failed to update wizard step aggregate")
		return
	}

	c.advancePendingSteps(state)
}

// aggregateStepStatus applies the step aggregation rule: any error wins,
// else all-installed is complete, else any-installing is in-progress,
// else pending.
func aggregateStepStatus(names []string, statusByName map[string]types.InstallStatus) types.StepStatus {
	allInstalled := true
	anyInstalling := false

	for _, name := range names {
		switch statusByName[name] {
		case types.InstallError:
			return types.StepError
		case types.InstallInstalling:
			anyInstalling = true
			allInstalled = false
		case types.InstallPending:
			allInstalled = false
		}
	}

	if allInstalled {
		return types.StepComplete
	}
	if anyInstalling {
		return types.StepInProgress
	}
	return types.StepPending
}

// advancePendingSteps transitions the successor of any complete step from
// pending to in-progress, in wizard step order.
func (c *Coordinator) advancePendingSteps(state *types.WizardState) {
	var updates []types.StepUpdate
	for i := 0; i+1 < len(types.WizardStepOrder); i++ {
		current := state.Steps[types.WizardStepOrder[i]]
		next := state.Steps[types.WizardStepOrder[i+1]]
		if current == nil || next == nil {
			continue
		}
		if current.Status == types.StepComplete && next.Status == types.StepPending {
			status := types.StepInProgress
			updates = append(updates, types.StepUpdate{Step: types.WizardStepOrder[i+1], Status: &status})
		}
	}
	if len(updates) == 0 {
		return
	}
	if _, err := c.wizard.ApplyUpdates(updates); err != nil {
		log.WithComponent("install").Warn().Err(err).Msg("failed to advance wizard step")
	}
}
