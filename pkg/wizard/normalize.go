package wizard

import (
	"time"

	"github.com/noona-project/warden/pkg/types"
)

// CurrentVersion is the schema version of a freshly synthesized document
// and the value normalize substitutes for a version below 1; a written
// version >= 1 is kept as given. Readers accept any version >= 1; no
// translation logic exists for older payloads.
const CurrentVersion = 2

// DefaultTimelineLimit caps a step's timeline length when no caller-
// supplied limit applies.
const DefaultTimelineLimit = 100

var validStatuses = map[types.StepStatus]bool{
	types.StepPending:    true,
	types.StepInProgress: true,
	types.StepComplete:   true,
	types.StepError:      true,
	types.StepSkipped:    true,
}

// freshState synthesizes the default document: all four steps pending.
func freshState(now time.Time) *types.WizardState {
	return normalize(&types.WizardState{
		Version:   CurrentVersion,
		UpdatedAt: &now,
		Steps:     defaultSteps(),
	})
}

func defaultSteps() map[types.WizardStepKey]*types.StepState {
	steps := make(map[types.WizardStepKey]*types.StepState, len(types.WizardStepOrder))
	for _, key := range types.WizardStepOrder {
		steps[key] = &types.StepState{Status: types.StepPending, Retries: 0}
	}
	return steps
}

// normalize enforces every invariant a wizard document must hold:
//   - version >= 1
//   - step.status falls back to pending if unrecognized
//   - completed = every step is complete or skipped
//   - complete steps carry a non-nil completedAt
//   - timeline length <= DefaultTimelineLimit, oldest trimmed
//
// Unknown fields can't survive JSON (un)marshaling into typed structs, so
// there's nothing to drop here beyond what encoding/json already dropped.
func normalize(state *types.WizardState) *types.WizardState {
	if state == nil {
		now := time.Now().UTC()
		state = &types.WizardState{Version: CurrentVersion, UpdatedAt: &now}
	}
	if state.Version < 1 {
		state.Version = CurrentVersion
	}
	if state.Steps == nil {
		state.Steps = defaultSteps()
	}

	allDone := true
	for _, key := range types.WizardStepOrder {
		step, ok := state.Steps[key]
		if !ok || step == nil {
			step = &types.StepState{Status: types.StepPending}
			state.Steps[key] = step
		}
		if !validStatuses[step.Status] {
			step.Status = types.StepPending
		}
		if step.Status == types.StepComplete && step.CompletedAt == nil {
			now := time.Now().UTC()
			step.CompletedAt = &now
		}
		if len(step.Timeline) > DefaultTimelineLimit {
			step.Timeline = step.Timeline[len(step.Timeline)-DefaultTimelineLimit:]
		}
		if step.Status != types.StepComplete && step.Status != types.StepSkipped {
			allDone = false
		}
	}

	state.Completed = allDone
	return state
}
