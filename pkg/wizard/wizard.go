// Package wizard implements the Wizard State Service (C6): a versioned,
// four-step state document persisted in an external key-value store, with
// partial-update, full-replace, reset, and timeline-broadcast semantics.
// A local bbolt cache (cache.go) mirrors the last-known-good document so
// reads keep working while the external store is unreachable.
package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noona-project/warden/pkg/log"
	"github.com/noona-project/warden/pkg/types"
)

// Service is the Wizard State Service. All operations serialize through mu
// so ApplyUpdates/RecordBroadcast/ResetStep's read-merge-write sequences
// don't race each other within this process; a separate process writing
// the same external key concurrently still wins last-writer-wins.
type Service struct {
	mu    sync.Mutex
	store *KVStore
	cache *Cache
}

// NewService creates a Wizard State Service over an external key-value
// store, with the given local cache for last-known-good reads.
func NewService(store *KVStore, cache *Cache) *Service {
	return &Service{store: store, cache: cache}
}

// LoadState fetches the current document; if the store has nothing yet, a
// fresh default document is synthesized. If the store is unreachable, the
// local cache's last-known-good copy is served instead.
func (s *Service) LoadState() (*types.WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// CurrentState satisfies metrics.WizardSource.
func (s *Service) CurrentState() (*types.WizardState, error) {
	return s.LoadState()
}

func (s *Service) loadLocked() (*types.WizardState, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	raw, found, err := s.store.Get(ctx)
	if err != nil {
		log.WithComponent("wizard").Error().Err(err).Msg("wizard store unreachable, falling back to local cache")
		return s.loadFromCache()
	}
	if !found {
		now := time.Now().UTC()
		state := freshState(now)
		return state, nil
	}

	var state types.WizardState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		log.WithComponent("wizard").Warn().Err(err).Msg("malformed wizard state in store, using defaults")
		return freshState(time.Now().UTC()), nil
	}

	normalized := normalize(&state)
	s.mirrorToCache(normalized)
	return normalized, nil
}

func (s *Service) loadFromCache() (*types.WizardState, error) {
	if s.cache == nil {
		return freshState(time.Now().UTC()), nil
	}

	raw, found, err := s.cache.Get()
	if err != nil || !found {
		return freshState(time.Now().UTC()), nil
	}

	var state types.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		return freshState(time.Now().UTC()), nil
	}
	return normalize(&state), nil
}

func (s *Service) mirrorToCache(state *types.WizardState) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return
	}
	if err := s.cache.Put(raw); err != nil {
		log.WithComponent("wizard").Warn().Err(err).Msg("failed to mirror wizard state to local cache")
	}
}

// WriteState normalizes state, stamps updatedAt, and persists it. Write
// failures are logged, not returned as fatal to callers that can tolerate
// eventual consistency (the installation coordinator); HTTP callers still
// see the error via apierr.StoreError.
func (s *Service) WriteState(state *types.WizardState) (*types.WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(state)
}

func (s *Service) writeLocked(state *types.WizardState) (*types.WizardState, error) {
	now := time.Now().UTC()
	state.UpdatedAt = &now
	normalized := normalize(state)

	raw, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to encode wizard state: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.Set(ctx, string(raw)); err != nil {
		log.WithComponent("wizard").Error().Err(err).Msg("failed to write wizard state to store")
		return normalized, err
	}

	s.mirrorToCache(normalized)
	return normalized, nil
}

// ApplyUpdates loads the current state, merges each StepUpdate's present
// fields into the matching step, and writes back if anything changed.
func (s *Service) ApplyUpdates(updates []types.StepUpdate) (*types.WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return nil, err
	}

	changed := false
	now := time.Now().UTC()

	for _, update := range updates {
		step, ok := state.Steps[update.Step]
		if !ok || step == nil {
			step = &types.StepState{Status: types.StepPending}
			state.Steps[update.Step] = step
		}
		if applyStepUpdate(step, update, now) {
			changed = true
		}
	}

	if !changed {
		return state, nil
	}

	state.UpdatedAt = &now
	return s.writeLocked(state)
}

// applyStepUpdate merges one StepUpdate into step, returning whether
// anything actually changed. A Clear* flag (set only by an explicit JSON
// null, see types.StepUpdate) wins over the paired pointer field and blanks
// it; a nil pointer with its Clear* flag unset leaves the field untouched.
func applyStepUpdate(step *types.StepState, update types.StepUpdate, now time.Time) bool {
	changed := false
	wasComplete := step.Status == types.StepComplete

	if update.Status != nil && *update.Status != step.Status {
		step.Status = *update.Status
		changed = true
	}

	switch {
	case update.ClearDetail:
		if step.Detail != "" {
			step.Detail = ""
			changed = true
		}
	case update.Detail != nil && *update.Detail != step.Detail:
		step.Detail = *update.Detail
		changed = true
	}

	switch {
	case update.ClearError:
		if step.Error != "" {
			step.Error = ""
			changed = true
		}
	case update.Error != nil && *update.Error != step.Error:
		step.Error = *update.Error
		changed = true
	}

	if update.Actor != nil {
		step.Actor = update.Actor
		changed = true
	}
	if update.Retries != nil && *update.Retries != step.Retries {
		step.Retries = *update.Retries
		changed = true
	}
	if update.Timeline != nil {
		step.Timeline = update.Timeline
		changed = true
	}

	nowComplete := step.Status == types.StepComplete
	switch {
	case update.ClearCompletedAt:
		if step.CompletedAt != nil {
			step.CompletedAt = nil
			changed = true
		}
	case update.CompletedAt != nil:
		step.CompletedAt = update.CompletedAt
		changed = true
	case !wasComplete && nowComplete:
		step.CompletedAt = &now
		changed = true
	case wasComplete && !nowComplete:
		step.CompletedAt = nil
		changed = true
	}

	if changed {
		switch {
		case update.ClearUpdatedAt:
			step.UpdatedAt = nil
		case update.UpdatedAt != nil:
			step.UpdatedAt = update.UpdatedAt
		default:
			step.UpdatedAt = &now
		}
	}

	return changed
}

// RecordBroadcast appends one TimelineEvent to step's timeline (trimmed to
// limit, default DefaultTimelineLimit), optionally updating the step's
// status in the same write.
func (s *Service) RecordBroadcast(step types.WizardStepKey, message, detail string, status *types.StepStatus, code string, actor *types.Actor, limit int, context map[string]string) (*types.WizardState, types.TimelineEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return nil, types.TimelineEvent{}, err
	}
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}

	stepState, ok := state.Steps[step]
	if !ok || stepState == nil {
		stepState = &types.StepState{Status: types.StepPending}
		state.Steps[step] = stepState
	}

	now := time.Now().UTC()
	eventStatus := stepState.Status
	if status != nil {
		eventStatus = *status
	}

	event := types.TimelineEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		Status:    eventStatus,
		Message:   message,
		Detail:    detail,
		Code:      code,
		Actor:     actor,
		Context:   context,
	}

	stepState.Timeline = append(stepState.Timeline, event)
	if len(stepState.Timeline) > limit {
		stepState.Timeline = stepState.Timeline[len(stepState.Timeline)-limit:]
	}

	if status != nil {
		stepState.Status = *status
	}
	stepState.UpdatedAt = &now
	state.UpdatedAt = &now

	written, err := s.writeLocked(state)
	return written, event, err
}

// ResetStep sets step back to pending, clears error and completedAt,
// appends a reset timeline event, and recomputes the top-level completed
// flag.
func (s *Service) ResetStep(step types.WizardStepKey, actor *types.Actor, detail, message string, limit int, context map[string]string) (*types.WizardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.loadLocked()
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	if message == "" {
		message = "step reset"
	}

	stepState, ok := state.Steps[step]
	if !ok || stepState == nil {
		stepState = &types.StepState{}
		state.Steps[step] = stepState
	}

	now := time.Now().UTC()
	stepState.Status = types.StepPending
	stepState.Error = ""
	stepState.CompletedAt = nil
	stepState.Detail = detail
	stepState.UpdatedAt = &now
	stepState.Actor = actor

	resetStatus := types.StepPending
	event := types.TimelineEvent{
		ID:        uuid.NewString(),
		Timestamp: now,
		Status:    resetStatus,
		Message:   message,
		Actor:     actor,
		Context:   context,
	}
	stepState.Timeline = append(stepState.Timeline, event)
	if len(stepState.Timeline) > limit {
		stepState.Timeline = stepState.Timeline[len(stepState.Timeline)-limit:]
	}

	state.UpdatedAt = &now
	return s.writeLocked(state)
}

// CompleteInstall finalizes the verification step: complete if the
// install run had no errors, error otherwise.
func (s *Service) CompleteInstall(hasErrors bool) (*types.WizardState, error) {
	status := types.StepComplete
	message := "installation verified"
	if hasErrors {
		status = types.StepError
		message = "installation completed with errors"
	}

	if _, err := s.ApplyUpdates([]types.StepUpdate{
		{Step: types.StepVerification, Status: &status},
	}); err != nil {
		return nil, err
	}

	state, _, err := s.RecordBroadcast(types.StepVerification, message, "", &status, "", nil, 0, nil)
	return state, err
}
