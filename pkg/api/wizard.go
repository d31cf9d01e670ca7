package api

import (
	"io"
	"net/http"

	"github.com/noona-project/warden/pkg/apierr"
	"github.com/noona-project/warden/pkg/types"
	"github.com/noona-project/warden/pkg/wizard"
)

func (s *Server) wizardMetadata(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wizard.DescribeSteps())
}

func (s *Server) wizardState(w http.ResponseWriter, r *http.Request) {
	state, err := s.wizard.LoadState()
	if err != nil {
		writeError(w, &apierr.StoreError{Cause: err})
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// wizardPutState accepts either a full replace ({state: WizardState}) or a
// partial update ({updates: [StepUpdate]}), dispatched by ResolveOperation.
func (s *Server) wizardPutState(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, &apierr.ValidationError{Message: "failed to read request body"})
		return
	}

	op, err := wizard.ResolveOperation(raw)
	if err != nil {
		writeError(w, err)
		return
	}

	var state *types.WizardState
	switch op.Type {
	case wizard.OperationReplace:
		state, err = s.wizard.WriteState(op.State)
	case wizard.OperationUpdate:
		state, err = s.wizard.ApplyUpdates(op.Updates)
	}
	if err != nil {
		writeError(w, &apierr.StoreError{Cause: err})
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func isKnownStep(step types.WizardStepKey) bool {
	for _, known := range types.WizardStepOrder {
		if known == step {
			return true
		}
	}
	return false
}

func (s *Server) stepHistory(w http.ResponseWriter, r *http.Request) {
	step := types.WizardStepKey(r.PathValue("step"))
	if !isKnownStep(step) {
		writeError(w, &apierr.NotFoundError{Kind: "step", Name: string(step)})
		return
	}

	state, err := s.wizard.LoadState()
	if err != nil {
		writeError(w, &apierr.StoreError{Cause: err})
		return
	}

	events := []types.TimelineEvent{}
	if stepState, ok := state.Steps[step]; ok {
		events = stepState.Timeline
	}
	if limit := limitFromQuery(r); limit > 0 && limit < len(events) {
		events = events[len(events)-limit:]
	}

	writeJSON(w, http.StatusOK, map[string]any{"step": step, "events": events})
}

func (s *Server) stepReset(w http.ResponseWriter, r *http.Request) {
	step := types.WizardStepKey(r.PathValue("step"))
	if !isKnownStep(step) {
		writeError(w, &apierr.NotFoundError{Kind: "step", Name: string(step)})
		return
	}

	var payload types.WizardResetPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	state, err := s.wizard.ResetStep(step, payload.Actor, payload.Detail, payload.Message, payload.Limit, payload.Context)
	if err != nil {
		writeError(w, &apierr.StoreError{Cause: err})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"wizard": state})
}

func (s *Server) stepBroadcast(w http.ResponseWriter, r *http.Request) {
	step := types.WizardStepKey(r.PathValue("step"))
	if !isKnownStep(step) {
		writeError(w, &apierr.NotFoundError{Kind: "step", Name: string(step)})
		return
	}

	var payload types.WizardBroadcastRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	status := payload.Status
	if status == nil && payload.EventStatus != "" {
		eventStatus := payload.EventStatus
		status = &eventStatus
	}

	state, event, err := s.wizard.RecordBroadcast(step, payload.Message, payload.Detail, status, payload.Code, payload.Actor, payload.Limit, payload.Context)
	if err != nil {
		writeError(w, &apierr.StoreError{Cause: err})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"wizard": state, "event": event, "step": step})
}

// completeWizard finalizes verification from the most recent install
// run's recorded outcome — the same hasErrors computation InstallServices
// uses, so a caller invoking /complete independently of a fresh install
// sees a consistent verdict.
func (s *Server) completeWizard(w http.ResponseWriter, r *http.Request) {
	hasErrors := false
	for _, item := range s.history.GetInstallationProgress().Items {
		if item.Status == types.InstallError {
			hasErrors = true
			break
		}
	}

	state, err := s.wizard.CompleteInstall(hasErrors)
	if err != nil {
		writeError(w, &apierr.StoreError{Cause: err})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"wizard": state})
}
