package wizard

import (
	"encoding/json"
	"fmt"

	"github.com/noona-project/warden/pkg/apierr"
	"github.com/noona-project/warden/pkg/types"
)

// OperationType tags the result of ResolveOperation.
type OperationType string

const (
	OperationReplace OperationType = "replace"
	OperationUpdate  OperationType = "update"
)

// Operation is the caller's intent, decoded from a PUT /state body.
type Operation struct {
	Type    OperationType
	State   *types.WizardState
	Updates []types.StepUpdate
}

// putStateBody mirrors the two accepted shapes of PUT /api/setup/wizard/state.
type putStateBody struct {
	State   *types.WizardState `json:"state"`
	Updates []types.StepUpdate `json:"updates"`
}

// ResolveOperation inspects a raw PUT /state request body and classifies
// it as a full replace or a partial update. Neither shape present is an
// apierr.ValidationError ("InvalidPayload").
func ResolveOperation(raw []byte) (Operation, error) {
	var body putStateBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return Operation{}, &apierr.ValidationError{Message: fmt.Sprintf("invalid JSON body: %v", err)}
	}

	switch {
	case body.State != nil:
		return Operation{Type: OperationReplace, State: normalize(body.State)}, nil
	case body.Updates != nil:
		return Operation{Type: OperationUpdate, Updates: body.Updates}, nil
	default:
		return Operation{}, &apierr.ValidationError{Message: "request body must contain either \"state\" or \"updates\""}
	}
}
