package wizard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noona-project/warden/pkg/types"
)

// fakeKVServer is a minimal in-memory implementation of §6.3's single
// POST endpoint, enough to drive KVStore against something real.
type fakeKVServer struct {
	mu       sync.Mutex
	value    string
	hasValue bool
	fail     bool
}

func newFakeKVServer() *httptest.Server {
	state := &fakeKVServer{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req kvRequest
		_ = json.NewDecoder(r.Body).Decode(&req)

		state.mu.Lock()
		defer state.mu.Unlock()

		if state.fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}

		switch req.Operation {
		case "set":
			state.value = req.Payload.Value
			state.hasValue = true
			json.NewEncoder(w).Encode(kvResponse{})
		case "get":
			if !state.hasValue {
				json.NewEncoder(w).Encode(kvResponse{})
				return
			}
			v := state.value
			json.NewEncoder(w).Encode(kvResponse{Data: &v})
		}
	}))
}

func newTestService(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	server := newFakeKVServer()
	store := NewKVStore(server.URL, "test-token", 0)
	cache, err := OpenCache(filepath.Join(t.TempDir(), "wizard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	return NewService(store, cache), server
}

func TestLoadState_SynthesizesDefaultWhenEmpty(t *testing.T) {
	svc, server := newTestService(t)
	defer server.Close()

	state, err := svc.LoadState()
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, state.Version)
	assert.False(t, state.Completed)
	for _, key := range types.WizardStepOrder {
		assert.Equal(t, types.StepPending, state.Steps[key].Status)
	}
}

func TestWriteState_ThenLoadState_RoundTrips(t *testing.T) {
	svc, server := newTestService(t)
	defer server.Close()

	state, err := svc.LoadState()
	require.NoError(t, err)
	state.Steps[types.StepFoundation].Status = types.StepInProgress

	_, err = svc.WriteState(state)
	require.NoError(t, err)

	reloaded, err := svc.LoadState()
	require.NoError(t, err)
	assert.Equal(t, types.StepInProgress, reloaded.Steps[types.StepFoundation].Status)
}

func TestApplyUpdates_PartialUpdateLeavesOtherStepsUntouched(t *testing.T) {
	svc, server := newTestService(t)
	defer server.Close()

	initial, err := svc.LoadState()
	require.NoError(t, err)

	status := types.StepInProgress
	detail := "validating"
	state, err := svc.ApplyUpdates([]types.StepUpdate{
		{Step: types.StepPortal, Status: &status, Detail: &detail},
	})
	require.NoError(t, err)

	assert.Equal(t, types.StepInProgress, state.Steps[types.StepPortal].Status)
	assert.Equal(t, "validating", state.Steps[types.StepPortal].Detail)
	assert.Nil(t, state.Steps[types.StepPortal].CompletedAt)
	assert.Equal(t, types.StepPending, state.Steps[types.StepFoundation].Status)
	assert.True(t, state.UpdatedAt.After(*initial.UpdatedAt) || state.UpdatedAt.Equal(*initial.UpdatedAt))
}

func TestApplyUpdates_CompleteStampsCompletedAt(t *testing.T) {
	svc, server := newTestService(t)
	defer server.Close()

	status := types.StepComplete
	state, err := svc.ApplyUpdates([]types.StepUpdate{
		{Step: types.StepFoundation, Status: &status},
	})
	require.NoError(t, err)

	require.NotNil(t, state.Steps[types.StepFoundation].CompletedAt)
}

func TestRecordBroadcast_TrimsToLimit(t *testing.T) {
	svc, server := newTestService(t)
	defer server.Close()

	var last types.TimelineEvent
	for i := 0; i < 101; i++ {
		_, event, err := svc.RecordBroadcast(types.StepRaven, "progress", "", nil, "", nil, 100, nil)
		require.NoError(t, err)
		last = event
	}

	state, err := svc.LoadState()
	require.NoError(t, err)

	timeline := state.Steps[types.StepRaven].Timeline
	assert.Len(t, timeline, 100)
	assert.Equal(t, last.ID, timeline[len(timeline)-1].ID)
}

func TestResetStep_ClearsErrorAndCompletedAt(t *testing.T) {
	svc, server := newTestService(t)
	defer server.Close()

	status := types.StepError
	errMsg := "pull failed"
	_, err := svc.ApplyUpdates([]types.StepUpdate{
		{Step: types.StepRaven, Status: &status, Error: &errMsg},
	})
	require.NoError(t, err)

	state, err := svc.ResetStep(types.StepRaven, nil, "", "", 0, nil)
	require.NoError(t, err)

	assert.Equal(t, types.StepPending, state.Steps[types.StepRaven].Status)
	assert.Empty(t, state.Steps[types.StepRaven].Error)
	assert.Nil(t, state.Steps[types.StepRaven].CompletedAt)
}

func TestApplyUpdates_ExplicitNullClearsDetailAndError(t *testing.T) {
	svc, server := newTestService(t)
	defer server.Close()

	status := types.StepError
	detail := "retrying download"
	errMsg := "pull failed"
	_, err := svc.ApplyUpdates([]types.StepUpdate{
		{Step: types.StepRaven, Status: &status, Detail: &detail, Error: &errMsg},
	})
	require.NoError(t, err)

	var clearing types.StepUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"step":"raven","detail":null,"error":null}`), &clearing))

	state, err := svc.ApplyUpdates([]types.StepUpdate{clearing})
	require.NoError(t, err)

	assert.Empty(t, state.Steps[types.StepRaven].Detail)
	assert.Empty(t, state.Steps[types.StepRaven].Error)
	// status was left out of the clearing payload entirely, so it must
	// stay untouched rather than reset.
	assert.Equal(t, types.StepError, state.Steps[types.StepRaven].Status)
}

func TestStepUpdate_UnmarshalJSON_DistinguishesAbsentFromNull(t *testing.T) {
	var absent types.StepUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"step":"raven"}`), &absent))
	assert.False(t, absent.ClearDetail)
	assert.Nil(t, absent.Detail)

	var explicitNull types.StepUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"step":"raven","detail":null}`), &explicitNull))
	assert.True(t, explicitNull.ClearDetail)
	assert.Nil(t, explicitNull.Detail)

	var explicitValue types.StepUpdate
	require.NoError(t, json.Unmarshal([]byte(`{"step":"raven","detail":"queued"}`), &explicitValue))
	assert.False(t, explicitValue.ClearDetail)
	require.NotNil(t, explicitValue.Detail)
	assert.Equal(t, "queued", *explicitValue.Detail)
}

func TestLoadState_FallsBackToCacheWhenStoreUnreachable(t *testing.T) {
	svc, server := newTestService(t)

	status := types.StepInProgress
	_, err := svc.ApplyUpdates([]types.StepUpdate{{Step: types.StepFoundation, Status: &status}})
	require.NoError(t, err)

	server.Close() // simulate store becoming unreachable

	state, err := svc.LoadState()
	require.NoError(t, err)
	assert.Equal(t, types.StepInProgress, state.Steps[types.StepFoundation].Status)
}

func TestResolveOperation_Replace(t *testing.T) {
	op, err := ResolveOperation([]byte(`{"state":{"version":2,"steps":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, OperationReplace, op.Type)
	require.NotNil(t, op.State)
}

func TestResolveOperation_Update(t *testing.T) {
	op, err := ResolveOperation([]byte(`{"updates":[{"step":"portal","status":"complete"}]}`))
	require.NoError(t, err)
	assert.Equal(t, OperationUpdate, op.Type)
	require.Len(t, op.Updates, 1)
}

func TestResolveOperation_UpdatePropagatesExplicitNullClears(t *testing.T) {
	op, err := ResolveOperation([]byte(`{"updates":[{"step":"portal","detail":null,"error":null}]}`))
	require.NoError(t, err)
	require.Len(t, op.Updates, 1)
	assert.True(t, op.Updates[0].ClearDetail)
	assert.True(t, op.Updates[0].ClearError)
}

func TestResolveOperation_InvalidPayload(t *testing.T) {
	_, err := ResolveOperation([]byte(`{}`))
	assert.Error(t, err)
}

func TestCompleteInstall_MarksVerification(t *testing.T) {
	svc, server := newTestService(t)
	defer server.Close()

	state, err := svc.CompleteInstall(false)
	require.NoError(t, err)
	assert.Equal(t, types.StepComplete, state.Steps[types.StepVerification].Status)

	state, err = svc.CompleteInstall(true)
	require.NoError(t, err)
	assert.Equal(t, types.StepError, state.Steps[types.StepVerification].Status)
}
