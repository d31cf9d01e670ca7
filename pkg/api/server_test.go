package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noona-project/warden/pkg/catalog"
	"github.com/noona-project/warden/pkg/history"
	"github.com/noona-project/warden/pkg/install"
	"github.com/noona-project/warden/pkg/lifecycle"
	"github.com/noona-project/warden/pkg/metrics"
	"github.com/noona-project/warden/pkg/runtime"
	"github.com/noona-project/warden/pkg/types"
	"github.com/noona-project/warden/pkg/wizard"
)

const testFixtureCatalog = `
services:
  - name: foundation-api
    displayName: Foundation API
    category: core
    role: api
    image: noona/api:latest
  - name: noona-portal
    displayName: Noona Portal
    category: addon
    role: integration
    image: noona/portal:latest
    dependencies: [foundation-api]
  - name: noona-raven
    displayName: Noona Raven
    category: addon
    role: downloader
    image: noona/raven:latest
    dependencies: [foundation-api]
    autoDetectMount: true
    mountImageGlob: "*kavita*"
    mountDest: /data
`

type stubRuntime struct {
	failNames map[string]bool
}

func (f *stubRuntime) Ping(ctx context.Context) error { return nil }
func (f *stubRuntime) ListContainers(ctx context.Context, all bool) ([]runtime.ContainerSummary, error) {
	return nil, nil
}
func (f *stubRuntime) InspectContainer(ctx context.Context, id string) (runtime.ContainerSummary, error) {
	return runtime.ContainerSummary{}, nil
}
func (f *stubRuntime) ContainerExists(ctx context.Context, name string) (bool, error) {
	return false, nil
}
func (f *stubRuntime) PullImage(ctx context.Context, ref string, progress runtime.ProgressFunc) error {
	return nil
}
func (f *stubRuntime) RunContainer(ctx context.Context, spec runtime.RunSpec) (string, error) {
	if f.failNames[spec.Name] {
		return "", assertErr{"simulated run failure"}
	}
	return "container-" + spec.Name, nil
}
func (f *stubRuntime) StopContainer(ctx context.Context, id string) error   { return nil }
func (f *stubRuntime) RemoveContainer(ctx context.Context, id string) error { return nil }
func (f *stubRuntime) AttachLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("")), nil
}
func (f *stubRuntime) EnsureNetwork(ctx context.Context, name string) (string, error) {
	return "net-1", nil
}
func (f *stubRuntime) ConnectNetwork(ctx context.Context, networkName, containerID string) error {
	return nil
}
func (f *stubRuntime) Close() error { return nil }

type assertErr struct{ msg string }

func (e assertErr) Error() string { return e.msg }

func newFakeKVServer() *httptest.Server {
	var value string
	var hasValue bool

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Operation string `json:"operation"`
			Payload   struct {
				Value string `json:"value"`
			} `json:"payload"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		switch req.Operation {
		case "set":
			value = req.Payload.Value
			hasValue = true
			_ = json.NewEncoder(w).Encode(map[string]any{})
		case "get":
			if !hasValue {
				_ = json.NewEncoder(w).Encode(map[string]any{})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"data": value})
		}
	}))
}

func newTestServer(t *testing.T, rt *stubRuntime) *Server {
	t.Helper()

	cat, err := catalog.LoadFromYAML([]byte(testFixtureCatalog), nil)
	require.NoError(t, err)

	hist := history.NewStore(0)
	engine := lifecycle.NewEngine(rt, nil, hist)

	kvServer := newFakeKVServer()
	t.Cleanup(kvServer.Close)
	store := wizard.NewKVStore(kvServer.URL, "test-token", 0)
	cache, err := wizard.OpenCache(filepath.Join(t.TempDir(), "wizard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })
	wiz := wizard.NewService(store, cache)

	coord := install.NewCoordinator(cat, engine, hist, wiz)

	return NewServer(cat, coord, hist, engine, wiz)
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth_ReturnsOK(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body metrics.HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
}

func TestLive_AlwaysOK(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodGet, "/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListServices_ReturnsCatalog(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodGet, "/api/services", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string][]types.DescriptorSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body["services"], 3)
}

func TestInstallServices_HappyPathReturns200(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodPost, "/api/services/install", installRequestBody{
		Services: []types.InstallRequest{{Name: "noona-portal"}},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var body installResponseBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Results, 2)
}

func TestInstallServices_PartialFailureReturns207(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{"foundation-api": true}})
	rec := doRequest(s, http.MethodPost, "/api/services/install", installRequestBody{
		Services: []types.InstallRequest{{Name: "noona-portal"}},
	})
	assert.Equal(t, http.StatusMultiStatus, rec.Code)
}

func TestInstallServices_UnknownServiceReturns400(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodPost, "/api/services/install", installRequestBody{
		Services: []types.InstallRequest{{Name: "does-not-exist"}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceLogs_UnknownServiceReturns404(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodGet, "/api/services/does-not-exist/logs", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServiceLogs_KnownServiceReturnsHistory(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	doRequest(s, http.MethodPost, "/api/services/install", installRequestBody{
		Services: []types.InstallRequest{{Name: "foundation-api"}},
	})

	rec := doRequest(s, http.MethodGet, "/api/services/foundation-api/logs", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var hist types.ServiceHistory
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.NotEmpty(t, hist.Entries)
}

func TestTestService_NoHealthURLReturnsConflict(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodPost, "/api/services/foundation-api/test", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPassiveHealth_UnknownStatusWhenNeverTested(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodGet, "/api/services/foundation-api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var result passiveHealthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "unknown", result.Status)
}

func TestDetectRavenMount_NoMatchReturnsNilMountPath(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodPost, "/api/services/noona-raven/detect", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body detectionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body.Detection.MountPath)
}

func TestWizardMetadata_ReturnsFourSteps(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodGet, "/api/setup/wizard/metadata", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var meta wizard.Metadata
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &meta))
	assert.Len(t, meta.Steps, 4)
}

func TestWizardState_SynthesizesDefault(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodGet, "/api/setup/wizard/state", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var state types.WizardState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, types.StepPending, state.Steps[types.StepFoundation].Status)
}

func TestWizardPutState_PartialUpdate(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})

	status := types.StepInProgress
	rec := doRequest(s, http.MethodPut, "/api/setup/wizard/state", map[string]any{
		"updates": []types.StepUpdate{{Step: types.StepPortal, Status: &status}},
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var state types.WizardState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, types.StepInProgress, state.Steps[types.StepPortal].Status)
}

func TestWizardPutState_InvalidPayloadReturns400(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodPut, "/api/setup/wizard/state", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStepHistory_UnknownStepReturns404(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodGet, "/api/setup/wizard/steps/bogus/history", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStepBroadcast_AppendsTimelineEvent(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodPost, "/api/setup/wizard/steps/raven/broadcast", types.WizardBroadcastRequest{
		Message: "scanning for external mount",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "event")
}

func TestStepReset_ClearsStatus(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodPost, "/api/setup/wizard/steps/raven/reset", types.WizardResetPayload{
		Message: "manual reset",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCompleteWizard_NoInstallYetIsSuccess(t *testing.T) {
	s := newTestServer(t, &stubRuntime{failNames: map[string]bool{}})
	rec := doRequest(s, http.MethodPost, "/api/setup/wizard/complete", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
