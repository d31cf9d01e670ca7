package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/noona-project/warden/pkg/apierr"
	"github.com/noona-project/warden/pkg/types"
)

type installRequestBody struct {
	Services []types.InstallRequest `json:"services"`
}

type installResponseBody struct {
	Results []types.InstallResult `json:"results"`
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	includeInstalled, _ := strconv.ParseBool(r.URL.Query().Get("includeInstalled"))
	writeJSON(w, http.StatusOK, map[string]any{"services": s.catalog.List(includeInstalled)})
}

// installServices starts an install run. A run with at least one
// per-service error still responds with the full per-service result
// list, at 207 instead of 200 so the caller can detect partial failure
// without inspecting every result.
func (s *Server) installServices(w http.ResponseWriter, r *http.Request) {
	var body installRequestBody
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, err)
		return
	}

	results, err := s.coordinator.InstallServices(r.Context(), body.Services)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	for _, result := range results {
		if result.Status == types.InstallError {
			status = http.StatusMultiStatus
			break
		}
	}
	writeJSON(w, status, installResponseBody{Results: results})
}

func (s *Server) installProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.history.GetInstallationProgress())
}

func (s *Server) serviceLogs(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, err := s.catalog.Get(name); err != nil {
		writeError(w, serviceNotFound(name))
		return
	}
	writeJSON(w, http.StatusOK, s.history.Get(name, limitFromQuery(r)))
}

func (s *Server) installationLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.history.Get("installation", limitFromQuery(r)))
}

type testResult struct {
	Success    bool   `json:"success"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode,omitempty"`
	Body       string `json:"body,omitempty"`
	URL        string `json:"url"`
	Error      string `json:"error,omitempty"`
}

// testService performs a live probe of a service's health URL, recording
// the outcome into its history.
func (s *Server) testService(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	descriptor, err := s.catalog.Get(name)
	if err != nil {
		writeError(w, serviceNotFound(name))
		return
	}
	if descriptor.HealthURL == "" {
		writeError(w, &apierr.ConflictError{Message: "service has no health URL to test"})
		return
	}

	result := testResult{URL: descriptor.HealthURL}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, descriptor.HealthURL, nil)
	if err != nil {
		result.Status = "unhealthy"
		result.Error = err.Error()
	} else if resp, err := http.DefaultClient.Do(req); err != nil {
		result.Status = "unhealthy"
		result.Error = err.Error()
	} else {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		result.StatusCode = resp.StatusCode
		result.Body = string(bodyBytes)
		result.Success = resp.StatusCode >= 200 && resp.StatusCode < 400
		if result.Success {
			result.Status = "healthy"
		} else {
			result.Status = "unhealthy"
		}
	}

	s.history.Append(name, types.HistoryEntry{
		Type:       types.EventTest,
		URL:        descriptor.HealthURL,
		Success:    result.Success,
		StatusCode: result.StatusCode,
		Detail:     result.Error,
	})

	writeJSON(w, http.StatusOK, result)
}

type passiveHealthResult struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checkedAt,omitempty"`
	Success   bool      `json:"success"`
	Detail    string    `json:"detail,omitempty"`
}

// passiveHealth reports the most recent test result already on record,
// without issuing a new probe.
func (s *Server) passiveHealth(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if _, err := s.catalog.Get(name); err != nil {
		writeError(w, serviceNotFound(name))
		return
	}

	hist := s.history.Get(name, 0)
	result := passiveHealthResult{Status: "unknown"}
	for i := len(hist.Entries) - 1; i >= 0; i-- {
		entry := hist.Entries[i]
		if entry.Type != types.EventTest {
			continue
		}
		result.Success = entry.Success
		result.CheckedAt = entry.Timestamp
		result.Detail = entry.Detail
		if entry.Success {
			result.Status = "healthy"
		} else {
			result.Status = "unhealthy"
		}
		break
	}

	writeJSON(w, http.StatusOK, result)
}

type detectionResponse struct {
	Detection struct {
		MountPath *string `json:"mountPath"`
	} `json:"detection"`
}

// detectRavenMount runs the Raven auto-discovery subroutine on demand, so
// the setup UI can offer a "detect again" action independent of install.
func (s *Server) detectRavenMount(w http.ResponseWriter, r *http.Request) {
	const ravenName = "noona-raven"

	descriptor, err := s.catalog.Get(ravenName)
	if err != nil {
		writeError(w, serviceNotFound(ravenName))
		return
	}

	detection, err := s.engine.DetectExternalMount(r.Context(), descriptor)
	if err != nil {
		writeError(w, &apierr.RuntimeError{Cause: err})
		return
	}

	var resp detectionResponse
	if detection.Found {
		path := detection.MountPath
		resp.Detection.MountPath = &path
	}
	writeJSON(w, http.StatusOK, resp)
}
