// Package types defines the shared data model for the Warden control plane:
// service descriptors from the catalog, install-run bookkeeping, per-service
// history entries, and the versioned wizard state document.
package types

import (
	"encoding/json"
	"time"
)

// ServiceCategory classifies a cataloged service for boot ordering.
type ServiceCategory string

const (
	CategoryCore  ServiceCategory = "core"
	CategoryAddon ServiceCategory = "addon"
)

// EnvConfigField documents one configurable environment field of a service,
// surfaced to the setup wizard so it can render a form for it.
type EnvConfigField struct {
	Key         string `yaml:"key" json:"key"`
	Label       string `yaml:"label" json:"label"`
	Description string `yaml:"description" json:"description,omitempty"`
	Default     string `yaml:"default" json:"default,omitempty"`
	Required    bool   `yaml:"required" json:"required"`
	ReadOnly    bool   `yaml:"readOnly" json:"readOnly,omitempty"`
	Warning     string `yaml:"warning" json:"warning,omitempty"`
}

// VolumeSpec is a static bind-mount declared by the catalog for a service.
type VolumeSpec struct {
	Source      string `yaml:"source" json:"source"`
	Destination string `yaml:"destination" json:"destination"`
	ReadOnly    bool   `yaml:"readOnly" json:"readOnly,omitempty"`
}

// ServiceRole classifies a service for the fixed super-boot-order tie-break
// and for the wizard step it contributes to, independent of its unique
// catalog name (e.g. the role "downloader" is carried by the service named
// "noona-raven").
type ServiceRole string

const (
	RoleCache        ServiceRole = "cache"
	RoleDatabase     ServiceRole = "database"
	RoleStore        ServiceRole = "store"
	RoleUI           ServiceRole = "ui"
	RoleAPI          ServiceRole = "api"
	RoleOrchestrator ServiceRole = "orchestrator"
	RoleIntegration  ServiceRole = "integration"
	RoleDownloader   ServiceRole = "downloader"
)

// ServiceDescriptor is the static, catalog-sourced definition of one
// cooperating service Warden knows how to install and run.
type ServiceDescriptor struct {
	Name           string           `yaml:"name" json:"name"`
	DisplayName    string           `yaml:"displayName" json:"displayName"`
	Category       ServiceCategory  `yaml:"category" json:"category"`
	Role           ServiceRole      `yaml:"role" json:"role"`
	Image          string           `yaml:"image" json:"image"`
	Port           int              `yaml:"port" json:"port,omitempty"`
	HostServiceURL string           `yaml:"hostServiceUrl" json:"hostServiceUrl,omitempty"`
	HealthURL      string           `yaml:"healthUrl" json:"healthUrl,omitempty"`
	Env            []string         `yaml:"env" json:"env,omitempty"`
	EnvConfig      []EnvConfigField `yaml:"envConfig" json:"envConfig,omitempty"`
	Dependencies   []string         `yaml:"dependencies" json:"dependencies,omitempty"`
	Volumes        []VolumeSpec     `yaml:"volumes" json:"volumes,omitempty"`

	// AutoDetectMount marks a service (Raven/downloader) whose container
	// needs a host mount auto-discovered from another running container
	// before it can be started. See lifecycle.DetectExternalMount.
	// MountMatchDest is the destination path to look for on the *external*
	// (already-running) container being probed, e.g. Kavita's fixed
	// "/data" mount; it defaults to "/data" when unset. MountDest is the
	// unrelated, separately-configurable destination the detected host
	// path gets injected at inside Raven's own container spec.
	AutoDetectMount bool   `yaml:"autoDetectMount" json:"autoDetectMount,omitempty"`
	MountImageGlob  string `yaml:"mountImageGlob" json:"mountImageGlob,omitempty"`
	MountMatchDest  string `yaml:"mountMatchDest" json:"mountMatchDest,omitempty"`
	MountDest       string `yaml:"mountDest" json:"mountDest,omitempty"`
}

// DescriptorSummary is the subset of a ServiceDescriptor returned by
// GET /api/services, omitting fields that are only meaningful internally.
type DescriptorSummary struct {
	Name         string           `json:"name"`
	DisplayName  string           `json:"displayName"`
	Category     ServiceCategory  `json:"category"`
	Image        string           `json:"image"`
	Port         int              `json:"port,omitempty"`
	HealthURL    string           `json:"healthUrl,omitempty"`
	EnvConfig    []EnvConfigField `json:"envConfig,omitempty"`
	Dependencies []string         `json:"dependencies,omitempty"`
	Installed    bool             `json:"installed"`
}

// InstallRequest is one entry of a POST /api/services/install body: the
// name of a catalog service plus optional env overrides (override wins
// over the descriptor's own env on merge).
type InstallRequest struct {
	Name string            `json:"name"`
	Env  map[string]string `json:"env,omitempty"`
}

// InstallStatus is the per-service state tracked by the Installation
// Coordinator (C4) for the lifetime of one install run.
type InstallStatus string

const (
	InstallPending    InstallStatus = "pending"
	InstallInstalling InstallStatus = "installing"
	InstallInstalled  InstallStatus = "installed"
	InstallError      InstallStatus = "error"
)

// OverallStatus is the install run's aggregate state.
type OverallStatus string

const (
	OverallIdle       OverallStatus = "idle"
	OverallInstalling OverallStatus = "installing"
	OverallComplete   OverallStatus = "complete"
	OverallFailed     OverallStatus = "failed"
)

// InstallResult is one entry of the response to POST /api/services/install.
type InstallResult struct {
	Name   string        `json:"name"`
	Status InstallStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// InstallItem is one entry of GET /api/services/install/progress's items.
type InstallItem struct {
	Name   string        `json:"name"`
	Status InstallStatus `json:"status"`
	Error  string        `json:"error,omitempty"`
}

// InstallProgress is the response shape of GET /api/services/install/progress.
type InstallProgress struct {
	Status  OverallStatus `json:"status"`
	Percent int           `json:"percent"`
	Items   []InstallItem `json:"items"`
}

// HistoryEventType tags the variant carried by a HistoryEntry.
type HistoryEventType string

const (
	EventStatus   HistoryEventType = "status"
	EventProgress HistoryEventType = "progress"
	EventLog      HistoryEventType = "log"
	EventTest     HistoryEventType = "test"
)

// ServiceState is the value carried by status-typed history entries.
type ServiceState string

const (
	StateQueued    ServiceState = "queued"
	StatePulling   ServiceState = "pulling"
	StateStarting  ServiceState = "starting"
	StateRunning   ServiceState = "running"
	StateReady     ServiceState = "ready"
	StateTested    ServiceState = "tested"
	StateError     ServiceState = "error"
	StateDetecting ServiceState = "detecting"
	StateNotFound  ServiceState = "not-found"
	StateDetected  ServiceState = "detected"
)

// LogStream identifies which container stream a log entry came from.
type LogStream string

const (
	StreamStdout LogStream = "stdout"
	StreamStderr LogStream = "stderr"
)

// HistoryEntry is one record in a service's bounded event log. Only the
// variant-specific fields of the variant selected by Type are populated,
// except that test entries also carry their probe message in Detail.
type HistoryEntry struct {
	Timestamp time.Time         `json:"timestamp"`
	Type      HistoryEventType  `json:"type"`
	Message   string            `json:"message,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`

	// status
	Status ServiceState `json:"status,omitempty"`

	// progress
	LayerID string `json:"layerId,omitempty"`
	Phase   string `json:"phase,omitempty"`
	Current int64  `json:"current,omitempty"`
	Total   int64  `json:"total,omitempty"`
	Detail  string `json:"detail,omitempty"`

	// log
	Stream LogStream `json:"stream,omitempty"`

	// test
	URL        string `json:"url,omitempty"`
	Success    bool   `json:"success,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// ServiceSummary is the derived, always-current view of a service's history.
type ServiceSummary struct {
	Status    ServiceState `json:"status"`
	Percent   int          `json:"percent"`
	Detail    string       `json:"detail,omitempty"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// ServiceHistory is the response shape of the logs endpoints.
type ServiceHistory struct {
	Service string         `json:"service"`
	Entries []HistoryEntry `json:"entries"`
	Summary ServiceSummary `json:"summary"`
}

// WizardStepKey identifies one of the four fixed setup-wizard steps.
type WizardStepKey string

const (
	StepFoundation   WizardStepKey = "foundation"
	StepPortal       WizardStepKey = "portal"
	StepRaven        WizardStepKey = "raven"
	StepVerification WizardStepKey = "verification"
)

// WizardStepOrder is the fixed, canonical progression of wizard steps.
var WizardStepOrder = []WizardStepKey{StepFoundation, StepPortal, StepRaven, StepVerification}

// StepStatus is the lifecycle state of a single wizard step.
type StepStatus string

const (
	StepPending    StepStatus = "pending"
	StepInProgress StepStatus = "in-progress"
	StepComplete   StepStatus = "complete"
	StepError      StepStatus = "error"
	StepSkipped    StepStatus = "skipped"
)

// Actor identifies who or what performed a wizard-affecting action.
type Actor struct {
	ID        string            `json:"id,omitempty"`
	Type      string            `json:"type,omitempty"`
	Label     string            `json:"label,omitempty"`
	AvatarURL string            `json:"avatarUrl,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TimelineEvent is a single audit record attached to a wizard step.
type TimelineEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Status    StepStatus        `json:"status,omitempty"`
	Message   string            `json:"message"`
	Detail    string            `json:"detail,omitempty"`
	Code      string            `json:"code,omitempty"`
	Actor     *Actor            `json:"actor,omitempty"`
	Context   map[string]string `json:"context,omitempty"`
}

// StepState is the full per-step record in a WizardState.
type StepState struct {
	Status      StepStatus      `json:"status"`
	Detail      string          `json:"detail,omitempty"`
	Error       string          `json:"error,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	Actor       *Actor          `json:"actor,omitempty"`
	Retries     int             `json:"retries"`
	Timeline    []TimelineEvent `json:"timeline,omitempty"`
}

// WizardState is the top-level, versioned, persisted wizard document.
type WizardState struct {
	Version   int                          `json:"version"`
	UpdatedAt *time.Time                   `json:"updatedAt"`
	Completed bool                         `json:"completed"`
	Steps     map[WizardStepKey]*StepState `json:"steps"`
}

// StepUpdate is one partial-update instruction for ApplyUpdates. Pointer
// fields distinguish "absent" (untouched) from an explicit zero value.
//
// A plain *string/*time.Time field can't tell an absent JSON key apart from
// an explicit "null" -- both decode to nil. Detail, Error, CompletedAt, and
// UpdatedAt need that distinction, since an explicit null means "clear this
// field" while an absent key means "leave it alone". UnmarshalJSON records
// which of those keys arrived as a literal null in the Clear* flags below;
// callers that build a StepUpdate in Go rather than decoding one (e.g.
// internal callers driving an aggregate) can set the Clear* flags directly.
type StepUpdate struct {
	Step        WizardStepKey   `json:"step"`
	Status      *StepStatus     `json:"status,omitempty"`
	Detail      *string         `json:"detail,omitempty"`
	Error       *string         `json:"error,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
	Actor       *Actor          `json:"actor,omitempty"`
	Retries     *int            `json:"retries,omitempty"`
	Timeline    []TimelineEvent `json:"timeline,omitempty"`

	ClearDetail      bool `json:"-"`
	ClearError       bool `json:"-"`
	ClearCompletedAt bool `json:"-"`
	ClearUpdatedAt   bool `json:"-"`
}

// UnmarshalJSON decodes a StepUpdate normally, then makes a second pass over
// the same body as a raw map to tell an explicit "field": null apart from an
// omitted field -- encoding/json collapses both to a nil pointer on the
// first pass alone.
func (u *StepUpdate) UnmarshalJSON(data []byte) error {
	type stepUpdateAlias StepUpdate
	var alias stepUpdateAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	*u = StepUpdate(alias)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	u.ClearDetail = isExplicitNull(raw, "detail")
	u.ClearError = isExplicitNull(raw, "error")
	u.ClearCompletedAt = isExplicitNull(raw, "completedAt")
	u.ClearUpdatedAt = isExplicitNull(raw, "updatedAt")
	return nil
}

func isExplicitNull(raw map[string]json.RawMessage, key string) bool {
	value, present := raw[key]
	return present && string(value) == "null"
}

// WizardResetPayload is the body of POST /steps/:step/reset.
type WizardResetPayload struct {
	Actor   *Actor            `json:"actor,omitempty"`
	Detail  string            `json:"detail,omitempty"`
	Message string            `json:"message,omitempty"`
	Limit   int               `json:"limit,omitempty"`
	Context map[string]string `json:"context,omitempty"`
}

// WizardBroadcastRequest is the body of POST /steps/:step/broadcast.
type WizardBroadcastRequest struct {
	Message     string            `json:"message"`
	Detail      string            `json:"detail,omitempty"`
	Status      *StepStatus       `json:"status,omitempty"`
	EventStatus StepStatus        `json:"eventStatus,omitempty"`
	Code        string            `json:"code,omitempty"`
	Actor       *Actor            `json:"actor,omitempty"`
	Limit       int               `json:"limit,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
}

// WizardStepMeta describes one step for GET /metadata.
type WizardStepMeta struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Optional     bool     `json:"optional"`
	Icon         string   `json:"icon,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// MountDetection is the result of the Raven auto-discovery subroutine.
type MountDetection struct {
	MountPath string `json:"mountPath"`
	Found     bool   `json:"-"`
}
