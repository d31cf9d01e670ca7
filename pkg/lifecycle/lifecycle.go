// Package lifecycle implements the Lifecycle Engine (C3): starting one
// service end to end — idempotent restart check, image pull with
// progress, network attach, container run, log capture, and health
// polling — plus the Raven mount auto-discovery subroutine.
package lifecycle

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/noona-project/warden/pkg/apierr"
	"github.com/noona-project/warden/pkg/health"
	"github.com/noona-project/warden/pkg/history"
	"github.com/noona-project/warden/pkg/log"
	"github.com/noona-project/warden/pkg/runtime"
	"github.com/noona-project/warden/pkg/types"
	"github.com/noona-project/warden/pkg/volume"
)

// DefaultHealthTimeout and DefaultHealthInterval are the Lifecycle
// Engine's default health-poll budget and cadence.
const (
	DefaultHealthTimeout  = 90 * time.Second
	DefaultHealthInterval = 1 * time.Second
)

// NetworkName is the bridge network every Warden-managed container joins.
const NetworkName = "warden-network"

// Engine drives one service through PullImage -> EnsureNetwork ->
// RunContainer -> AttachLogs -> wait-healthy.
type Engine struct {
	runtime runtime.Client
	volumes *volume.LocalDriver
	history *history.Store

	networkEnsured bool
}

// NewEngine creates a Lifecycle Engine over a resolved runtime client.
func NewEngine(client runtime.Client, volumes *volume.LocalDriver, store *history.Store) *Engine {
	return &Engine{runtime: client, volumes: volumes, history: store}
}

// StartService runs the idempotent pull/network/run/log/health sequence
// for one descriptor, merging envOverride (override wins) onto the
// descriptor's own env.
func (e *Engine) StartService(ctx context.Context, descriptor types.ServiceDescriptor, envOverride map[string]string) error {
	logger := log.WithService(descriptor.Name)

	exists, err := e.runtime.ContainerExists(ctx, descriptor.Name)
	if err != nil {
		return &apierr.RuntimeError{Cause: err}
	}
	if exists {
		e.emitStatus(descriptor.Name, types.StateRunning, "container already running")
		return nil
	}

	e.emitStatus(descriptor.Name, types.StateQueued, "")

	if err := e.pullImage(ctx, descriptor); err != nil {
		return &apierr.ServiceStartFailed{Service: descriptor.Name, Stage: apierr.StagePull, Cause: err}
	}

	if err := e.ensureNetwork(ctx); err != nil {
		return &apierr.ServiceStartFailed{Service: descriptor.Name, Stage: apierr.StageRun, Cause: err}
	}

	var detectedMount string
	if descriptor.AutoDetectMount {
		detection, err := e.DetectExternalMount(ctx, descriptor)
		if err != nil {
			return &apierr.ServiceStartFailed{Service: descriptor.Name, Stage: apierr.StageRun, Cause: err}
		}
		if detection.Found {
			detectedMount = detection.MountPath
		}
	}

	if e.volumes != nil {
		if _, err := e.volumes.EnsureAll(descriptor.Volumes); err != nil {
			return &apierr.ServiceStartFailed{Service: descriptor.Name, Stage: apierr.StageRun, Cause: err}
		}
	}

	spec := e.buildRunSpec(descriptor, envOverride)
	if detectedMount != "" {
		spec.Mounts = append(spec.Mounts, runtime.MountInfo{Source: detectedMount, Destination: descriptor.MountDest})
		spec.Env = append(spec.Env,
			"APPDATA="+descriptor.MountDest,
			"KAVITA_DATA_MOUNT="+descriptor.MountDest,
		)
	}

	e.emitStatus(descriptor.Name, types.StateStarting, "")
	containerID, err := e.runtime.RunContainer(ctx, spec)
	if err != nil {
		return &apierr.ServiceStartFailed{Service: descriptor.Name, Stage: apierr.StageRun, Cause: err}
	}

	if err := e.runtime.ConnectNetwork(ctx, NetworkName, containerID); err != nil {
		logger.Warn().Err(err).Msg("failed to connect container to network")
	}

	e.emitStatus(descriptor.Name, types.StateRunning, "")
	go e.streamLogs(descriptor.Name, containerID)

	if descriptor.HealthURL == "" {
		e.emitStatus(descriptor.Name, types.StateReady, "")
		return nil
	}

	if err := e.waitHealthy(ctx, descriptor); err != nil {
		e.emitStatus(descriptor.Name, types.StateError, err.Error())
		return &apierr.ServiceStartFailed{Service: descriptor.Name, Stage: apierr.StageHealth, Cause: err}
	}

	e.emitStatus(descriptor.Name, types.StateReady, "")
	return nil
}

func (e *Engine) pullImage(ctx context.Context, descriptor types.ServiceDescriptor) error {
	e.emitStatus(descriptor.Name, types.StatePulling, "")

	return e.runtime.PullImage(ctx, descriptor.Image, func(event runtime.ProgressEvent) {
		e.history.Append(descriptor.Name, types.HistoryEntry{
			Type:    types.EventProgress,
			LayerID: event.LayerID,
			Phase:   event.Phase,
			Current: event.Current,
			Total:   event.Total,
			Detail:  event.Detail,
		})
	})
}

func (e *Engine) ensureNetwork(ctx context.Context) error {
	if e.networkEnsured {
		return nil
	}
	if _, err := e.runtime.EnsureNetwork(ctx, NetworkName); err != nil {
		return err
	}
	e.networkEnsured = true
	return nil
}

// buildRunSpec merges descriptor env with envOverride (override wins),
// applies volume bindings, ports, and the resolved image reference.
func (e *Engine) buildRunSpec(descriptor types.ServiceDescriptor, envOverride map[string]string) runtime.RunSpec {
	merged := make(map[string]string)
	for _, kv := range descriptor.Env {
		key, value, found := strings.Cut(kv, "=")
		if found {
			merged[key] = value
		}
	}
	for k, v := range envOverride {
		merged[k] = v
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	ports := make(map[string]string)
	if descriptor.Port != 0 {
		portSpec := fmt.Sprintf("%d/tcp", descriptor.Port)
		ports[portSpec] = fmt.Sprintf("%d", descriptor.Port)
	}

	var mounts []runtime.MountInfo
	if e.volumes != nil {
		for _, v := range descriptor.Volumes {
			resolved := e.volumes.Resolve(v)
			mounts = append(mounts, runtime.MountInfo{Source: resolved, Destination: v.Destination})
		}
	}

	return runtime.RunSpec{
		Name:        descriptor.Name,
		Image:       descriptor.Image,
		Env:         env,
		Ports:       ports,
		Mounts:      mounts,
		NetworkName: NetworkName,
		Labels:      map[string]string{"warden.service": descriptor.Name},
	}
}

func (e *Engine) streamLogs(service, containerID string) {
	logger := log.WithService(service)

	reader, err := e.runtime.AttachLogs(context.Background(), containerID)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to attach logs")
		return
	}
	defer reader.Close()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		e.history.Append(service, types.HistoryEntry{
			Type:    types.EventLog,
			Stream:  types.StreamStdout,
			Message: scanner.Text(),
		})
	}
}

func (e *Engine) waitHealthy(ctx context.Context, descriptor types.ServiceDescriptor) error {
	checker := health.NewHTTPChecker(descriptor.HealthURL)
	deadline := time.Now().Add(DefaultHealthTimeout)

	for {
		result := checker.Check(ctx)
		e.history.Append(descriptor.Name, types.HistoryEntry{
			Type:    types.EventTest,
			URL:     descriptor.HealthURL,
			Success: result.Healthy,
			Detail:  result.Message,
		})

		if result.Healthy {
			return nil
		}
		if time.Now().After(deadline) {
			return &apierr.Timeout{Message: fmt.Sprintf("health check for %s timed out after %s", descriptor.Name, DefaultHealthTimeout)}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(DefaultHealthInterval):
		}
	}
}

func (e *Engine) emitStatus(service string, status types.ServiceState, message string) {
	e.history.Append(service, types.HistoryEntry{
		Type:    types.EventStatus,
		Status:  status,
		Message: message,
	})
}
