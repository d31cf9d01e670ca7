package runtime

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	dockerclient "github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/noona-project/warden/pkg/log"
)

// ContainerSummary is the subset of container state the lifecycle engine
// and catalog need, trimmed from the Docker Engine API's full inspect
// response.
type ContainerSummary struct {
	ID      string
	Names   []string
	Image   string
	State   string
	Status  string
	Mounts  []MountInfo
	Labels  map[string]string
}

// MountInfo describes one bind mount or volume attached to a container.
type MountInfo struct {
	Source      string
	Destination string
}

// RunSpec describes a container the lifecycle engine wants running. It is
// the Warden-domain equivalent of the Docker Engine API's three-part
// container.Config / container.HostConfig / network.NetworkingConfig
// triple, collapsed to what a ServiceDescriptor ever needs.
type RunSpec struct {
	Name        string
	Image       string
	Env         []string
	Ports       map[string]string // containerPort/proto -> hostPort, e.g. "8080/tcp" -> "8080"
	Mounts      []MountInfo
	NetworkName string
	Labels      map[string]string
}

// ProgressEvent is one normalized step of an image pull, derived from the
// Docker daemon's streamed JSON status messages.
type ProgressEvent struct {
	LayerID string
	Phase   string // the daemon's status text as sent, e.g. "Downloading", "Extracting", "Pull complete"
	Current int64
	Total   int64
	Detail  string
}

// ProgressFunc receives pull progress events. Implementations must not
// block significantly — the puller calls it inline on the read loop.
type ProgressFunc func(ProgressEvent)

// Client is the narrow surface the lifecycle engine drives against a
// resolved Docker Engine API endpoint.
type Client interface {
	Ping(ctx context.Context) error
	ListContainers(ctx context.Context, all bool) ([]ContainerSummary, error)
	InspectContainer(ctx context.Context, id string) (ContainerSummary, error)
	ContainerExists(ctx context.Context, name string) (bool, error)
	PullImage(ctx context.Context, ref string, progress ProgressFunc) error
	RunContainer(ctx context.Context, spec RunSpec) (string, error)
	StopContainer(ctx context.Context, id string) error
	RemoveContainer(ctx context.Context, id string) error
	AttachLogs(ctx context.Context, id string) (io.ReadCloser, error)
	EnsureNetwork(ctx context.Context, name string) (string, error)
	ConnectNetwork(ctx context.Context, networkName, containerID string) error
	Close() error
}

// dockerClient implements Client against the real Docker Engine API via
// github.com/docker/docker/client.
type dockerClient struct {
	cli *dockerclient.Client
	tag string // the resolved endpoint, for logging
}

func newDockerClient(cli *dockerclient.Client, endpointTag string) *dockerClient {
	return &dockerClient{cli: cli, tag: endpointTag}
}

func (c *dockerClient) Ping(ctx context.Context) error {
	_, err := c.cli.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping %s: %w", c.tag, err)
	}
	return nil
}

func (c *dockerClient) Close() error {
	return c.cli.Close()
}

func (c *dockerClient) ListContainers(ctx context.Context, all bool) ([]ContainerSummary, error) {
	containers, err := c.cli.ContainerList(ctx, container.ListOptions{All: all})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	summaries := make([]ContainerSummary, 0, len(containers))
	for _, ct := range containers {
		mounts := make([]MountInfo, 0, len(ct.Mounts))
		for _, m := range ct.Mounts {
			mounts = append(mounts, MountInfo{Source: m.Source, Destination: m.Destination})
		}
		summaries = append(summaries, ContainerSummary{
			ID:     ct.ID,
			Names:  ct.Names,
			Image:  ct.Image,
			State:  ct.State,
			Status: ct.Status,
			Mounts: mounts,
			Labels: ct.Labels,
		})
	}
	return summaries, nil
}

func (c *dockerClient) InspectContainer(ctx context.Context, id string) (ContainerSummary, error) {
	info, err := c.cli.ContainerInspect(ctx, id)
	if err != nil {
		return ContainerSummary{}, fmt.Errorf("failed to inspect container %s: %w", id, err)
	}

	mounts := make([]MountInfo, 0, len(info.Mounts))
	for _, m := range info.Mounts {
		mounts = append(mounts, MountInfo{Source: m.Source, Destination: m.Destination})
	}

	state := ""
	status := ""
	if info.State != nil {
		state = info.State.Status
		status = info.State.Status
	}

	return ContainerSummary{
		ID:     info.ID,
		Names:  []string{info.Name},
		Image:  info.Config.Image,
		State:  state,
		Status: status,
		Mounts: mounts,
		Labels: info.Config.Labels,
	}, nil
}

func (c *dockerClient) ContainerExists(ctx context.Context, name string) (bool, error) {
	containers, err := c.ListContainers(ctx, true)
	if err != nil {
		return false, err
	}
	target := "/" + strings.TrimPrefix(name, "/")
	for _, ct := range containers {
		for _, n := range ct.Names {
			if n == target {
				return true, nil
			}
		}
	}
	return false, nil
}

func (c *dockerClient) PullImage(ctx context.Context, ref string, progress ProgressFunc) error {
	reader, err := c.cli.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()

	return streamPullProgress(reader, progress)
}

func (c *dockerClient) RunContainer(ctx context.Context, spec RunSpec) (string, error) {
	exposed, bindings, err := buildPortSpecs(spec.Ports)
	if err != nil {
		return "", fmt.Errorf("failed to parse port spec for %s: %w", spec.Name, err)
	}

	mounts := make([]MountInfo, len(spec.Mounts))
	copy(mounts, spec.Mounts)

	binds := make([]string, 0, len(mounts))
	for _, m := range mounts {
		binds = append(binds, fmt.Sprintf("%s:%s", m.Source, m.Destination))
	}

	config := &container.Config{
		Image:        spec.Image,
		Env:          spec.Env,
		Labels:       spec.Labels,
		ExposedPorts: exposed,
	}

	hostConfig := &container.HostConfig{
		PortBindings: bindings,
		Binds:        binds,
		RestartPolicy: container.RestartPolicy{
			Name: "unless-stopped",
		},
	}

	var netConfig *network.NetworkingConfig
	if spec.NetworkName != "" {
		netConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				spec.NetworkName: {},
			},
		}
	}

	created, err := c.cli.ContainerCreate(ctx, config, hostConfig, netConfig, nil, spec.Name)
	if err != nil {
		return "", fmt.Errorf("failed to create container %s: %w", spec.Name, err)
	}

	if err := c.cli.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container %s: %w", spec.Name, err)
	}

	return created.ID, nil
}

func buildPortSpecs(ports map[string]string) (nat.PortSet, nat.PortMap, error) {
	exposed := make(nat.PortSet)
	bindings := make(nat.PortMap)

	for containerPort, hostPort := range ports {
		port, err := nat.NewPort(portProto(containerPort), portNumber(containerPort))
		if err != nil {
			return nil, nil, err
		}
		exposed[port] = struct{}{}
		bindings[port] = []nat.PortBinding{{HostIP: "0.0.0.0", HostPort: hostPort}}
	}

	return exposed, bindings, nil
}

func portProto(spec string) string {
	if i := strings.Index(spec, "/"); i != -1 {
		return spec[i+1:]
	}
	return "tcp"
}

func portNumber(spec string) string {
	if i := strings.Index(spec, "/"); i != -1 {
		return spec[:i]
	}
	return spec
}

// StopTimeoutSeconds is how long StopContainer waits after SIGTERM before
// the daemon escalates to SIGKILL.
const StopTimeoutSeconds = 10

func (c *dockerClient) StopContainer(ctx context.Context, id string) error {
	timeout := StopTimeoutSeconds
	if err := c.cli.ContainerStop(ctx, id, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container %s: %w", id, err)
	}
	return nil
}

func (c *dockerClient) RemoveContainer(ctx context.Context, id string) error {
	if err := c.cli.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container %s: %w", id, err)
	}
	return nil
}

func (c *dockerClient) AttachLogs(ctx context.Context, id string) (io.ReadCloser, error) {
	reader, err := c.cli.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Tail:       "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to attach logs for %s: %w", id, err)
	}
	return reader, nil
}

func (c *dockerClient) EnsureNetwork(ctx context.Context, name string) (string, error) {
	list, err := c.cli.NetworkList(ctx, network.ListOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to list networks: %w", err)
	}
	for _, n := range list {
		if n.Name == name {
			return n.ID, nil
		}
	}

	created, err := c.cli.NetworkCreate(ctx, name, network.CreateOptions{Driver: "bridge"})
	if err != nil {
		return "", fmt.Errorf("failed to create network %s: %w", name, err)
	}

	log.WithComponent("runtime").Info().Str("network", name).Msg("created network")
	return created.ID, nil
}

func (c *dockerClient) ConnectNetwork(ctx context.Context, networkName, containerID string) error {
	if err := c.cli.NetworkConnect(ctx, networkName, containerID, nil); err != nil {
		return fmt.Errorf("failed to connect %s to network %s: %w", containerID, networkName, err)
	}
	return nil
}
