package runtime

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateEndpoints_PrefersCallerProvided(t *testing.T) {
	os.Unsetenv("DOCKER_HOST")

	endpoints := candidateEndpoints(ResolveOptions{Endpoint: "tcp://10.0.0.5:2376"})

	require.NotEmpty(t, endpoints)
	assert.Equal(t, "tcp://10.0.0.5:2376", endpoints[0])
}

func TestCandidateEndpoints_IncludesDockerHost(t *testing.T) {
	t.Setenv("DOCKER_HOST", "tcp://remote:2375")

	endpoints := candidateEndpoints(ResolveOptions{})

	assert.Contains(t, endpoints, "tcp://remote:2375")
}

func TestCandidateEndpoints_DeduplicatesAndIncludesLocalSocket(t *testing.T) {
	t.Setenv("DOCKER_HOST", "unix:///var/run/docker.sock")

	endpoints := candidateEndpoints(ResolveOptions{})

	count := 0
	for _, e := range endpoints {
		if e == "unix:///var/run/docker.sock" {
			count++
		}
	}
	assert.Equal(t, 1, count, "duplicate endpoints must be collapsed")
}

func TestRuntimeUnavailable_Error(t *testing.T) {
	err := &RuntimeUnavailable{
		Attempts: map[string]error{
			"unix:///var/run/docker.sock": errors.New("connection refused"),
		},
	}

	assert.Contains(t, err.Error(), "no docker endpoint reachable")
	assert.Contains(t, err.Error(), "unix:///var/run/docker.sock")
	assert.Contains(t, err.Error(), "connection refused")
}
