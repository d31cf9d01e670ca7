package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPortProtoAndNumber(t *testing.T) {
	proto := portProto("8080/tcp")
	number := portNumber("8080/tcp")
	assert.Equal(t, "tcp", proto)
	assert.Equal(t, "8080", number)
}

func TestPortProtoAndNumber_DefaultsToTCP(t *testing.T) {
	assert.Equal(t, "tcp", portProto("4222"))
	assert.Equal(t, "4222", portNumber("4222"))
}

func TestBuildPortSpecs(t *testing.T) {
	exposed, bindings, err := buildPortSpecs(map[string]string{
		"4222/tcp": "4222",
	})
	require.NoError(t, err)
	require.Len(t, exposed, 1)
	require.Len(t, bindings, 1)

	for port, binds := range bindings {
		assert.Equal(t, "4222/tcp", port.Port()+"/"+port.Proto())
		require.Len(t, binds, 1)
		assert.Equal(t, "4222", binds[0].HostPort)
	}
}

func TestBuildPortSpecs_InvalidPort(t *testing.T) {
	_, _, err := buildPortSpecs(map[string]string{
		"not-a-port": "4222",
	})
	assert.Error(t, err)
}
