package runtime

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	dockerclient "github.com/docker/docker/client"

	"github.com/noona-project/warden/pkg/log"
	"github.com/noona-project/warden/pkg/security"
)

// ResolveOptions customizes endpoint resolution. Endpoint, when set, is
// tried before any of the platform defaults.
type ResolveOptions struct {
	Endpoint    string
	CertDir     string
	PingTimeout time.Duration
}

const defaultPingTimeout = 3 * time.Second

// RuntimeUnavailable aggregates every candidate endpoint's failure when
// Resolve cannot find a reachable Docker Engine API.
type RuntimeUnavailable struct {
	Attempts map[string]error
}

func (e *RuntimeUnavailable) Error() string {
	var b strings.Builder
	b.WriteString("no docker endpoint reachable:")
	for endpoint, err := range e.Attempts {
		fmt.Fprintf(&b, " [%s: %v]", endpoint, err)
	}
	return b.String()
}

// candidateEndpoints returns, in priority order, the endpoints Resolve
// should try: the caller-provided endpoint, the platform default local
// socket, DOCKER_HOST, then platform-specific alternatives.
func candidateEndpoints(opts ResolveOptions) []string {
	seen := make(map[string]bool)
	var ordered []string

	add := func(endpoint string) {
		if endpoint == "" || seen[endpoint] {
			return
		}
		seen[endpoint] = true
		ordered = append(ordered, endpoint)
	}

	add(opts.Endpoint)

	if runtime.GOOS == "windows" {
		add("npipe:////./pipe/docker_engine")
	} else {
		add("unix:///var/run/docker.sock")
	}

	add(os.Getenv("DOCKER_HOST"))

	if runtime.GOOS != "windows" {
		add("unix:///run/docker.sock")
	}

	return ordered
}

// Resolve tries each candidate endpoint in priority order and returns a
// Client wrapping the first one that answers Ping. A tcp:// endpoint is
// dialed with TLS when opts.CertDir (or DOCKER_CERT_PATH, if CertDir is
// empty) holds a complete ca.pem/cert.pem/key.pem bundle; the server's
// certificate is verified only when DOCKER_TLS_VERIFY is set to a
// non-empty value.
func Resolve(ctx context.Context, opts ResolveOptions) (Client, error) {
	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = defaultPingTimeout
	}

	attempts := make(map[string]error)
	logger := log.WithComponent("runtime")

	for _, endpoint := range candidateEndpoints(opts) {
		cli, err := dialEndpoint(endpoint, opts.CertDir)
		if err != nil {
			attempts[endpoint] = err
			continue
		}

		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		_, err = cli.Ping(pingCtx)
		cancel()
		if err != nil {
			attempts[endpoint] = err
			_ = cli.Close()
			continue
		}

		logger.Info().Str("endpoint", endpoint).Msg("resolved docker runtime endpoint")
		return newDockerClient(cli, endpoint), nil
	}

	return nil, &RuntimeUnavailable{Attempts: attempts}
}

func dialEndpoint(endpoint, certDir string) (*dockerclient.Client, error) {
	opts := []dockerclient.Opt{
		dockerclient.WithHost(endpoint),
		dockerclient.WithAPIVersionNegotiation(),
	}

	if certDir == "" {
		certDir = os.Getenv("DOCKER_CERT_PATH")
	}
	if strings.HasPrefix(endpoint, "tcp://") && certDir != "" && security.CertsExist(certDir) {
		insecureSkipVerify := os.Getenv("DOCKER_TLS_VERIFY") == ""
		tlsConfig, err := security.LoadDockerTLSConfig(certDir, insecureSkipVerify)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config for %s: %w", endpoint, err)
		}
		opts = append(opts, dockerclient.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		}))
	}

	return dockerclient.NewClientWithOpts(opts...)
}
