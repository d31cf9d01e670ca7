// Package config reads the environment variables the control plane needs
// at startup into one explicit struct, the way pkg/log.Config is a small
// explicit struct rather than a global. There is no viper layer and no
// config file; every field here is either read once at process start or
// defaulted.
package config

import (
	"os"
	"strconv"
	"strings"
)

// DebugMode selects how verbose the process runs.
type DebugMode string

const (
	DebugOff     DebugMode = ""
	DebugMinimal DebugMode = "minimal"
	DebugSuper   DebugMode = "super"
)

const DefaultAPIPort = 4001

// Config is the process-wide environment the control plane reads once at
// startup.
type Config struct {
	Debug          DebugMode
	APIPort        int
	HostServiceURL string
	DockerHost     string
	VaultTokens    map[string]string // "<SERVICE>_VAULT_TOKEN" -> value, keyed by service name
}

// Load reads Config from the process environment.
func Load() Config {
	cfg := Config{
		Debug:          DebugMode(os.Getenv("DEBUG")),
		APIPort:        DefaultAPIPort,
		HostServiceURL: os.Getenv("HOST_SERVICE_URL"),
		DockerHost:     os.Getenv("DOCKER_HOST"),
		VaultTokens:    make(map[string]string),
	}

	if raw := os.Getenv("WARDEN_API_PORT"); raw != "" {
		if port, err := strconv.Atoi(raw); err == nil && port > 0 {
			cfg.APIPort = port
		}
	}

	for _, env := range os.Environ() {
		key, value, found := strings.Cut(env, "=")
		if !found || !strings.HasSuffix(key, "_VAULT_TOKEN") {
			continue
		}
		service := strings.ToLower(strings.TrimSuffix(key, "_VAULT_TOKEN"))
		cfg.VaultTokens[service] = value
	}

	return cfg
}

// VaultTokenFor returns the vault token configured for a service, if any,
// and whether one was set.
func (c Config) VaultTokenFor(service string) (string, bool) {
	token, ok := c.VaultTokens[strings.ToLower(service)]
	return token, ok
}
