package volume

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/noona-project/warden/pkg/types"
)

// DefaultVolumesPath is the base directory for bind-mount sources that a
// service descriptor declares as a relative path rather than an absolute
// host path.
const DefaultVolumesPath = "/var/lib/warden/volumes"

// LocalDriver ensures the host-side directories a service's bind mounts
// point at exist before the lifecycle engine starts that service's
// container. Docker refuses to create a host directory during
// ContainerCreate for a bind source that doesn't exist yet, so this is a
// precondition, not an optimization.
type LocalDriver struct {
	basePath string
}

// NewLocalDriver creates a local volume driver rooted at basePath
// (DefaultVolumesPath if empty), creating the directory if needed.
func NewLocalDriver(basePath string) (*LocalDriver, error) {
	if basePath == "" {
		basePath = DefaultVolumesPath
	}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create volumes directory: %w", err)
	}

	return &LocalDriver{basePath: basePath}, nil
}

// Resolve returns the absolute host path for a VolumeSpec's source,
// treating a relative Source as rooted under the driver's base path and
// an absolute Source (the common case — a path under the host's data
// directory) as-is.
func (d *LocalDriver) Resolve(spec types.VolumeSpec) string {
	if filepath.IsAbs(spec.Source) {
		return spec.Source
	}
	return filepath.Join(d.basePath, spec.Source)
}

// Ensure creates the resolved host directory for spec if it does not
// already exist, and returns the resolved path.
func (d *LocalDriver) Ensure(spec types.VolumeSpec) (string, error) {
	path := d.Resolve(spec)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("failed to create volume directory %s: %w", path, err)
	}
	return path, nil
}

// EnsureAll resolves and creates the host directories for every volume a
// service descriptor declares, returning them in the same order.
func (d *LocalDriver) EnsureAll(specs []types.VolumeSpec) ([]string, error) {
	paths := make([]string, 0, len(specs))
	for _, spec := range specs {
		path, err := d.Ensure(spec)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
