package lifecycle

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/noona-project/warden/pkg/types"
)

// defaultMountMatchDest is the destination every supported external
// container (Kavita) exposes its data mount at, used when a descriptor
// doesn't override MountMatchDest.
const defaultMountMatchDest = "/data"

// DetectExternalMount implements the Raven auto-discovery subroutine:
// find a running container whose image matches descriptor's
// MountImageGlob, inspect it, and lift the host-side path of its
// MountMatchDest-matching mount so Raven's own container can bind to the
// same data (at the separately-configured MountDest).
func (e *Engine) DetectExternalMount(ctx context.Context, descriptor types.ServiceDescriptor) (types.MountDetection, error) {
	if !descriptor.AutoDetectMount {
		return types.MountDetection{}, nil
	}

	matchDest := descriptor.MountMatchDest
	if matchDest == "" {
		matchDest = defaultMountMatchDest
	}

	e.emitStatus(descriptor.Name, types.StateDetecting, "scanning running containers for a matching mount")

	containers, err := e.runtime.ListContainers(ctx, false)
	if err != nil {
		return types.MountDetection{}, err
	}

	for _, summary := range containers {
		matched, err := filepath.Match(descriptor.MountImageGlob, summary.Image)
		if err == nil && !matched {
			// A glob's '*' never crosses '/', so also try the last path
			// segment of the image reference (e.g. "kavita:latest").
			matched, err = filepath.Match(descriptor.MountImageGlob, summary.Image[strings.LastIndex(summary.Image, "/")+1:])
		}
		if err != nil || !matched {
			continue
		}

		full, err := e.runtime.InspectContainer(ctx, summary.ID)
		if err != nil {
			continue
		}

		for _, mount := range full.Mounts {
			if !strings.HasPrefix(mount.Destination, matchDest) {
				continue
			}
			e.emitStatus(descriptor.Name, types.StateDetected, "found external mount at "+mount.Source)
			return types.MountDetection{MountPath: mount.Source, Found: true}, nil
		}
	}

	e.emitStatus(descriptor.Name, types.StateNotFound, "no running container exposed a matching mount")
	return types.MountDetection{Found: false}, nil
}
