/*
Package lifecycle implements the Lifecycle Engine (C3), the component the
Installation Coordinator (C4) calls once per service in dependency order.

StartService is idempotent: a container already named after the service is
left running untouched. Otherwise it pulls the image (mirroring progress
into the service's history), lazily creates the shared bridge network on
first use, builds a runtime.RunSpec from the descriptor merged with any
caller-supplied env overrides, runs the container, attaches a background
log reader, and — if the descriptor declares a health URL — polls it for
up to DefaultHealthTimeout before declaring the service ready.

DetectExternalMount is the Raven-specific subroutine: before Raven's own
container is built, it lists running containers for one whose image
matches the descriptor's MountImageGlob, inspects it, and lifts the host
path of its matching mount so Raven can bind to the same data at its
MountDest and receive APPDATA/KAVITA_DATA_MOUNT pointing at that
container-side path.
*/
package lifecycle
