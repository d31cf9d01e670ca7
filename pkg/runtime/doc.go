/*
Package runtime resolves and wraps a connection to a Docker Engine API
endpoint. Resolve tries a caller-provided endpoint, then the platform's
default local socket, then DOCKER_HOST, then platform-specific
alternatives, returning the first endpoint that responds to Ping; it
aggregates every candidate's failure into a single RuntimeUnavailable
error when none succeed.

Client wraps github.com/docker/docker/client with the narrow surface the
lifecycle engine needs: listing, inspecting, creating, starting, stopping,
and removing containers; pulling images with streamed progress; creating
and attaching networks; and reading logs. It does not attempt to expose
the full Docker Engine API — only the operations the lifecycle algorithm
in this repository actually drives.
*/
package runtime
