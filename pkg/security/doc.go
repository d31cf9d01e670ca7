/*
Package security loads TLS client credentials for connecting to a remote
Docker Engine API endpoint (DOCKER_HOST=tcp://...) protected by the
standard DOCKER_TLS_VERIFY / DOCKER_CERT_PATH convention: a ca.pem,
cert.pem, and key.pem file in one directory.

LoadDockerTLSConfig is consulted by pkg/runtime's resolver only when the
resolved endpoint is a tcp:// URL and a cert directory is configured;
unix:// and npipe:// endpoints never need it.
*/
package security
