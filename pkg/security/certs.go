package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
)

// Standard Docker remote-API client certificate file names, as written by
// `docker-machine`/`dockerd --tlsverify` tooling under DOCKER_CERT_PATH.
const (
	caFile   = "ca.pem"
	certFile = "cert.pem"
	keyFile  = "key.pem"
)

// LoadDockerTLSConfig builds a *tls.Config for a tcp://-addressed Docker
// Engine API endpoint from the client certificate directory pointed to by
// DOCKER_CERT_PATH. insecureSkipVerify turns off verification of the
// server's certificate chain and host name; pkg/runtime sets it when
// DOCKER_TLS_VERIFY is unset or empty.
func LoadDockerTLSConfig(certDir string, insecureSkipVerify bool) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(
		filepath.Join(certDir, certFile),
		filepath.Join(certDir, keyFile),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caPEM, err := os.ReadFile(filepath.Join(certDir, caFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("failed to parse CA certificate in %s", certDir)
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		RootCAs:            pool,
		InsecureSkipVerify: insecureSkipVerify,
	}, nil
}

// CertsExist reports whether a complete client certificate bundle is
// present in certDir.
func CertsExist(certDir string) bool {
	for _, name := range []string{caFile, certFile, keyFile} {
		if _, err := os.Stat(filepath.Join(certDir, name)); err != nil {
			return false
		}
	}
	return true
}
