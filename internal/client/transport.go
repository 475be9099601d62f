// Package client implements the command-line client of the talent catalog.
package client

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/atinyakov/TalentKeeper/internal/httpclient"
)

// RequestTimeout bounds every call the client makes.
const RequestTimeout = 10 * time.Second

// NewHTTPClient creates the outbound client. When caFile is set, the
// server certificate must chain to the CA in it.
func NewHTTPClient(caFile string) (*httpclient.Client, error) {
	cfg := &httpclient.Config{DefaultTimeout: RequestTimeout, UserAgent: "talentkeeper-cli"}
	if caFile == "" {
		return httpclient.New(cfg), nil
	}

	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}
	caPool := x509.NewCertPool()
	if !caPool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA cert")
	}
	cfg.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			RootCAs:    caPool,
			MinVersion: tls.VersionTLS12,
		},
	}
	return httpclient.New(cfg), nil
}
