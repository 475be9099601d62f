package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/TalentKeeper/internal/certgen"
)

func TestSplitHosts(t *testing.T) {
	assert.Equal(t, []string{"localhost", "127.0.0.1"}, splitHosts(" localhost, ,127.0.0.1 "))
	assert.Nil(t, splitHosts(""))
}

func TestRun_ReusesCA(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, run(dir, []string{"localhost"}))

	first, err := certgen.Load(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
	require.NoError(t, err)

	require.NoError(t, run(dir, []string{"example.test"}))
	second, err := certgen.Load(filepath.Join(dir, "ca.crt"), filepath.Join(dir, "ca.key"))
	require.NoError(t, err)
	assert.Equal(t, first.Cert.Raw, second.Cert.Raw)

	srv, err := certgen.Load(filepath.Join(dir, "server.crt"), filepath.Join(dir, "server.key"))
	require.NoError(t, err)
	assert.Equal(t, []string{"example.test"}, srv.Cert.DNSNames)
	assert.NoError(t, srv.Cert.CheckSignatureFrom(second.Cert))
}

func TestRun_BrokenCA(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ca.crt"), []byte("junk"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ca.key"), []byte("junk"), 0o600))

	assert.ErrorContains(t, run(dir, []string{"localhost"}), "load ca")
}
