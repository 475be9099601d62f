package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_FileOutput(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "server.log")

	l := New()
	require.NoError(t, l.Init("Info", file))
	l.Log.Debug("hidden")
	l.Log.Info("catalog loaded")
	_ = l.Log.Sync()

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "catalog loaded")
	assert.NotContains(t, string(data), "hidden")
}

func TestInit_BadLevel(t *testing.T) {
	l := New()
	assert.Error(t, l.Init("loud", ""))
	assert.NotNil(t, l.Log)
}
