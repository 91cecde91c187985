package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitAzsnap_Precedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
run:
  concurrency: 4
az:
  max_retries: 2
  binary: /usr/bin/az
`), 0644))

	t.Setenv("AZSNAPCONFIG", path)
	t.Setenv("AZSNAP_AZ_MAX_RETRIES", "7")
	flagConcurrency = 6
	t.Cleanup(func() {
		flagConcurrency = 0
		configPath = ""
	})

	require.NoError(t, initAzsnap(rootCmd, nil))
	require.Equal(t, path, configPath)
	require.Equal(t, 6, config.Run.Concurrency)
	require.Equal(t, 7, config.Az.MaxRetries)
	require.Equal(t, "/usr/bin/az", config.Az.Binary)
}

func TestInitAzsnap_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "azsnap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run:\n  parallelism: 4\n"), 0644))
	t.Setenv("AZSNAPCONFIG", path)
	t.Cleanup(func() { configPath = "" })

	require.Error(t, initAzsnap(rootCmd, nil))
}

func TestResolve(t *testing.T) {
	got, err := resolve("given.txt", "Enter the filename", "default.txt")
	require.NoError(t, err)
	require.Equal(t, "given.txt", got)
}
