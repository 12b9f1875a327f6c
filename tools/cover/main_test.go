package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileBody = `mode: atomic
github.com/careatlas/provision-cli/internal/cluster/kmeans.go:10.2,12.3 2 1
github.com/careatlas/provision-cli/internal/cluster/kmeans.go:14.2,16.3 2 0
`

func TestRun_TableBadgeAndThreshold(t *testing.T) {
	dir := t.TempDir()
	profile := filepath.Join(dir, "coverage.out")
	require.NoError(t, os.WriteFile(profile, []byte(profileBody), 0o644))

	var out bytes.Buffer
	badge := filepath.Join(dir, "badge.json")
	require.NoError(t, run(&out, profile, "github.com/careatlas/provision-cli", 40, badge))
	assert.Contains(t, out.String(), "| `internal/cluster` | 4 | 2 | 50.0% |")

	data, err := os.ReadFile(badge)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"label":"coverage"`)

	// 50% total is below a 90% gate.
	err = run(&out, profile, "github.com/careatlas/provision-cli", 90, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below threshold")
}

func TestRun_MissingProfile(t *testing.T) {
	var out bytes.Buffer
	require.Error(t, run(&out, filepath.Join(t.TempDir(), "nope.out"), "", 0, ""))
}
