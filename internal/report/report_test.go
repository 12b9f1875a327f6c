package report

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/cluster"
	"github.com/careatlas/provision-cli/internal/evaluate"
)

func TestWriteFeatureCSV(t *testing.T) {
	vecs := []authority.FeatureVector{
		{Code: "E06000001", Name: "Hartlepool", Values: [6]float64{0.1, -0.2, 0.3, -0.4, 0.5, -0.6}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFeatureCSV(&buf, vecs))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "code", records[0][0])
	assert.Equal(t, authority.FeatureNames[0], records[0][2])
	assert.Equal(t, "E06000001", records[1][0])
	assert.Equal(t, "0.100000", records[1][2])
}

func TestWriteDistortionCSVAndTable(t *testing.T) {
	seq := []cluster.Distortion{
		{K: 1, Inertia: 900}, {K: 2, Inertia: 400}, {K: 3, Inertia: 150},
		{K: 4, Inertia: 120}, {K: 5, Inertia: 110},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDistortionCSV(&buf, seq))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 6)

	buf.Reset()
	require.NoError(t, WriteDistortionTable(&buf, seq))
	out := buf.String()
	assert.Contains(t, out, "DISTORTION")
	assert.Contains(t, out, "max second difference")
}

func TestWriteAssignmentTable(t *testing.T) {
	assignments := []authority.Assignment{
		{Code: "E06000001", Name: "Hartlepool", Label: 2, Distance: 0.8412},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAssignmentTable(&buf, assignments))
	assert.Contains(t, buf.String(), "Hartlepool")
	assert.Contains(t, buf.String(), "0.8412")
}

func TestWriteANOVATable_Stars(t *testing.T) {
	results := []evaluate.ANOVAResult{
		{Feature: "under4_pct", FStatistic: 48.2, PValue: 0.0001, DFBetween: 3, DFWithin: 147},
		{Feature: "over65_pct", FStatistic: 1.1, PValue: 0.35, DFBetween: 3, DFWithin: 147},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteANOVATable(&buf, results))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "***")
	assert.NotContains(t, lines[2], "*")
}

func TestWriteProfileTable(t *testing.T) {
	profiles := []evaluate.ClusterProfile{
		{
			Label: 0,
			Size:  3,
			Features: []evaluate.FeatureSummary{
				{Feature: "under4_pct", Count: 3, Mean: 1.2, StdDev: 0.3, Min: 0.9, Q1: 1.0, Median: 1.2, Q3: 1.35, Max: 1.5},
			},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteProfileTable(&buf, profiles))
	assert.Contains(t, buf.String(), "cluster 0")
	assert.Contains(t, buf.String(), "under4_pct")
}
