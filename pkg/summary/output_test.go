package summary

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *Report {
	return &Report{Sections: []Section{
		{Title: "Thermometer", Required: true, Body: "## Thermometer\n\nall green\n"},
		{Title: "Overview", Required: true, Body: "## Overview\n\nnothing failed\n"},
		{Title: "Slowest tests", Required: false, Body: "## Slowest tests\n\n" + strings.Repeat("a very slow test\n", 100)},
	}}
}

func TestWriteReportWithoutLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	report := testReport()

	overflow, err := WriteReport(fs, nil, report, "out/summary.md", 0)
	require.NoError(t, err)
	assert.Empty(t, overflow, "no limit means no overflow handling")

	written, err := afero.ReadFile(fs, "out/summary.md")
	require.NoError(t, err)
	assert.Equal(t, report.Full(), string(written))

	exists, err := afero.Exists(fs, "out/full-summary.md")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestWriteReportOverflow(t *testing.T) {
	fs := afero.NewMemMapFs()
	report := testReport()
	limit := len(report.Full()) - 1

	overflow, err := WriteReport(fs, nil, report, "out/summary.md", limit)
	require.NoError(t, err)
	assert.Equal(t, "out/full-summary.md", overflow)

	full, err := afero.ReadFile(fs, "out/full-summary.md")
	require.NoError(t, err)
	assert.Equal(t, report.Full(), string(full))

	abridged, err := afero.ReadFile(fs, "out/summary.md")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(abridged), limit)
	assert.Contains(t, string(abridged), "full-summary.md")
	assert.Contains(t, string(abridged), "## Thermometer")
	assert.NotContains(t, string(abridged), "a very slow test")
}

func TestWriteReportFitsWithinLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	report := testReport()

	overflow, err := WriteReport(fs, nil, report, "out/summary.md", len(report.Full()))
	require.NoError(t, err)
	assert.Empty(t, overflow)
}

func TestWriteReportToStdout(t *testing.T) {
	fs := afero.NewMemMapFs()
	stdout := &bytes.Buffer{}
	report := testReport()

	overflow, err := WriteReport(fs, stdout, report, "", 0)
	require.NoError(t, err)
	assert.Empty(t, overflow)
	assert.Equal(t, report.Full(), stdout.String())
}

func TestWriteReportTruncatesStubbornOverflow(t *testing.T) {
	fs := afero.NewMemMapFs()
	report := testReport()
	// smaller than even the required sections
	limit := 30

	overflow, err := WriteReport(fs, nil, report, "out/summary.md", limit)
	require.NoError(t, err)
	assert.Equal(t, "out/full-summary.md", overflow)

	abridged, err := afero.ReadFile(fs, "out/summary.md")
	require.NoError(t, err)
	assert.Len(t, abridged, limit)
}

func TestOptionsRunEndToEnd(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "artifacts/one.json", []byte(testArtifact("first test", "passed", "local", "1.31")), 0644))
	require.NoError(t, afero.WriteFile(fs, "artifacts/two.json", []byte(testArtifact("second test", "passed", "local", "1.31")), 0644))
	require.NoError(t, afero.WriteFile(fs, "artifacts/three.json", []byte(testArtifact("third test", "failed", "local", "1.31")), 0644))

	o := &Options{ArtifactDir: "artifacts", OutputFile: "summary.md", FS: fs, Stdout: &bytes.Buffer{}}
	result, err := o.Run()
	require.NoError(t, err)

	assert.Empty(t, result.OverflowFile)
	assert.Empty(t, result.Alerts)
	assert.Equal(t, BandRed, result.Health)

	written, err := afero.ReadFile(fs, "summary.md")
	require.NoError(t, err)
	assert.Contains(t, string(written), "33.3%")
	assert.Contains(t, string(written), "test combinations")
}

func TestFlagsValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Flags)
		expectErr bool
	}{
		{
			name:   "valid",
			mutate: func(f *Flags) { f.ArtifactDir = "artifacts" },
		},
		{
			name:      "missing dir",
			mutate:    func(f *Flags) {},
			expectErr: true,
		},
		{
			name:      "negative limit",
			mutate:    func(f *Flags) { f.ArtifactDir = "artifacts"; f.LimitBytes = -1 },
			expectErr: true,
		},
		{
			name:      "bogus log level",
			mutate:    func(f *Flags) { f.ArtifactDir = "artifacts"; f.LogLevel = "shouting" },
			expectErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := NewFlags()
			tc.mutate(f)
			err := f.Validate()
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
