package gha

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshift/matrix-test-summary/pkg/summary"
)

func TestPublishOutputs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "github-output", []byte("existing=1\n"), 0644))

	step := StepContext{OutputPath: "github-output"}
	err := step.PublishOutputs(fs, &summary.Result{
		OverflowFile: "out/full-summary.md",
		Alerts:       "Platforms with systematic failures:\n\n- azure: (3 out of 3 tests failed)\n",
		Health:       summary.BandRed,
	})
	require.NoError(t, err)

	content, err := afero.ReadFile(fs, "github-output")
	require.NoError(t, err)
	assert.Equal(t, `existing=1
Overflow=full-summary.md
health=red
alerts<<EOF
Platforms with systematic failures:

- azure: (3 out of 3 tests failed)
EOF
`, string(content))
}

func TestPublishOutputsSkipsUnconfigured(t *testing.T) {
	fs := afero.NewMemMapFs()
	err := StepContext{}.PublishOutputs(fs, &summary.Result{Health: summary.BandGreen})
	require.NoError(t, err)

	empty, err := afero.IsEmpty(fs, "/")
	require.NoError(t, err)
	assert.True(t, empty)
}
