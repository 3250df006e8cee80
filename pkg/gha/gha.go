// Package gha bridges GitHub Actions conventions (job summary file, step
// output file) to the summarizer's plain configuration, so the core never
// touches the process environment.
package gha

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/openshift/matrix-test-summary/pkg/summary"
)

// StepContext is the slice of the Actions environment the summarizer cares
// about.
type StepContext struct {
	// StepSummaryPath is where GitHub renders the job summary from.
	StepSummaryPath string
	// OutputPath receives machine-readable step outputs.
	OutputPath string
}

func FromEnv() StepContext {
	return StepContext{
		StepSummaryPath: os.Getenv("GITHUB_STEP_SUMMARY"),
		OutputPath:      os.Getenv("GITHUB_OUTPUT"),
	}
}

// PublishOutputs appends the step outputs for downstream jobs: the overflow
// artifact name, the overall health band, and the alert block. No-op outside
// Actions.
func (c StepContext) PublishOutputs(fs afero.Fs, result *summary.Result) error {
	if c.OutputPath == "" {
		return nil
	}
	var b strings.Builder
	if result.OverflowFile != "" {
		fmt.Fprintf(&b, "Overflow=%s\n", filepath.Base(result.OverflowFile))
	}
	fmt.Fprintf(&b, "health=%s\n", result.Health)
	if result.Alerts != "" {
		fmt.Fprintf(&b, "alerts<<EOF\n%s\nEOF\n", strings.TrimRight(result.Alerts, "\n"))
	}

	out, err := fs.OpenFile(c.OutputPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open GitHub output file %s: %w", c.OutputPath, err)
	}
	defer out.Close()
	if _, err := out.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to append to GitHub output file %s: %w", c.OutputPath, err)
	}
	return nil
}
