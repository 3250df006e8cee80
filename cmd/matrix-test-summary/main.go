package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openshift/matrix-test-summary/pkg/gha"
	"github.com/openshift/matrix-test-summary/pkg/summary"
)

func main() {
	if err := newCommand(gha.FromEnv()).Execute(); err != nil {
		logrus.WithError(err).Fatal("matrix-test-summary failed")
	}
}

func newCommand(step gha.StepContext) *cobra.Command {
	f := summary.NewFlags()
	cmd := &cobra.Command{
		Use:          "matrix-test-summary",
		Short:        "Summarize the JSON test artifacts of all CI matrix branches into one Markdown report",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Inside a GitHub Actions job the step summary file is
			// the natural default output target.
			if f.OutputFile == "" {
				f.OutputFile = step.StepSummaryPath
			}
			if err := f.Validate(); err != nil {
				return err
			}
			o := f.ToOptions()
			result, err := o.Run()
			if err != nil {
				return err
			}
			return step.PublishOutputs(o.FS, result)
		},
	}
	f.BindFlags(cmd.Flags())
	return cmd
}
