package summary

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// Flags are the user-facing knobs of the summarizer.
type Flags struct {
	ArtifactDir string
	OutputFile  string
	LimitBytes  int
	LogLevel    string
}

func NewFlags() *Flags {
	return &Flags{LogLevel: "info"}
}

func (f *Flags) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.ArtifactDir, "dir", f.ArtifactDir, "Directory holding the JSON test artifacts.")
	fs.StringVar(&f.OutputFile, "out", f.OutputFile, "Output file for the Markdown summary. Writes to stdout when empty.")
	fs.IntVar(&f.LimitBytes, "limit", f.LimitBytes, "Maximum size of the summary in bytes. 0 disables the cap.")
	fs.StringVar(&f.LogLevel, "log-level", f.LogLevel, "Level at which to log output.")
}

// Validate checks that the user input can produce functional runtime options.
func (f *Flags) Validate() error {
	if f.ArtifactDir == "" {
		return fmt.Errorf("missing --dir: the artifact directory is required")
	}
	if f.LimitBytes < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", f.LimitBytes)
	}
	if _, err := logrus.ParseLevel(f.LogLevel); err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	return nil
}

// ToOptions goes from user input to the runtime values of the pipeline.
func (f *Flags) ToOptions() *Options {
	level, _ := logrus.ParseLevel(f.LogLevel)
	logrus.SetLevel(level)
	return &Options{
		ArtifactDir: f.ArtifactDir,
		OutputFile:  f.OutputFile,
		LimitBytes:  f.LimitBytes,
		FS:          afero.NewOsFs(),
		Stdout:      os.Stdout,
	}
}

// Options are the resolved runtime options of one invocation. FS and Stdout
// are swappable so tests run against an in-memory filesystem.
type Options struct {
	ArtifactDir string
	OutputFile  string
	LimitBytes  int

	FS     afero.Fs
	Stdout io.Writer
}

// Run executes the whole pipeline: load, aggregate, render, write. Test
// failures in the artifacts are conveyed by the report, not the error; only
// pipeline-level problems (unreadable directory, unwritable output) error.
func (o *Options) Run() (*Result, error) {
	records, err := LoadArtifacts(o.FS, o.ArtifactDir)
	if err != nil {
		return nil, err
	}
	logrus.WithField("records", len(records)).Info("Loaded test artifacts")

	aggregated := Aggregate(records)
	report := Render(aggregated)
	overflowFile, err := WriteReport(o.FS, o.Stdout, report, o.OutputFile, o.LimitBytes)
	if err != nil {
		return nil, err
	}

	return &Result{
		OverflowFile: overflowFile,
		Alerts:       DetectAlerts(aggregated).PlainText(),
		Health:       OverallHealth(Thermometer(aggregated)),
	}, nil
}
