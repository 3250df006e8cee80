package summary

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// Result carries the caller-facing outputs of one invocation so the
// packaging layer can expose them to downstream consumers.
type Result struct {
	// OverflowFile is the side file holding the unabridged report when the
	// primary output had to be abridged; empty otherwise.
	OverflowFile string
	// Alerts is the plain-text alert block, empty when nothing fired.
	Alerts string
	// Health is the worst thermometer band across platforms.
	Health HealthBand
}

// WriteReport writes the rendered report to the output target, enforcing the
// byte limit. An empty outputFile writes to stdout; limit<=0 disables the
// cap. Returns the overflow side-file path when one was written.
func WriteReport(fs afero.Fs, stdout io.Writer, report *Report, outputFile string, limit int) (string, error) {
	full := report.Full()
	if limit <= 0 || len(full) <= limit {
		return "", writeTarget(fs, stdout, outputFile, full)
	}

	sideFile := overflowFileName
	if outputFile != "" {
		sideFile = filepath.Join(filepath.Dir(outputFile), overflowFileName)
	}
	if err := afero.WriteFile(fs, sideFile, []byte(full), 0644); err != nil {
		return "", fmt.Errorf("failed to write full report to %s: %w", sideFile, err)
	}

	note := fmt.Sprintf("This is an abridged test summary, in place of the full test summary which exceeds the size limit. Please look for the full summary in `%s`, archived as an artifact.", filepath.Base(sideFile))
	abridged := report.Abridged(note)
	if len(abridged) > limit {
		logrus.WithFields(logrus.Fields{"limit": limit, "size": len(abridged)}).Warning("Abridged summary still exceeds the limit, truncating")
		abridged = abridged[:limit]
	}
	if err := writeTarget(fs, stdout, outputFile, abridged); err != nil {
		return "", err
	}
	return sideFile, nil
}

func writeTarget(fs afero.Fs, stdout io.Writer, outputFile, content string) error {
	if outputFile == "" {
		_, err := io.WriteString(stdout, content)
		return err
	}
	if err := afero.WriteFile(fs, outputFile, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write report to %s: %w", outputFile, err)
	}
	return nil
}
