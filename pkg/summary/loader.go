package summary

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// LoadArtifacts reads every JSON artifact in dir and returns the normalized
// records in directory order. A file that does not parse, or whose top-level
// shape is not a test artifact, is skipped with a warning; only an unreadable
// directory is fatal.
func LoadArtifacts(fs afero.Fs, dir string) ([]TestResult, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact directory %s: %w", dir, err)
	}

	var records []TestResult
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := afero.ReadFile(fs, path)
		if err != nil {
			logrus.WithError(err).WithField("file", path).Warning("Skipping unreadable artifact")
			continue
		}
		record, err := parseArtifact(raw)
		if err != nil {
			logrus.WithError(err).WithField("file", path).Warning("Skipping non-artifact file")
			continue
		}
		records = append(records, *record)
	}
	return records, nil
}

// parseArtifact decodes a single artifact. The key-presence check runs on the
// raw object first so that arbitrary JSON files sharing the directory (plans,
// metadata, ...) are rejected before the typed decode.
func parseArtifact(raw []byte) (*TestResult, error) {
	var shape map[string]json.RawMessage
	if err := json.Unmarshal(raw, &shape); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	for _, key := range requiredArtifactKeys {
		if _, ok := shape[key]; !ok {
			return nil, fmt.Errorf("missing required key %q", key)
		}
	}
	record := &TestResult{}
	if err := json.Unmarshal(raw, record); err != nil {
		return nil, fmt.Errorf("malformed artifact: %w", err)
	}
	record.normalize()
	return record, nil
}
