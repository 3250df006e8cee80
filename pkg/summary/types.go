package summary

import (
	"encoding/json"
	"fmt"
)

// TestState is the state a matrix branch reported for one test execution.
// The passing states are well-defined; newer suite runners added extra
// failure kinds (interrupted, aborted, ...), so anything that is not a
// passing state counts as failed.
type TestState string

const (
	StatePassed       TestState = "passed"
	StateSkipped      TestState = "skipped"
	StateIgnoreFailed TestState = "ignoreFailed"
	StateFailed       TestState = "failed"
)

// Unknown is the sentinel substituted for absent or unparseable optional
// fields. Records carrying it still contribute to totals, they just land in
// an "unknown" bucket for the affected dimension.
const Unknown = "unknown"

// zeroTimestamp marks a time the suite runner never filled in.
const zeroTimestamp = "0001-01-01T00:00:00Z"

// Tunable report constants. These are operational knobs, not invariants;
// tests exercise the boundaries explicitly.
const (
	// minAlertFailures is the minimum number of failures before a fully
	// failed bucket is considered systematic. Requiring more than one
	// avoids flooding the alert channel with single-run blips.
	minAlertFailures = 2
	// maxAlertsPerMetric caps how many alerts a single metric dimension
	// may surface, to keep chat-oriented consumers concise.
	maxAlertsPerMetric = 2
	// slowestTestLimit caps the slowest-tests table.
	slowestTestLimit = 20

	// Thermometer bands, in percent failed.
	yellowThresholdPercent = 5.0
	redThresholdPercent    = 20.0

	// overflowFileName is where the unabridged report goes when the
	// primary output has a byte budget and the report exceeds it.
	overflowFileName = "full-summary.md"
)

// TestResult is the normalized form of one JSON artifact: one test execution
// in one matrix branch.
type TestResult struct {
	Name            string      `json:"name"`
	State           TestState   `json:"state"`
	StartTime       string      `json:"start_time"`
	EndTime         string      `json:"end_time"`
	Error           string      `json:"error"`
	ErrorFile       string      `json:"error_file"`
	ErrorLine       json.Number `json:"error_line"`
	Platform        string      `json:"platform"`
	PostgresKind    string      `json:"postgres_kind"`
	MatrixID        string      `json:"matrix_id"`
	PostgresVersion string      `json:"postgres_version"`
	K8sVersion      string      `json:"k8s_version"`
	WorkflowID      json.Number `json:"workflow_id"`
	Repo            string      `json:"repo"`
	Branch          string      `json:"branch"`
}

// requiredArtifactKeys are the top-level keys an artifact must carry to be
// considered a test record at all. Files missing any of them are skipped.
var requiredArtifactKeys = []string{
	"name",
	"state",
	"start_time",
	"end_time",
	"error",
	"error_file",
	"error_line",
	"platform",
	"postgres_kind",
	"matrix_id",
	"postgres_version",
	"k8s_version",
	"workflow_id",
	"repo",
	"branch",
}

// normalize substitutes the unknown sentinel for absent grouping fields so a
// sloppy artifact degrades to "unknown" buckets instead of empty keys.
func (r *TestResult) normalize() {
	if r.Name == "" {
		r.Name = Unknown
	}
	if r.Platform == "" {
		r.Platform = Unknown
	}
	if r.K8sVersion == "" {
		r.K8sVersion = Unknown
	}
	if r.PostgresKind == "" {
		r.PostgresKind = Unknown
	}
	if r.PostgresVersion == "" {
		r.PostgresVersion = Unknown
	}
	if r.MatrixID == "" {
		r.MatrixID = Unknown
	}
}

// PGVersion combines the Postgres kind and version into the single matrix
// dimension used for bucketing, e.g. "PostgreSQL-16.2".
func (r *TestResult) PGVersion() string {
	return fmt.Sprintf("%s-%s", r.PostgresKind, r.PostgresVersion)
}

// FailureLocation is the failing code position, e.g. "tests/e2e/foo_test.go:42".
func (r *TestResult) FailureLocation() string {
	if r.ErrorFile == "" {
		return Unknown
	}
	return fmt.Sprintf("%s:%s", r.ErrorFile, r.ErrorLine.String())
}
