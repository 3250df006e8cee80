package summary

import (
	"fmt"
	"time"
)

// specialErrors are well-known out-of-band failure messages. They point at
// suite-level breakage rather than a genuine test failure, so they get their
// own table and never become alerts.
var specialErrors = map[string]bool{
	"operator was restarted": true,
	"operator was renamed":   true,
}

// reportFailureNames mark synthetic entries emitted when the suite report
// itself could not be read.
var reportFailureNames = map[string]bool{
	"Open Ginkgo report": true,
}

// Failed reports whether the execution did not pass. The suite runner grew
// new failure states over time (interrupted, aborted, ...), so this checks
// for non-pass instead of enumerating failures.
func (r *TestResult) Failed() bool {
	return r.State != StatePassed && r.State != StateSkipped && r.State != StateIgnoreFailed
}

// Ignored reports whether the failure was explicitly marked ignorable.
// Ignored failures count toward totals but never toward failure tables.
func (r *TestResult) Ignored() bool {
	return r.State == StateIgnoreFailed
}

// ExternalFailure reports a failure caused outside the test, e.g. the whole
// suite timed out or was canceled. The runner uses dedicated states for
// these, so failed-but-not-"failed" identifies them.
func (r *TestResult) ExternalFailure() bool {
	return r.Failed() && r.State != StateFailed
}

// SpecialError reports one of the well-known out-of-band error messages.
func (r *TestResult) SpecialError() bool {
	return specialErrors[r.Error]
}

// ReportFailure reports that the suite report could not be read.
func (r *TestResult) ReportFailure() bool {
	return r.Error != "" && reportFailureNames[r.Name]
}

// SpecialFailure groups every non-systematic failure kind: suite-level
// cancellation or timeout, known out-of-band errors, and unreadable reports.
func (r *TestResult) SpecialFailure() bool {
	return r.ExternalFailure() || r.SpecialError() || r.ReportFailure()
}

// NormalFailure reports a genuine test failure, the only kind that feeds the
// failing-code table and alert detection.
func (r *TestResult) NormalFailure() bool {
	return r.Failed() && !r.SpecialFailure()
}

// specialFailureKind is the bucket key for the special-failures table.
func (r *TestResult) specialFailureKind() string {
	if r.ExternalFailure() {
		return string(r.State)
	}
	return r.Error
}

// DisplayName tags abnormal failures into the test name so duration tables
// show e.g. "[interrupted] Imports with ...".
func (r *TestResult) DisplayName() string {
	switch {
	case r.ExternalFailure():
		return fmt.Sprintf("[%s] %s", r.State, r.Name)
	case r.SpecialError():
		return fmt.Sprintf("[%s] %s", r.Error, r.Name)
	}
	return r.Name
}

// Duration computes the execution time from the artifact timestamps. The
// second return is false when either timestamp is missing, zero, or
// unparseable; such records simply drop out of the timing tables.
func (r *TestResult) Duration() (time.Duration, bool) {
	if r.StartTime == "" || r.EndTime == "" || r.StartTime == zeroTimestamp || r.EndTime == zeroTimestamp {
		return 0, false
	}
	start, err := time.Parse(time.RFC3339Nano, r.StartTime)
	if err != nil {
		return 0, false
	}
	end, err := time.Parse(time.RFC3339Nano, r.EndTime)
	if err != nil {
		return 0, false
	}
	d := end.Sub(start)
	if d < 0 {
		return 0, false
	}
	return d, true
}
