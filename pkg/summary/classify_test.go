package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name    string
		record  TestResult
		failed  bool
		special bool
		normal  bool
	}{
		{
			name:   "passed",
			record: TestResult{Name: "a test", State: StatePassed},
		},
		{
			name:   "skipped",
			record: TestResult{Name: "a test", State: StateSkipped},
		},
		{
			name:   "ignored failure is not a failure",
			record: TestResult{Name: "a test", State: StateIgnoreFailed, Error: "assertion failed"},
		},
		{
			name:   "plain failure",
			record: TestResult{Name: "a test", State: StateFailed, Error: "assertion failed"},
			failed: true, normal: true,
		},
		{
			name:    "interrupted suite is an external failure",
			record:  TestResult{Name: "a test", State: "interrupted"},
			failed:  true,
			special: true,
		},
		{
			name:    "aborted suite is an external failure",
			record:  TestResult{Name: "a test", State: "aborted"},
			failed:  true,
			special: true,
		},
		{
			name:    "well-known out-of-band error",
			record:  TestResult{Name: "a test", State: StateFailed, Error: "operator was restarted"},
			failed:  true,
			special: true,
		},
		{
			name:    "unreadable suite report",
			record:  TestResult{Name: "Open Ginkgo report", State: StateFailed, Error: "no report found"},
			failed:  true,
			special: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.failed, tc.record.Failed())
			assert.Equal(t, tc.special, tc.record.SpecialFailure())
			assert.Equal(t, tc.normal, tc.record.NormalFailure())
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name     string
		record   TestResult
		expected string
	}{
		{
			name:     "plain name",
			record:   TestResult{Name: "imports data", State: StateFailed},
			expected: "imports data",
		},
		{
			name:     "external failure gets the state tag",
			record:   TestResult{Name: "imports data", State: "interrupted"},
			expected: "[interrupted] imports data",
		},
		{
			name:     "special error gets the error tag",
			record:   TestResult{Name: "imports data", State: StateFailed, Error: "operator was restarted"},
			expected: "[operator was restarted] imports data",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.record.DisplayName())
		})
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		expected time.Duration
		measured bool
	}{
		{
			name:     "well-formed timestamps",
			start:    "2021-11-29T18:28:37.067055+01:00",
			end:      "2021-11-29T18:30:07.067055+01:00",
			expected: 90 * time.Second,
			measured: true,
		},
		{
			name:  "zero start timestamp",
			start: zeroTimestamp,
			end:   "2021-11-29T18:30:07.067055+01:00",
		},
		{
			name:  "zero end timestamp",
			start: "2021-11-29T18:28:37.067055+01:00",
			end:   zeroTimestamp,
		},
		{
			name:  "missing timestamps",
			start: "",
			end:   "",
		},
		{
			name:  "garbage timestamps",
			start: "yesterday",
			end:   "today",
		},
		{
			name:  "end before start",
			start: "2021-11-29T18:30:07.067055+01:00",
			end:   "2021-11-29T18:28:37.067055+01:00",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			record := TestResult{StartTime: tc.start, EndTime: tc.end}
			duration, ok := record.Duration()
			assert.Equal(t, tc.measured, ok)
			assert.Equal(t, tc.expected, duration)
		})
	}
}

func TestFailureLocation(t *testing.T) {
	record := TestResult{ErrorFile: "tests/e2e/initdb_test.go", ErrorLine: "80"}
	assert.Equal(t, "tests/e2e/initdb_test.go:80", record.FailureLocation())
	assert.Equal(t, Unknown, (&TestResult{}).FailureLocation())
}

func TestPGVersion(t *testing.T) {
	record := TestResult{PostgresKind: "PostgreSQL", PostgresVersion: "16.2"}
	assert.Equal(t, "PostgreSQL-16.2", record.PGVersion())
}
