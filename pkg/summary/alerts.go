package summary

import (
	"fmt"
	"sort"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Alert is one systematically failing bucket: every run in the bucket failed
// and there were enough of them to matter.
type Alert struct {
	// Metric names the dimension, e.g. "Kubernetes versions".
	Metric string
	Key    string
	Failed int
	Total  int
}

func (a Alert) String() string {
	return fmt.Sprintf("- %s: (%d out of %d tests failed)", a.Key, a.Failed, a.Total)
}

// AlertReport is the ordered alert output for one summary.
type AlertReport struct {
	// AllFailed short-circuits everything else: when every single run
	// failed there is nothing further to investigate.
	AllFailed bool
	// Alerts holds at most maxAlertsPerMetric entries per metric, highest
	// failure count first.
	Alerts []Alert
}

func (r AlertReport) Empty() bool {
	return !r.AllFailed && len(r.Alerts) == 0
}

// alertMetrics fixes the metric scan order and display names.
var alertMetrics = []string{"Tests", "Kubernetes versions", "Postgres versions", "Platforms"}

// DetectAlerts scans every bucketing for systematic failures. A bucket is
// systematic when all of its runs failed, it has at least minAlertFailures of
// them, and at least one failure is a genuine test failure rather than
// suite-level breakage.
func DetectAlerts(s *Summary) AlertReport {
	if s.TotalRuns > 0 && s.TotalFailed == s.TotalRuns {
		return AlertReport{AllFailed: true}
	}

	report := AlertReport{}
	for _, metric := range alertMetrics {
		var alerts []Alert
		for _, bucket := range metricBuckets(s, metric) {
			if bucket.failed == bucket.total && bucket.failed >= minAlertFailures && bucket.normalFailed > 0 {
				alerts = append(alerts, Alert{Metric: metric, Key: bucket.key, Failed: bucket.failed, Total: bucket.total})
			}
		}
		sort.Slice(alerts, func(i, j int) bool {
			if alerts[i].Failed != alerts[j].Failed {
				return alerts[i].Failed > alerts[j].Failed
			}
			return alerts[i].Key < alerts[j].Key
		})
		if len(alerts) > maxAlertsPerMetric {
			alerts = alerts[:maxAlertsPerMetric]
		}
		report.Alerts = append(report.Alerts, alerts...)
	}
	return report
}

type metricBucket struct {
	key          string
	failed       int
	total        int
	normalFailed int
}

// metricBuckets flattens one metric into (key, failed, total, normalFailed)
// tuples in stable key order.
func metricBuckets(s *Summary, metric string) []metricBucket {
	var flattened []metricBucket
	if metric == "Tests" {
		for _, key := range sets.List(sets.KeySet(s.ByTest)) {
			bucket := s.ByTest[key]
			flattened = append(flattened, metricBucket{key: key, failed: bucket.Failed, total: bucket.Total, normalFailed: bucket.NormalFailed})
		}
		return flattened
	}
	var buckets Buckets
	switch metric {
	case "Kubernetes versions":
		buckets = s.ByK8s
	case "Postgres versions":
		buckets = s.ByPostgres
	case "Platforms":
		buckets = s.ByPlatform
	default:
		return nil
	}
	for _, key := range sets.List(sets.KeySet(buckets.Total)) {
		flattened = append(flattened, metricBucket{key: key, failed: buckets.Failed[key], total: buckets.Total[key], normalFailed: buckets.NormalFailed[key]})
	}
	return flattened
}

// PlainText renders the alerts as the terse block handed to chat and
// notification consumers. Empty string when there is nothing to report.
func (r AlertReport) PlainText() string {
	if r.AllFailed {
		return "All test combinations failed"
	}
	if len(r.Alerts) == 0 {
		return ""
	}
	var b strings.Builder
	currentMetric := ""
	for _, alert := range r.Alerts {
		if alert.Metric != currentMetric {
			if currentMetric != "" {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s with systematic failures:\n\n", alert.Metric)
			currentMetric = alert.Metric
		}
		b.WriteString(alert.String() + "\n")
	}
	return b.String()
}
