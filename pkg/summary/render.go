package summary

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/kataras/tablewriter"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Section is one named block of the Markdown report. Required sections
// survive abridging when the report overflows its byte budget.
type Section struct {
	Title    string
	Required bool
	Body     string
}

// Report is the rendered document, kept as ordered sections so the overflow
// path can rebuild a smaller variant without re-aggregating.
type Report struct {
	Sections []Section
}

// Full is the unabridged Markdown document.
func (r *Report) Full() string {
	var b strings.Builder
	for _, section := range r.Sections {
		b.WriteString(section.Body)
	}
	return b.String()
}

// Abridged keeps only the required sections, prefixed with a note telling the
// reader where the full report went.
func (r *Report) Abridged(note string) string {
	var b strings.Builder
	b.WriteString(note + "\n\n")
	for _, section := range r.Sections {
		if section.Required {
			b.WriteString(section.Body)
		}
	}
	return b.String()
}

// Render turns a summary and its derived views into the ordered Markdown
// sections. Section order is fixed; content depends only on the aggregates.
func Render(s *Summary) *Report {
	report := &Report{}
	add := func(title string, required bool, body string) {
		report.Sections = append(report.Sections, Section{Title: title, Required: required, Body: body})
	}

	add("Preamble", false, preamble(s))
	add("Thermometer", true, thermometerSection(s))
	if alerts := DetectAlerts(s); !alerts.Empty() {
		add("Alerts", true, "## Alerts\n\n"+alerts.PlainText()+"\n")
	}
	add("Overview", true, overviewSection(s.Overview()))

	if s.TotalFailed == 0 {
		add("No failures", false, "\nNo failures, no failure stats shown. It's not easy being green.\n")
	} else {
		if s.TotalSpecialFails > 0 {
			add("Special failures", false, specialFailureSection(s))
		}
		add("Failures by test", false, byTestSection(s))
		add("Failures by errored code", false, byCodeSection(s))
		add("Failures by platform and kubernetes version", false, pairSection(s))
		add("Failures by matrix branch", false, bucketSection("Failures by matrix branch", "by_matrix", "matrix branch", s.ByMatrix, nil))
		add("Failures by kubernetes version", false, bucketSection("Failures by kubernetes version", "by_k8s", "kubernetes version", s.ByK8s, semverLess))
		add("Failures by postgres version", false, bucketSection("Failures by postgres version", "by_postgres", "postgres version", s.ByPostgres, nil))
		add("Failures by platform", false, bucketSection("Failures by platform", "by_platform", "platform", s.ByPlatform, nil))
	}

	add("Suite times", false, suiteTimesSection(s))
	add("Slowest tests", false, slowestTestsSection(s))

	return report
}

func preamble(s *Summary) string {
	var b strings.Builder
	b.WriteString("Note that there are several tables below: thermometer, overview, bucketed by several parameters, timings.\n\n")
	if s.TotalFailed != 0 {
		b.WriteString("**Index**: [suite timing table](#user-content-suite_timing) | " +
			"[slowest tests](#user-content-timing) | " +
			"[by special failure](#user-content-by_special_failure) | " +
			"[by test](#user-content-by_test) | " +
			"[by failing code](#user-content-by_code) | " +
			"[by platform and k8s](#user-content-by_platform_k8s) | " +
			"[by matrix](#user-content-by_matrix) | " +
			"[by k8s](#user-content-by_k8s) | " +
			"[by postgres](#user-content-by_postgres) | " +
			"[by platform](#user-content-by_platform)\n\n")
	}
	return b.String()
}

func heading(title, anchor string) string {
	return fmt.Sprintf("\n<h2><a name=%s>%s</a></h2>\n\n", anchor, title)
}

// markdownTable renders a GitHub-flavored Markdown table.
func markdownTable(header []string, rows [][]string, footer []string) string {
	buf := &bytes.Buffer{}
	table := tablewriter.NewWriter(buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("|")
	table.SetBorders(tablewriter.Border{Left: true, Top: false, Right: true, Bottom: false})
	table.SetHeader(header)
	if len(footer) > 0 {
		table.SetFooter(footer)
	}
	table.AppendBulk(rows)
	table.Render()
	return buf.String()
}

func thermometerSection(s *Summary) string {
	entries := Thermometer(s)
	var rows [][]string
	for _, entry := range entries {
		rows = append(rows, []string{entry.Band.marker() + " " + string(entry.Band), entry.percentCell(), entry.Platform})
	}
	if len(rows) == 0 {
		rows = append(rows, []string{BandNoData.marker() + " " + string(BandNoData), string(BandNoData), "-"})
	}
	return "## Thermometer\n\n" + markdownTable([]string{"health", "failed", "platform"}, rows, nil)
}

func overviewSection(o Overview) string {
	rows := [][]string{
		{fmt.Sprint(o.TotalFailed), fmt.Sprint(o.TotalRuns), "test combinations"},
		{fmt.Sprint(o.UniqueFailed), fmt.Sprint(o.UniqueRun), "unique tests"},
		{fmt.Sprint(o.MatrixFailed), fmt.Sprint(o.MatrixRun), "matrix branches"},
		{fmt.Sprint(o.K8sFailed), fmt.Sprint(o.K8sRun), "k8s versions"},
		{fmt.Sprint(o.PostgresFailed), fmt.Sprint(o.PostgresRun), "postgres versions"},
		{fmt.Sprint(o.PlatformFailed), fmt.Sprint(o.PlatformRun), "platforms"},
	}
	return "\n## Overview\n\n" + markdownTable([]string{"failed", "out of", ""}, rows, nil)
}

func specialFailureSection(s *Summary) string {
	keys := sets.List(sets.KeySet(s.BySpecialFailure))
	sort.SliceStable(keys, func(i, j int) bool {
		return s.BySpecialFailure[keys[i]].Count > s.BySpecialFailure[keys[j]].Count
	})
	var rows [][]string
	for _, key := range keys {
		bucket := s.BySpecialFailure[key]
		rows = append(rows, []string{
			fmt.Sprint(bucket.Count),
			key,
			strings.Join(sets.List(bucket.Tests), ", "),
			strings.Join(sets.List(bucket.K8s), ", "),
			strings.Join(sets.List(bucket.PG), ", "),
			strings.Join(sets.List(bucket.Platforms), ", "),
		})
	}
	header := []string{"failure count", "special failure", "failed tests", "failed K8s", "failed PG", "failed platforms"}
	return heading("Special failures", "by_special_failure") + markdownTable(header, rows, nil)
}

func byTestSection(s *Summary) string {
	keys := failedKeys(sets.List(sets.KeySet(s.ByTest)), func(key string) int { return s.ByTest[key].Failed })
	var rows [][]string
	for _, key := range keys {
		bucket := s.ByTest[key]
		rows = append(rows, []string{
			fmt.Sprint(bucket.Failed),
			fmt.Sprint(bucket.Total),
			strings.Join(sets.List(bucket.FailedK8s), ", "),
			strings.Join(sets.List(bucket.FailedPG), ", "),
			strings.Join(sets.List(bucket.FailedPlatforms), ", "),
			key,
		})
	}
	header := []string{"failed runs", "total runs", "failed K8s", "failed PG", "failed platforms", "test"}
	return heading("Failures by test", "by_test") + markdownTable(header, rows, nil)
}

func byCodeSection(s *Summary) string {
	keys := sets.List(sets.KeySet(s.ByCode))
	sort.SliceStable(keys, func(i, j int) bool {
		return s.ByCode[keys[i]].Count > s.ByCode[keys[j]].Count
	})
	var rows [][]string
	for _, key := range keys {
		bucket := s.ByCode[key]
		rows = append(rows, []string{
			fmt.Sprint(bucket.Count),
			key,
			strings.Join(sets.List(bucket.Tests), ", "),
			errorCell(bucket.Error),
		})
	}
	header := []string{"total failures", "failing code location", "in tests", "error message"}
	return heading("Failures by errored code", "by_code") + markdownTable(header, rows, nil)
}

// errorCell folds a raw error message into a collapsible cell, with newlines
// and pipes replaced so they cannot break the table.
func errorCell(message string) string {
	sanitized := strings.ReplaceAll(message, "\n", "<br />")
	sanitized = strings.ReplaceAll(sanitized, "|", "—")
	return fmt.Sprintf("<details><summary>Click to expand</summary><span>%s</span></details>", sanitized)
}

func pairSection(s *Summary) string {
	keys := failedKeys(sets.List(sets.KeySet(s.ByPlatformK8s)), func(key string) int { return s.ByPlatformK8s[key].Failed })
	var rows [][]string
	for _, key := range keys {
		bucket := s.ByPlatformK8s[key]
		rows = append(rows, []string{
			fmt.Sprint(bucket.Failed),
			fmt.Sprint(bucket.Signatures.Len()),
			fmt.Sprint(bucket.Total),
			bucket.Platform,
			bucket.K8sVersion,
		})
	}
	header := []string{"failed tests", "distinct failures", "total tests", "platform", "kubernetes version"}
	return heading("Failures by platform and kubernetes version", "by_platform_k8s") + markdownTable(header, rows, nil)
}

// bucketSection renders a simple total/failed table, failed buckets only,
// sorted by failures descending. tieLess orders equal-failure keys; nil means
// plain string order.
func bucketSection(title, anchor, label string, buckets Buckets, tieLess func(a, b string) bool) string {
	keys := sets.List(sets.KeySet(buckets.Failed))
	sort.SliceStable(keys, func(i, j int) bool {
		if buckets.Failed[keys[i]] != buckets.Failed[keys[j]] {
			return buckets.Failed[keys[i]] > buckets.Failed[keys[j]]
		}
		if tieLess != nil {
			return tieLess(keys[i], keys[j])
		}
		return keys[i] < keys[j]
	})
	var rows [][]string
	for _, key := range keys {
		rows = append(rows, []string{fmt.Sprint(buckets.Failed[key]), fmt.Sprint(buckets.Total[key]), key})
	}
	header := []string{"failed tests", "total tests", label}
	return heading(title, anchor) + markdownTable(header, rows, nil)
}

// failedKeys filters to keys with at least one failure, ordered by failure
// count descending with ascending key order on ties (keys arrive sorted).
func failedKeys(keys []string, failures func(string) int) []string {
	var failed []string
	for _, key := range keys {
		if failures(key) > 0 {
			failed = append(failed, key)
		}
	}
	sort.SliceStable(failed, func(i, j int) bool {
		return failures(failed[i]) > failures(failed[j])
	})
	return failed
}

// semverLess orders version strings numerically where possible, so "1.9"
// sorts before "1.22" in the kubernetes table.
func semverLess(a, b string) bool {
	va, errA := semver.ParseTolerant(a)
	vb, errB := semver.ParseTolerant(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return va.LT(vb)
}

func suiteTimesSection(s *Summary) string {
	var rows [][]string
	for _, row := range s.SuiteDurations() {
		rows = append(rows, []string{formatDuration(row.Max), formatDuration(row.Min), row.SlowestBranch, row.Platform})
	}
	header := []string{"longest taken", "shortest taken", "slowest branch", "platform"}
	return heading("Suite times", "suite_timing") + markdownTable(header, rows, nil)
}

func slowestTestsSection(s *Summary) string {
	var rows [][]string
	for _, row := range s.SlowestTests() {
		rows = append(rows, []string{formatDuration(row.Max), formatDuration(row.Min), row.SlowestBranch, row.Name})
	}
	var footer []string
	if median, p95, ok := s.DurationStats(); ok {
		footer = []string{"median " + formatDuration(median), "p95 " + formatDuration(p95), "", ""}
	}
	header := []string{"longest taken", "shortest taken", "slowest branch", "test"}
	return heading("Slowest tests", "timing") + markdownTable(header, rows, footer)
}

func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d min %d sec", minutes, seconds)
}
