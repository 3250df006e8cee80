package summary

import (
	"math"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
	"k8s.io/apimachinery/pkg/util/sets"
)

// Buckets hold per-key run and failure counts for one matrix dimension.
type Buckets struct {
	Total  map[string]int
	Failed map[string]int
	// NormalFailed counts only genuine test failures, so alert detection
	// can tell a systematically failing dimension from one wiped out by
	// suite-level breakage.
	NormalFailed map[string]int
}

func newBuckets() Buckets {
	return Buckets{
		Total:        map[string]int{},
		Failed:       map[string]int{},
		NormalFailed: map[string]int{},
	}
}

func (b Buckets) add(key string, r *TestResult) {
	b.Total[key]++
	if r.Failed() {
		b.Failed[key]++
	}
	if r.NormalFailure() {
		b.NormalFailed[key]++
	}
}

// overview counts the buckets with at least one failure and the total number
// of buckets.
func (b Buckets) overview() (failed, total int) {
	return len(b.Failed), len(b.Total)
}

// TestBucket aggregates all executions of one test across the matrix. The
// failing dimensions are sets: a version or platform is recorded once per
// test no matter how many branches hit it, which keeps higher-level tallies
// from over-counting a single systemic failure.
type TestBucket struct {
	Total        int
	Failed       int
	NormalFailed int

	FailedK8s       sets.Set[string]
	FailedPG        sets.Set[string]
	FailedPlatforms sets.Set[string]
}

// CodeBucket aggregates normal failures by failing code location.
type CodeBucket struct {
	Count int
	Tests sets.Set[string]
	// Error keeps the first message seen for the location, as a sample.
	Error string
}

// SpecialBucket aggregates suite-level failures by kind.
type SpecialBucket struct {
	Count     int
	Tests     sets.Set[string]
	K8s       sets.Set[string]
	PG        sets.Set[string]
	Platforms sets.Set[string]
}

// PairBucket aggregates one (platform, k8s version) combination. Signatures
// holds the distinct failing code locations, so one systemic failure hitting
// many tests in the combination still tallies as one distinct failure.
type PairBucket struct {
	Platform   string
	K8sVersion string
	Total      int
	Failed     int
	Signatures sets.Set[string]
}

// TestTiming tracks the duration spread of one test across matrix branches.
type TestTiming struct {
	Max           time.Duration
	Min           time.Duration
	SlowestBranch string
}

type timeWindow struct {
	start time.Time
	end   time.Time
}

// Summary is the full aggregation of one artifact directory.
type Summary struct {
	TotalRuns         int
	TotalFailed       int
	TotalSpecialFails int

	ByTest           map[string]*TestBucket
	ByCode           map[string]*CodeBucket
	BySpecialFailure map[string]*SpecialBucket
	ByPlatformK8s    map[string]*PairBucket

	ByMatrix   Buckets
	ByK8s      Buckets
	ByPostgres Buckets
	ByPlatform Buckets

	TestTimes map[string]*TestTiming
	// suiteTimes spans earliest start to latest end per platform and
	// matrix branch.
	suiteTimes map[string]map[string]*timeWindow
}

// Aggregate folds the record sequence into a Summary. The result is
// deterministic and independent of input order: every grouping is keyed and
// every ranking sorted with explicit tie-breaks.
func Aggregate(records []TestResult) *Summary {
	s := &Summary{
		ByTest:           map[string]*TestBucket{},
		ByCode:           map[string]*CodeBucket{},
		BySpecialFailure: map[string]*SpecialBucket{},
		ByPlatformK8s:    map[string]*PairBucket{},
		ByMatrix:         newBuckets(),
		ByK8s:            newBuckets(),
		ByPostgres:       newBuckets(),
		ByPlatform:       newBuckets(),
		TestTimes:        map[string]*TestTiming{},
		suiteTimes:       map[string]map[string]*timeWindow{},
	}
	for i := range records {
		s.add(&records[i])
	}
	return s
}

func (s *Summary) add(r *TestResult) {
	s.TotalRuns++
	if r.Failed() {
		s.TotalFailed++
	}
	if r.SpecialFailure() {
		s.TotalSpecialFails++
	}

	s.addByTest(r)
	s.addByCode(r)
	s.addSpecialFailure(r)
	s.addPair(r)

	s.ByMatrix.add(r.MatrixID, r)
	s.ByK8s.add(r.K8sVersion, r)
	s.ByPostgres.add(r.PGVersion(), r)
	s.ByPlatform.add(r.Platform, r)

	s.trackTimes(r)
}

func (s *Summary) addByTest(r *TestResult) {
	bucket, ok := s.ByTest[r.Name]
	if !ok {
		bucket = &TestBucket{
			FailedK8s:       sets.New[string](),
			FailedPG:        sets.New[string](),
			FailedPlatforms: sets.New[string](),
		}
		s.ByTest[r.Name] = bucket
	}
	bucket.Total++
	// A missing suite report is not a failure of the named test.
	if r.Failed() && !r.ReportFailure() {
		bucket.Failed++
		bucket.FailedK8s.Insert(r.K8sVersion)
		bucket.FailedPG.Insert(r.PGVersion())
		bucket.FailedPlatforms.Insert(r.Platform)
	}
	if r.NormalFailure() {
		bucket.NormalFailed++
	}
}

func (s *Summary) addByCode(r *TestResult) {
	// Failing code outside the test (suite cancellation, runner errors)
	// would only muddy the table.
	if r.Error == "" || r.Ignored() || !r.NormalFailure() {
		return
	}
	location := r.FailureLocation()
	bucket, ok := s.ByCode[location]
	if !ok {
		bucket = &CodeBucket{Tests: sets.New[string](), Error: r.Error}
		s.ByCode[location] = bucket
	}
	bucket.Count++
	bucket.Tests.Insert(r.Name)
}

func (s *Summary) addSpecialFailure(r *TestResult) {
	if !r.Failed() || !r.SpecialFailure() {
		return
	}
	kind := r.specialFailureKind()
	bucket, ok := s.BySpecialFailure[kind]
	if !ok {
		bucket = &SpecialBucket{
			Tests:     sets.New[string](),
			K8s:       sets.New[string](),
			PG:        sets.New[string](),
			Platforms: sets.New[string](),
		}
		s.BySpecialFailure[kind] = bucket
	}
	bucket.Count++
	bucket.Tests.Insert(r.Name)
	bucket.K8s.Insert(r.K8sVersion)
	bucket.PG.Insert(r.PGVersion())
	bucket.Platforms.Insert(r.Platform)
}

func (s *Summary) addPair(r *TestResult) {
	key := r.Platform + "/" + r.K8sVersion
	bucket, ok := s.ByPlatformK8s[key]
	if !ok {
		bucket = &PairBucket{
			Platform:   r.Platform,
			K8sVersion: r.K8sVersion,
			Signatures: sets.New[string](),
		}
		s.ByPlatformK8s[key] = bucket
	}
	bucket.Total++
	if r.Failed() {
		bucket.Failed++
	}
	if r.NormalFailure() {
		bucket.Signatures.Insert(r.FailureLocation())
	}
}

func (s *Summary) trackTimes(r *TestResult) {
	duration, ok := r.Duration()
	if !ok {
		return
	}
	name := r.DisplayName()
	timing, ok := s.TestTimes[name]
	if !ok {
		s.TestTimes[name] = &TestTiming{Max: duration, Min: duration, SlowestBranch: r.MatrixID}
	} else {
		if duration > timing.Max {
			timing.Max = duration
			timing.SlowestBranch = r.MatrixID
		}
		if duration < timing.Min {
			timing.Min = duration
		}
	}

	start, _ := time.Parse(time.RFC3339Nano, r.StartTime)
	end, _ := time.Parse(time.RFC3339Nano, r.EndTime)
	branches, ok := s.suiteTimes[r.Platform]
	if !ok {
		branches = map[string]*timeWindow{}
		s.suiteTimes[r.Platform] = branches
	}
	window, ok := branches[r.MatrixID]
	if !ok {
		branches[r.MatrixID] = &timeWindow{start: start, end: end}
		return
	}
	if start.Before(window.start) {
		window.start = start
	}
	if end.After(window.end) {
		window.end = end
	}
}

// Overview is the failed-vs-total count for every bucketing.
type Overview struct {
	TotalRuns         int
	TotalFailed       int
	TotalSpecialFails int
	UniqueFailed      int
	UniqueRun         int
	MatrixFailed      int
	MatrixRun         int
	K8sFailed         int
	K8sRun            int
	PostgresFailed    int
	PostgresRun       int
	PlatformFailed    int
	PlatformRun       int
}

func (s *Summary) Overview() Overview {
	o := Overview{
		TotalRuns:         s.TotalRuns,
		TotalFailed:       s.TotalFailed,
		TotalSpecialFails: s.TotalSpecialFails,
	}
	o.UniqueRun = len(s.ByTest)
	for _, bucket := range s.ByTest {
		if bucket.Failed > 0 {
			o.UniqueFailed++
		}
	}
	o.MatrixFailed, o.MatrixRun = s.ByMatrix.overview()
	o.K8sFailed, o.K8sRun = s.ByK8s.overview()
	o.PostgresFailed, o.PostgresRun = s.ByPostgres.overview()
	o.PlatformFailed, o.PlatformRun = s.ByPlatform.overview()
	return o
}

// Percentage returns failed/total*100 rounded to one decimal place. The
// second return is false when the group has no runs at all.
func Percentage(failed, total int) (float64, bool) {
	if total == 0 {
		return 0, false
	}
	return math.Round(float64(failed)/float64(total)*1000) / 10, true
}

// SuiteDuration is the per-platform spread of whole-suite run times.
type SuiteDuration struct {
	Platform      string
	Max           time.Duration
	Min           time.Duration
	SlowestBranch string
}

// SuiteDurations reduces the per-branch windows to one row per platform,
// longest suite first.
func (s *Summary) SuiteDurations() []SuiteDuration {
	var rows []SuiteDuration
	for platform, branches := range s.suiteTimes {
		row := SuiteDuration{Platform: platform, Min: -1}
		// iterate branches in sorted order so ties resolve the same way
		// on every run
		for _, branch := range sets.List(sets.KeySet(branches)) {
			duration := branches[branch].end.Sub(branches[branch].start)
			if duration > row.Max {
				row.Max = duration
				row.SlowestBranch = branch
			}
			if row.Min < 0 || duration < row.Min {
				row.Min = duration
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Max != rows[j].Max {
			return rows[i].Max > rows[j].Max
		}
		return rows[i].Platform < rows[j].Platform
	})
	return rows
}

// SlowestTest is one row of the slowest-tests ranking.
type SlowestTest struct {
	Name          string
	Max           time.Duration
	Min           time.Duration
	SlowestBranch string
}

// SlowestTests ranks tests by their longest observed run, descending, capped
// so the section stays chat-sized.
func (s *Summary) SlowestTests() []SlowestTest {
	rows := make([]SlowestTest, 0, len(s.TestTimes))
	for name, timing := range s.TestTimes {
		rows = append(rows, SlowestTest{
			Name:          name,
			Max:           timing.Max,
			Min:           timing.Min,
			SlowestBranch: timing.SlowestBranch,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Max != rows[j].Max {
			return rows[i].Max > rows[j].Max
		}
		return rows[i].Name < rows[j].Name
	})
	if len(rows) > slowestTestLimit {
		rows = rows[:slowestTestLimit]
	}
	return rows
}

// DurationStats returns the median and 95th percentile of the longest run of
// every measured test. The second return is false when nothing was measured.
func (s *Summary) DurationStats() (median, p95 time.Duration, ok bool) {
	if len(s.TestTimes) == 0 {
		return 0, 0, false
	}
	values := make(stats.Float64Data, 0, len(s.TestTimes))
	for _, timing := range s.TestTimes {
		values = append(values, timing.Max.Seconds())
	}
	medianSeconds, err := stats.Median(values)
	if err != nil {
		return 0, 0, false
	}
	p95Seconds, err := stats.Percentile(values, 95)
	if err != nil {
		// Percentile needs more samples than Median; fall back to the
		// largest observation.
		max, maxErr := stats.Max(values)
		if maxErr != nil {
			return 0, 0, false
		}
		p95Seconds = max
	}
	return time.Duration(medianSeconds * float64(time.Second)), time.Duration(p95Seconds * float64(time.Second)), true
}
