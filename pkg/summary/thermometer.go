package summary

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"
)

// HealthBand is the color-coded failure-rate indicator for a platform.
type HealthBand string

const (
	BandGreen  HealthBand = "green"
	BandYellow HealthBand = "yellow"
	BandRed    HealthBand = "red"
	BandNoData HealthBand = "no data"
)

func (b HealthBand) marker() string {
	switch b {
	case BandGreen:
		return "🟢"
	case BandYellow:
		return "🟡"
	case BandRed:
		return "🔴"
	}
	return "⚪"
}

// ThermometerEntry is the health reading for one platform.
type ThermometerEntry struct {
	Platform string
	Percent  float64
	HasData  bool
	Band     HealthBand
}

func bandFor(percent float64) HealthBand {
	switch {
	case percent < yellowThresholdPercent:
		return BandGreen
	case percent < redThresholdPercent:
		return BandYellow
	}
	return BandRed
}

// Thermometer computes one entry per platform, alphabetical. A platform with
// no runs at all reads "no data" instead of dividing by zero.
func Thermometer(s *Summary) []ThermometerEntry {
	var entries []ThermometerEntry
	for _, platform := range sets.List(sets.KeySet(s.ByPlatform.Total)) {
		entry := ThermometerEntry{Platform: platform}
		if percent, ok := Percentage(s.ByPlatform.Failed[platform], s.ByPlatform.Total[platform]); ok {
			entry.Percent = percent
			entry.HasData = true
			entry.Band = bandFor(percent)
		} else {
			entry.Band = BandNoData
		}
		entries = append(entries, entry)
	}
	return entries
}

// OverallHealth is the worst band across platforms, for the single
// machine-readable health output.
func OverallHealth(entries []ThermometerEntry) HealthBand {
	worst := BandNoData
	rank := map[HealthBand]int{BandNoData: 0, BandGreen: 1, BandYellow: 2, BandRed: 3}
	for _, entry := range entries {
		if rank[entry.Band] > rank[worst] {
			worst = entry.Band
		}
	}
	return worst
}

func (e ThermometerEntry) percentCell() string {
	if !e.HasData {
		return string(BandNoData)
	}
	return fmt.Sprintf("%.1f%%", e.Percent)
}
