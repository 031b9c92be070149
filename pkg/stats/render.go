package stats

import (
	stringpool "github.com/stratum-data/stratum/pkg/strings"
)

// sparkLevels are the bar glyphs of the text histogram, lowest first.
var sparkLevels = []rune(" ▁▂▃▄▅▆▇█")

// RenderHistogram renders the bin counts as a sparse unicode bar
// string, one glyph per bin, scaled to the fullest bin.
func RenderHistogram(bins []int64) string {
	if len(bins) == 0 {
		return ""
	}
	var max int64
	for _, c := range bins {
		if c > max {
			max = c
		}
	}
	if max == 0 {
		return ""
	}

	out := make([]rune, len(bins))
	top := len(sparkLevels) - 1
	for i, c := range bins {
		level := int(float64(c) / float64(max) * float64(top))
		if c > 0 && level == 0 {
			level = 1
		}
		out[i] = sparkLevels[level]
	}
	return string(out)
}

// Report is the finalized, read-only statistics record of one column,
// shaped for persistence by the catalog layer and for display.
type Report struct {
	Column    string       `json:"column"`
	LOM       string       `json:"lom"`
	Count     int64        `json:"count"`
	Distinct  int          `json:"nunique"`
	Mean      float64      `json:"mean,omitempty"`
	StdDev    float64      `json:"stddev,omitempty"`
	Min       float64      `json:"min,omitempty"`
	Max       float64      `json:"max,omitempty"`
	P25       float64      `json:"p25,omitempty"`
	P50       float64      `json:"p50,omitempty"`
	P75       float64      `json:"p75,omitempty"`
	Skewness  float64      `json:"skewness,omitempty"`
	Kurtosis  float64      `json:"kurtosis,omitempty"`
	Histogram []int64      `json:"histogram,omitempty"`
	HistText  string       `json:"hist_text,omitempty"`
	TopValues []ValueCount `json:"top_values,omitempty"`
}

// Finalize produces the read-only report of the stat set.
func (s *StatSet) Finalize() *Report {
	r := &Report{
		Column:    s.Column,
		LOM:       s.lom.String(),
		Count:     s.Count(),
		Distinct:  s.Distinct(),
		TopValues: s.TopValues(),
	}
	if s.Numeric() {
		r.Mean = s.Mean()
		r.StdDev = s.StdDev()
		r.Min = s.Min()
		r.Max = s.Max()
		r.P25 = s.Quantile(0.25)
		r.P50 = s.Quantile(0.50)
		r.P75 = s.Quantile(0.75)
		r.Skewness = s.Skewness()
		r.Kurtosis = s.Kurtosis()
		r.Histogram = s.Histogram()
		r.HistText = RenderHistogram(s.Histogram())
	}
	return r
}

// Summary renders a one-line human summary of the report.
func (r *Report) Summary() string {
	if r.Histogram != nil {
		return stringpool.Sprintf("%s (%s) n=%d unique=%d mean=%.4g sd=%.4g [%s]",
			r.Column, r.LOM, r.Count, r.Distinct, r.Mean, r.StdDev, r.HistText)
	}
	return stringpool.Sprintf("%s (%s) n=%d unique=%d",
		r.Column, r.LOM, r.Count, r.Distinct)
}
