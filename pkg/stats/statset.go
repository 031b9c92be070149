package stats

import (
	"sort"
	"strconv"
	"strings"

	"github.com/influxdata/tdigest"

	"github.com/stratum-data/stratum/pkg/config"
	"github.com/stratum-data/stratum/pkg/schema"
	stringpool "github.com/stratum-data/stratum/pkg/strings"
)

// LOM is a column's level of measurement, which drives which statistics
// are computed for it.
type LOM uint8

const (
	// LOMNominal is categorical data with no ordering
	LOMNominal LOM = iota
	// LOMOrdinal is ordered categorical data
	LOMOrdinal
	// LOMInterval is numeric data without a true zero
	LOMInterval
	// LOMRatio is numeric data with a true zero
	LOMRatio
)

// String returns the level name.
func (l LOM) String() string {
	switch l {
	case LOMNominal:
		return "nominal"
	case LOMOrdinal:
		return "ordinal"
	case LOMInterval:
		return "interval"
	case LOMRatio:
		return "ratio"
	default:
		return "nominal"
	}
}

// DeriveLOM classifies a column descriptor: primary keys and temporal
// or year columns are ordinal, text is nominal, numbers are interval.
func DeriveLOM(col *schema.Column) LOM {
	name := strings.ToLower(col.Name)
	switch {
	case col.Primary:
		return LOMOrdinal
	case col.Type.IsDate() || col.Type.IsTime():
		return LOMOrdinal
	case name == "year" || strings.HasSuffix(name, "_year"):
		return LOMOrdinal
	case col.Type.IsNumber():
		return LOMInterval
	default:
		return LOMNominal
	}
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string `json:"value"`
	Count int64  `json:"count"`
}

// StatSet accumulates one column's statistics in a single pass.
// Created once per column at pipeline start, fed one value per row,
// and read only after the run finishes.
type StatSet struct {
	Column string
	cfg    config.StatsConfig

	lom     LOM
	n       int64
	freq    map[string]int64
	moments *Moments
	digest  *tdigest.TDigest

	nNumeric int64
	primed   bool
	demoted  bool

	bins     []int64
	binMin   float64
	binWidth float64

	uniqueAtPriming int
	parseFailures   int64
}

// NewStatSet creates a stat set for the column, deriving its level of
// measurement from the descriptor.
func NewStatSet(col *schema.Column, cfg config.StatsConfig) *StatSet {
	return NewStatSetLOM(col.Name, DeriveLOM(col), cfg)
}

// NewStatSetLOM creates a stat set with an explicit level of measurement.
func NewStatSetLOM(column string, lom LOM, cfg config.StatsConfig) *StatSet {
	return &StatSet{
		Column:  column,
		cfg:     cfg,
		lom:     lom,
		freq:    make(map[string]int64),
		moments: NewMoments(),
		digest:  tdigest.New(),
	}
}

// LOM returns the current level of measurement, which may have been
// demoted from interval to ordinal at priming time.
func (s *StatSet) LOM() LOM {
	return s.lom
}

// Update feeds one cell value.
func (s *StatSet) Update(v interface{}) {
	if v == nil {
		return
	}
	s.n++

	if s.lom == LOMNominal || s.lom == LOMOrdinal {
		s.freq[stringpool.ValueToString(v)]++
		return
	}

	f, ok := toFloat(v)
	if !ok {
		// Unparseable values never abort; they count as categories.
		s.parseFailures++
		s.freq[stringpool.ValueToString(v)]++
		return
	}
	s.updateNumeric(f, stringpool.ValueToString(v))
}

// updateNumeric handles interval/ratio values through the priming
// threshold and beyond.
func (s *StatSet) updateNumeric(f float64, str string) {
	s.nNumeric++
	s.moments.Add(f)
	s.digest.Add(f, 1)

	if s.primed {
		s.binValue(f, 1)
		return
	}

	s.freq[str]++
	if s.nNumeric == int64(s.cfg.PrimingThreshold) {
		s.prime()
	}
}

// prime fixes the histogram once the threshold sample is in. Columns
// with few distinct values are demoted to ordinal treatment instead;
// their numeric accumulation is discarded.
func (s *StatSet) prime() {
	s.uniqueAtPriming = len(s.freq)

	if len(s.freq) < s.cfg.OrdinalCutoff {
		s.lom = LOMOrdinal
		s.demoted = true
		s.moments = NewMoments()
		s.digest = tdigest.New()
		return
	}

	mean := s.moments.Mean()
	sd := s.moments.StdDev()
	s.binMin = mean - 2*sd
	s.binWidth = (4 * sd) / float64(s.cfg.HistogramBins)
	if s.binWidth <= 0 {
		s.binWidth = 1
	}
	s.bins = make([]int64, s.cfg.HistogramBins)

	// Retroactively bin everything collected so far, then drop the
	// frequency table; from here on it only catches parse failures.
	for str, count := range s.freq {
		if f, err := strconv.ParseFloat(str, 64); err == nil {
			s.binValue(f, count)
		}
	}
	s.freq = make(map[string]int64)
	s.primed = true
}

// binValue increments the histogram bin covering f. Values outside the
// primed range are dropped; the range never widens after priming.
func (s *StatSet) binValue(f float64, count int64) {
	idx := int((f - s.binMin) / s.binWidth)
	if idx >= 0 && idx < len(s.bins) {
		s.bins[idx] += count
	}
}

// Count returns the number of values fed.
func (s *StatSet) Count() int64 { return s.n }

// Distinct returns the distinct value count: exact for nominal and
// ordinal columns, frozen at the priming threshold for interval columns.
func (s *StatSet) Distinct() int {
	if s.primed {
		return s.uniqueAtPriming
	}
	return len(s.freq)
}

// Numeric reports whether numeric statistics are meaningful for this
// column.
func (s *StatSet) Numeric() bool {
	return (s.lom == LOMInterval || s.lom == LOMRatio) && s.nNumeric > 0
}

// Mean returns the running mean of numeric values.
func (s *StatSet) Mean() float64 { return s.moments.Mean() }

// StdDev returns the sample standard deviation.
func (s *StatSet) StdDev() float64 { return s.moments.StdDev() }

// Min returns the smallest numeric value.
func (s *StatSet) Min() float64 { return s.moments.Min() }

// Max returns the largest numeric value.
func (s *StatSet) Max() float64 { return s.moments.Max() }

// Skewness returns the sample skewness.
func (s *StatSet) Skewness() float64 { return s.moments.Skewness() }

// Kurtosis returns the excess kurtosis.
func (s *StatSet) Kurtosis() float64 { return s.moments.Kurtosis() }

// Quantile returns the streaming estimate of the q-quantile.
func (s *StatSet) Quantile(q float64) float64 {
	if s.nNumeric == 0 {
		return 0
	}
	return s.digest.Quantile(q)
}

// Histogram returns the bin counts, or nil before priming.
func (s *StatSet) Histogram() []int64 {
	return s.bins
}

// BinRange returns the histogram's lower bound and bin width.
func (s *StatSet) BinRange() (min, width float64) {
	return s.binMin, s.binWidth
}

// TopValues returns the most frequent values, highest count first,
// capped at the configured report size.
func (s *StatSet) TopValues() []ValueCount {
	out := make([]ValueCount, 0, len(s.freq))
	for v, c := range s.freq {
		out = append(out, ValueCount{Value: v, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if len(out) > s.cfg.TopValues {
		out = out[:s.cfg.TopValues]
	}
	return out
}

// toFloat coerces a typed cell value to float64.
func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
