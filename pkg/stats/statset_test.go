package stats

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stratum-data/stratum/pkg/config"
	"github.com/stratum-data/stratum/pkg/schema"
)

func statsConfig() config.StatsConfig {
	return config.StatsConfig{
		PrimingThreshold: 5000,
		HistogramBins:    16,
		OrdinalCutoff:    50,
		TopValues:        100,
	}
}

func TestStatSetIntervalBasics(t *testing.T) {
	s := NewStatSetLOM("v", LOMInterval, statsConfig())
	for i := 0; i < 1000; i++ {
		s.Update(float64(i))
	}

	require.Equal(t, int64(1000), s.Count())
	require.Equal(t, 1000, s.Distinct())
	require.True(t, s.Numeric())
	require.InDelta(t, 499.5, s.Mean(), 1e-9)
	require.InDelta(t, 0, s.Min(), 1e-9)
	require.InDelta(t, 999, s.Max(), 1e-9)
	require.InDelta(t, 288.819, s.StdDev(), 0.01)
	require.InDelta(t, 0, s.Skewness(), 0.01)

	// Below the priming threshold no histogram exists yet.
	require.Nil(t, s.Histogram())
}

func TestStatSetQuantiles(t *testing.T) {
	s := NewStatSetLOM("v", LOMInterval, statsConfig())
	for i := 1; i <= 1000; i++ {
		s.Update(float64(i))
	}

	require.InDelta(t, 250, s.Quantile(0.25), 15)
	require.InDelta(t, 500, s.Quantile(0.50), 15)
	require.InDelta(t, 750, s.Quantile(0.75), 15)
}

func TestStatSetPriming(t *testing.T) {
	cfg := config.StatsConfig{
		PrimingThreshold: 200,
		HistogramBins:    8,
		OrdinalCutoff:    10,
		TopValues:        5,
	}
	s := NewStatSetLOM("v", LOMInterval, cfg)
	for i := 0; i < 500; i++ {
		s.Update(float64(i))
	}

	require.Equal(t, LOMInterval, s.LOM())
	bins := s.Histogram()
	require.Len(t, bins, 8)

	var total int64
	for _, c := range bins {
		total += c
	}
	require.Greater(t, total, int64(0))

	// Values outside mean±2σ at priming time are dropped, so the bins
	// never hold more than the values fed.
	require.LessOrEqual(t, total, int64(500))

	// Distinct is frozen at the priming threshold for interval columns.
	require.Equal(t, 200, s.Distinct())

	min, width := s.BinRange()
	require.Greater(t, width, 0.0)
	require.Less(t, min, s.Mean())
}

func TestStatSetOrdinalDemotion(t *testing.T) {
	cfg := config.StatsConfig{
		PrimingThreshold: 200,
		HistogramBins:    8,
		OrdinalCutoff:    10,
		TopValues:        5,
	}
	s := NewStatSetLOM("v", LOMInterval, cfg)
	for i := 0; i < 300; i++ {
		s.Update(float64(i % 5))
	}

	// 5 distinct values at priming is below the cutoff: the column is
	// really categorical and numeric treatment is abandoned.
	require.Equal(t, LOMOrdinal, s.LOM())
	require.False(t, s.Numeric())
	require.Nil(t, s.Histogram())
	require.NotEmpty(t, s.TopValues())
}

func TestStatSetNominal(t *testing.T) {
	s := NewStatSetLOM("v", LOMNominal, statsConfig())
	for i := 0; i < 100; i++ {
		s.Update("cat_" + strconv.Itoa(i%3))
	}

	require.Equal(t, int64(100), s.Count())
	require.Equal(t, 3, s.Distinct())
	require.False(t, s.Numeric())

	top := s.TopValues()
	require.Len(t, top, 3)
	require.Equal(t, "cat_0", top[0].Value)
	require.Equal(t, int64(34), top[0].Count)
}

func TestStatSetParseFailures(t *testing.T) {
	s := NewStatSetLOM("v", LOMInterval, statsConfig())
	s.Update(1.0)
	s.Update("not a number")
	s.Update(2.0)

	require.Equal(t, int64(3), s.Count())
	require.InDelta(t, 1.5, s.Mean(), 1e-9)
	require.Equal(t, int64(1), s.parseFailures)
}

func TestStatSetSkipsNil(t *testing.T) {
	s := NewStatSetLOM("v", LOMInterval, statsConfig())
	s.Update(nil)
	s.Update(1.0)

	require.Equal(t, int64(1), s.Count())
}

func TestDeriveLOM(t *testing.T) {
	cases := []struct {
		col  schema.Column
		want LOM
	}{
		{schema.Column{Name: "id", Type: schema.TypeInteger, Primary: true}, LOMOrdinal},
		{schema.Column{Name: "day", Type: schema.TypeDate}, LOMOrdinal},
		{schema.Column{Name: "year", Type: schema.TypeInteger}, LOMOrdinal},
		{schema.Column{Name: "fiscal_year", Type: schema.TypeInteger}, LOMOrdinal},
		{schema.Column{Name: "amount", Type: schema.TypeFloat}, LOMInterval},
		{schema.Column{Name: "count", Type: schema.TypeInteger}, LOMInterval},
		{schema.Column{Name: "name", Type: schema.TypeString}, LOMNominal},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, DeriveLOM(&tc.col), "column %s", tc.col.Name)
	}
}

func TestMoments(t *testing.T) {
	m := NewMoments()
	for _, x := range []float64{2, 4, 4, 4, 5, 5, 7, 9} {
		m.Add(x)
	}

	require.Equal(t, int64(8), m.Count())
	require.InDelta(t, 5.0, m.Mean(), 1e-9)
	require.InDelta(t, 2.0, m.Min(), 1e-9)
	require.InDelta(t, 9.0, m.Max(), 1e-9)
	require.InDelta(t, 4.571428, m.Variance(), 1e-5)
}

func TestRenderHistogram(t *testing.T) {
	require.Equal(t, "", RenderHistogram(nil))
	require.Equal(t, "", RenderHistogram([]int64{0, 0}))

	out := []rune(RenderHistogram([]int64{0, 1, 8}))
	require.Len(t, out, 3)
	require.Equal(t, ' ', out[0])
	require.NotEqual(t, ' ', out[1])
	require.Equal(t, '█', out[2])
}

func TestFinalizeReport(t *testing.T) {
	s := NewStatSetLOM("amount", LOMInterval, statsConfig())
	for i := 0; i < 100; i++ {
		s.Update(float64(i))
	}

	r := s.Finalize()
	require.Equal(t, "amount", r.Column)
	require.Equal(t, "interval", r.LOM)
	require.Equal(t, int64(100), r.Count)
	require.InDelta(t, 49.5, r.Mean, 1e-9)
	require.NotEmpty(t, r.Summary())
}
