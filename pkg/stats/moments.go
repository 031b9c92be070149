// Package stats computes one-pass descriptive statistics per column:
// frequency tables, running moments, t-digest quantile estimates, and a
// fixed-bin histogram primed from an initial sample. Nothing is
// retained per row, so profiling millions of rows stays flat in memory.
package stats

import "math"

// Moments is an online accumulator of the first four central moments,
// with min and max tracking. Single update pass, no values retained.
type Moments struct {
	n              int64
	m1, m2, m3, m4 float64
	min, max       float64
}

// NewMoments returns an empty accumulator.
func NewMoments() *Moments {
	return &Moments{
		min: math.Inf(1),
		max: math.Inf(-1),
	}
}

// Add feeds one value.
func (m *Moments) Add(x float64) {
	n1 := float64(m.n)
	m.n++
	n := float64(m.n)

	delta := x - m.m1
	deltaN := delta / n
	deltaN2 := deltaN * deltaN
	term1 := delta * deltaN * n1

	m.m1 += deltaN
	m.m4 += term1*deltaN2*(n*n-3*n+3) + 6*deltaN2*m.m2 - 4*deltaN*m.m3
	m.m3 += term1*deltaN*(n-2) - 3*deltaN*m.m2
	m.m2 += term1

	if x < m.min {
		m.min = x
	}
	if x > m.max {
		m.max = x
	}
}

// Count returns the number of values fed.
func (m *Moments) Count() int64 { return m.n }

// Mean returns the running mean.
func (m *Moments) Mean() float64 {
	if m.n == 0 {
		return 0
	}
	return m.m1
}

// Variance returns the sample variance.
func (m *Moments) Variance() float64 {
	if m.n < 2 {
		return 0
	}
	return m.m2 / float64(m.n-1)
}

// StdDev returns the sample standard deviation.
func (m *Moments) StdDev() float64 {
	return math.Sqrt(m.Variance())
}

// Min returns the smallest value seen, or 0 when empty.
func (m *Moments) Min() float64 {
	if m.n == 0 {
		return 0
	}
	return m.min
}

// Max returns the largest value seen, or 0 when empty.
func (m *Moments) Max() float64 {
	if m.n == 0 {
		return 0
	}
	return m.max
}

// Skewness returns the sample skewness.
func (m *Moments) Skewness() float64 {
	if m.n < 2 || m.m2 == 0 {
		return 0
	}
	return math.Sqrt(float64(m.n)) * m.m3 / math.Pow(m.m2, 1.5)
}

// Kurtosis returns the excess kurtosis.
func (m *Moments) Kurtosis() float64 {
	if m.n < 2 || m.m2 == 0 {
		return 0
	}
	return float64(m.n)*m.m4/(m.m2*m.m2) - 3
}
