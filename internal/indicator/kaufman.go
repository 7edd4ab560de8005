package indicator

import "math"

// Default parameters for the adaptive line and its second-stage smoothing.
const (
	DefaultWindow = 10
	DefaultFast   = 2
	DefaultSlow   = 30
	DefaultSpan   = 10
)

// Line computes an efficiency-ratio weighted adaptive moving average over
// prices. For each index the trailing volatility is the sum of absolute
// one-step differences over the window; the efficiency ratio is the net
// directional change divided by that volatility. The smoothing constant is
// ((er*(fastSC-slowSC))+slowSC)^2 and the line follows the recurrence
// line[i] = line[i-1] + sc*(price[i]-line[i-1]), seeded with the first
// price for which the ratio is defined.
//
// Indices inside the warmup window are NaN. A zero-volatility window moves
// the line the full distance onto the current price instead of producing
// an undefined ratio.
func Line(prices []float64, window, fast, slow int) []float64 {
	n := len(prices)
	out := make([]float64, n)
	if n == 0 {
		return out
	}

	fastSC := 2.0 / (float64(fast) + 1)
	slowSC := 2.0 / (float64(slow) + 1)

	diffs := make([]float64, n)
	diffs[0] = math.NaN()
	for i := 1; i < n; i++ {
		diffs[i] = math.Abs(prices[i] - prices[i-1])
	}

	seeded := false
	for i := 0; i < n; i++ {
		if i < window {
			out[i] = math.NaN()
			continue
		}
		vol := 0.0
		for j := i - window + 1; j <= i; j++ {
			vol += diffs[j]
		}
		if vol == 0 {
			if !seeded || math.IsNaN(out[i-1]) {
				out[i] = prices[i]
			} else {
				out[i] = out[i-1] + (prices[i] - out[i-1])
			}
			seeded = true
			continue
		}
		er := math.Abs(prices[i]-prices[i-window]) / vol
		sc := er*(fastSC-slowSC) + slowSC
		sc *= sc
		if !seeded {
			out[i] = prices[i]
			seeded = true
			continue
		}
		out[i] = out[i-1] + sc*(prices[i]-out[i-1])
	}
	return out
}

// Smooth applies span-based exponential smoothing to values, skipping NaN
// entries so warmup gaps in the adaptive line do not poison the output.
func Smooth(values []float64, span int) []float64 {
	alpha := 2.0 / (float64(span) + 1)
	out := make([]float64, len(values))
	num, den := 0.0, 0.0
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = math.NaN()
			continue
		}
		num = num*(1-alpha) + v
		den = den*(1-alpha) + 1
		out[i] = num / den
	}
	return out
}

// Dense strips NaN entries, keeping order.
func Dense(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Ratios returns the period-over-period ratio series r[i] = v[i]/v[i-1].
// r[0] is NaN.
func Ratios(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = math.NaN()
	for i := 1; i < len(values); i++ {
		out[i] = values[i] / values[i-1]
	}
	return out
}
