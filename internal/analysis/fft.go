package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/kosmos/internal/dynamo"
)

// PowerSpectrum returns the magnitude of the first n/2+1 Fourier bins.
func PowerSpectrum(data []float64) []float64 {
	spectrum := fft.FFTReal(data)
	ps := make([]float64, len(spectrum)/2+1)

	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}

	return ps
}

// EstimatePeriod finds the dominant period of a uniformly sampled series.
// The series is mean-removed and Hann-windowed, and the spectral peak is
// refined by parabolic interpolation.
func EstimatePeriod(times, values []float64) (float64, error) {
	n := len(values)
	if n < 4 || len(times) != n {
		return 0, dynamo.Invalid("need at least 4 matched samples, got %d values and %d times", n, len(times))
	}
	dt := (times[n-1] - times[0]) / float64(n-1)
	if !(dt > 0) {
		return 0, dynamo.Invalid("sample times must increase")
	}

	mean := stat.Mean(values, nil)
	x := make([]float64, n)
	for i, v := range values {
		w := 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		x[i] = (v - mean) * w
	}

	ps := PowerSpectrum(x)
	peak := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[peak] {
			peak = k
		}
	}
	if ps[peak] == 0 {
		return 0, dynamo.Invalid("series does not oscillate")
	}

	offset := 0.0
	if peak+1 < len(ps) {
		a, b, c := ps[peak-1], ps[peak], ps[peak+1]
		if d := a - 2*b + c; d != 0 {
			offset = 0.5 * (a - c) / d
		}
	}

	return float64(n) * dt / (float64(peak) + offset), nil
}

// CrossingPeriod is the mean time between upward crossings of the series
// mean, located by linear interpolation.
func CrossingPeriod(times, values []float64) (float64, error) {
	if len(times) != len(values) {
		return 0, dynamo.Invalid("times and values differ in length")
	}
	mean := stat.Mean(values, nil)

	crossings := make([]float64, 0)
	for i := 1; i < len(values); i++ {
		a, b := values[i-1]-mean, values[i]-mean
		if a < 0 && b >= 0 {
			f := -a / (b - a)
			crossings = append(crossings, times[i-1]+f*(times[i]-times[i-1]))
		}
	}
	if len(crossings) < 2 {
		return 0, dynamo.Invalid("need two upward crossings, found %d", len(crossings))
	}

	return (crossings[len(crossings)-1] - crossings[0]) / float64(len(crossings)-1), nil
}
