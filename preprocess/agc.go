package preprocess

import (
	"errors"
	"fmt"
	"math"
)

// ErrAGCWindow is returned for non-positive AGC windows.
var ErrAGCWindow = errors.New("preprocess: agc window must be positive")

// agcEpsilon floors the gain estimate so silent channels do not explode.
const agcEpsilon = 1e-8

// AGCOptions configures windowed automatic gain control. The window is
// given in seconds together with the sampling interval, so callers working
// in samples convert once instead of every call site guessing units.
type AGCOptions struct {
	WindowS          float64
	SamplingInterval float64
}

// DefaultAGC returns the conventional 300-sample window at a given
// sampling frequency.
func DefaultAGC(samplingFrequency float64) *AGCOptions {
	return &AGCOptions{
		WindowS:          300 / samplingFrequency,
		SamplingInterval: 1 / samplingFrequency,
	}
}

// windowSamples converts the option pair to a window length in samples.
func (o *AGCOptions) windowSamples() (int, error) {
	if o.WindowS <= 0 || o.SamplingInterval <= 0 {
		return 0, fmt.Errorf("%w: window %f s at interval %f s", ErrAGCWindow, o.WindowS, o.SamplingInterval)
	}
	wl := int(math.Round(o.WindowS / o.SamplingInterval))
	if wl < 1 {
		wl = 1
	}
	return wl, nil
}

// applyAGC normalizes x in place by its sliding-window RMS and returns the
// per-sample gain that was divided out, so callers can restore scale.
func applyAGC(x []float64, wl int) []float64 {
	n := len(x)
	gains := make([]float64, n)
	if n == 0 {
		return gains
	}
	if wl > n {
		wl = n
	}

	// prefix sums of x^2 for O(1) windowed means
	prefix := make([]float64, n+1)
	for i, v := range x {
		prefix[i+1] = prefix[i] + v*v
	}

	half := wl / 2
	for i := 0; i < n; i++ {
		lo := i - half
		if lo < 0 {
			lo = 0
		}
		hi := lo + wl
		if hi > n {
			hi = n
			lo = hi - wl
		}
		g := math.Sqrt((prefix[hi] - prefix[lo]) / float64(hi-lo))
		if g < agcEpsilon {
			g = agcEpsilon
		}
		gains[i] = g
		x[i] /= g
	}
	return gains
}

// AGC normalizes one channel trace by its sliding RMS, returning the
// normalized copy and the gain trace.
func AGC(x []float64, opts *AGCOptions) ([]float64, []float64, error) {
	if opts == nil {
		return nil, nil, ErrAGCWindow
	}
	wl, err := opts.windowSamples()
	if err != nil {
		return nil, nil, err
	}
	out := make([]float64, len(x))
	copy(out, x)
	gains := applyAGC(out, wl)
	return out, gains, nil
}
