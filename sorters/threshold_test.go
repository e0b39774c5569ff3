package sorters

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func noisyChannel(frames int, spikes []int, amplitude float64) []float64 {
	x := make([]float64, frames)
	// deterministic low-level jitter so the MAD is non-zero
	for i := range x {
		x[i] = 0.5 * float64((i*37%11)-5) / 5
	}
	for _, f := range spikes {
		x[f] = amplitude
	}
	return x
}

func TestDetectCrossings(t *testing.T) {
	x := noisyChannel(1000, []int{100, 400, 800}, -30)

	train := detectCrossings(x, 5, -1, 30)
	require.Equal(t, []int64{100, 400, 800}, train)

	// positive polarity sees nothing on a negative-going channel
	require.Empty(t, detectCrossings(x, 5, 1, 30))
}

func TestDetectCrossingsMinGap(t *testing.T) {
	// two crossings 10 frames apart collapse under a 30-frame gap
	x := noisyChannel(1000, []int{100, 110, 500}, -30)

	train := detectCrossings(x, 5, -1, 30)
	require.Equal(t, []int64{100, 500}, train)

	train = detectCrossings(x, 5, -1, 5)
	require.Equal(t, []int64{100, 110, 500}, train)
}

func TestDetectCrossingsFlatChannel(t *testing.T) {
	require.Nil(t, detectCrossings(make([]float64, 100), 5, -1, 10))
}
