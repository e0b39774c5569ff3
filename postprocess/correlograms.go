package postprocess

import (
	"errors"
	"fmt"
	"math"

	"github.com/kjaeger/spikekit/core"
)

// ErrCorrelogramBins is returned for invalid window/bin combinations.
var ErrCorrelogramBins = errors.New("postprocess: correlogram window and bin must be positive")

// Correlograms holds pairwise cross-correlograms: CCGs[i][j][k] counts
// spike pairs of units i and j whose lag (t_j - t_i) falls in bin k. The
// diagonal holds auto-correlograms with zero-lag self pairs excluded.
type Correlograms struct {
	UnitIDs []string
	CCGs    [][][]float64

	// BinEdgesMS has len(bins)+1 entries spanning [-window/2, +window/2].
	BinEdgesMS []float64
}

// ComputeCorrelograms bins all pairwise spike-time differences of a sorting.
// windowMS is the full correlogram width, binMS the bin size, both in
// milliseconds.
func ComputeCorrelograms(sorting core.Sorting, windowMS, binMS float64) (*Correlograms, error) {
	if windowMS <= 0 || binMS <= 0 || binMS > windowMS {
		return nil, fmt.Errorf("%w: window %f ms, bin %f ms", ErrCorrelogramBins, windowMS, binMS)
	}

	numBins := int(math.Round(windowMS / binMS))
	if numBins%2 == 1 {
		numBins++ // symmetric around zero lag
	}
	halfWindowMS := float64(numBins) / 2 * binMS

	edges := make([]float64, numBins+1)
	for i := range edges {
		edges[i] = -halfWindowMS + float64(i)*binMS
	}

	fs := sorting.SamplingFrequency()
	framesPerMS := fs / 1000
	halfWindowFrames := int64(math.Ceil(halfWindowMS * framesPerMS))

	ids := sorting.UnitIDs()
	trains := make([][]int64, len(ids))
	for i, id := range ids {
		train, err := sorting.SpikeTrain(id)
		if err != nil {
			return nil, err
		}
		trains[i] = train
	}

	ccgs := make([][][]float64, len(ids))
	for i := range ccgs {
		ccgs[i] = make([][]float64, len(ids))
		for j := range ccgs[i] {
			ccgs[i][j] = make([]float64, numBins)
		}
	}

	for i := range trains {
		for j := range trains {
			countLags(ccgs[i][j], trains[i], trains[j], i == j, halfWindowFrames, framesPerMS, binMS, halfWindowMS)
		}
	}

	return &Correlograms{UnitIDs: ids, CCGs: ccgs, BinEdgesMS: edges}, nil
}

// countLags accumulates lags t2-t1 within the half window into bins.
func countLags(bins []float64, t1, t2 []int64, auto bool, halfWindowFrames int64, framesPerMS, binMS, halfWindowMS float64) {
	lo := 0
	for _, a := range t1 {
		for lo < len(t2) && t2[lo] < a-halfWindowFrames {
			lo++
		}
		for k := lo; k < len(t2) && t2[k] <= a+halfWindowFrames; k++ {
			lag := t2[k] - a
			if auto && lag == 0 {
				continue
			}
			lagMS := float64(lag) / framesPerMS
			bin := int(math.Floor((lagMS + halfWindowMS) / binMS))
			if bin >= 0 && bin < len(bins) {
				bins[bin]++
			}
		}
	}
}
