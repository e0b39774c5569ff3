package compare

import (
	"errors"
	"fmt"

	"github.com/kjaeger/spikekit/core"
	"github.com/kjaeger/spikekit/internal/hungarian"
)

// Errors returned by sorting comparison.
var (
	ErrRateMismatch = errors.New("compare: sampling frequencies differ")
	ErrDeltaFrames  = errors.New("compare: delta frames must be non-negative")
)

// Unmatched marks a unit without a counterpart in the other sorting.
const Unmatched = ""

// Options configures spike-train comparison.
type Options struct {
	// DeltaFrames is the coincidence tolerance in frames when pairing
	// spikes across the two sortings, default 10.
	DeltaFrames int64

	// MinAgreement is the score below which an optimal match is
	// discarded, default 0.5.
	MinAgreement float64
}

// Comparison holds the pairwise result of comparing two unit sets.
//
// Agreement[i][j] scores unit UnitIDs1[i] against UnitIDs2[j] in [0, 1].
// The match maps pair unit IDs with their counterpart or Unmatched.
type Comparison struct {
	UnitIDs1 []string
	UnitIDs2 []string

	// MatchCounts[i][j] is the number of coincident spikes; nil for
	// template-based comparisons.
	MatchCounts [][]int

	Agreement [][]float64

	HungarianMatch12 map[string]string
	HungarianMatch21 map[string]string
	BestMatch12      map[string]string
	BestMatch21      map[string]string
}

// CompareSortings scores every unit of s1 against every unit of s2 by
// spike-time coincidence and derives best-per-row and optimal one-to-one
// matchings from the agreement matrix. Both sortings must share a
// sampling frequency.
func CompareSortings(s1, s2 core.Sorting, opts Options) (*Comparison, error) {
	if s1.SamplingFrequency() != s2.SamplingFrequency() {
		return nil, fmt.Errorf("%w: %g vs %g Hz",
			ErrRateMismatch, s1.SamplingFrequency(), s2.SamplingFrequency())
	}
	if opts.DeltaFrames < 0 {
		return nil, fmt.Errorf("%w: %d", ErrDeltaFrames, opts.DeltaFrames)
	}
	delta := opts.DeltaFrames
	if delta == 0 {
		delta = 10
	}
	minScore := opts.MinAgreement
	if minScore == 0 {
		minScore = 0.5
	}

	ids1 := s1.UnitIDs()
	ids2 := s2.UnitIDs()
	trains1, err := allTrains(s1)
	if err != nil {
		return nil, err
	}
	trains2, err := allTrains(s2)
	if err != nil {
		return nil, err
	}

	counts := make([][]int, len(ids1))
	agreement := make([][]float64, len(ids1))
	for i := range ids1 {
		counts[i] = make([]int, len(ids2))
		agreement[i] = make([]float64, len(ids2))
		for j := range ids2 {
			m := matchCount(trains1[i], trains2[j], delta)
			counts[i][j] = m
			union := len(trains1[i]) + len(trains2[j]) - m
			if union > 0 {
				agreement[i][j] = float64(m) / float64(union)
			}
		}
	}

	cmp := &Comparison{
		UnitIDs1:    ids1,
		UnitIDs2:    ids2,
		MatchCounts: counts,
		Agreement:   agreement,
	}
	cmp.match(minScore)
	return cmp, nil
}

// match fills the four matching maps from the agreement matrix.
func (c *Comparison) match(minScore float64) {
	c.BestMatch12 = bestMatches(c.UnitIDs1, c.UnitIDs2, c.Agreement, minScore)
	c.BestMatch21 = bestMatches(c.UnitIDs2, c.UnitIDs1, transpose(c.Agreement, len(c.UnitIDs2)), minScore)

	c.HungarianMatch12 = make(map[string]string, len(c.UnitIDs1))
	c.HungarianMatch21 = make(map[string]string, len(c.UnitIDs2))
	for _, id := range c.UnitIDs1 {
		c.HungarianMatch12[id] = Unmatched
	}
	for _, id := range c.UnitIDs2 {
		c.HungarianMatch21[id] = Unmatched
	}

	cost := make([][]float64, len(c.UnitIDs1))
	for i := range cost {
		cost[i] = make([]float64, len(c.UnitIDs2))
		for j := range cost[i] {
			cost[i][j] = 1 - c.Agreement[i][j]
		}
	}
	for i, j := range hungarian.Solve(cost) {
		if j < 0 || c.Agreement[i][j] < minScore {
			continue
		}
		c.HungarianMatch12[c.UnitIDs1[i]] = c.UnitIDs2[j]
		c.HungarianMatch21[c.UnitIDs2[j]] = c.UnitIDs1[i]
	}
}

func bestMatches(rows, cols []string, scores [][]float64, minScore float64) map[string]string {
	out := make(map[string]string, len(rows))
	for i, id := range rows {
		out[id] = Unmatched
		best, bestScore := -1, minScore
		for j := range cols {
			if scores[i][j] >= bestScore {
				best, bestScore = j, scores[i][j]
			}
		}
		if best >= 0 {
			out[id] = cols[best]
		}
	}
	return out
}

func transpose(m [][]float64, cols int) [][]float64 {
	out := make([][]float64, cols)
	for j := range out {
		out[j] = make([]float64, len(m))
		for i := range m {
			out[j][i] = m[i][j]
		}
	}
	return out
}

// matchCount pairs spikes of a and b one-to-one when they fall within
// delta frames of each other. Both trains must be sorted ascending.
func matchCount(a, b []int64, delta int64) int {
	i, j, n := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch d := a[i] - b[j]; {
		case d < -delta:
			i++
		case d > delta:
			j++
		default:
			n++
			i++
			j++
		}
	}
	return n
}

func allTrains(s core.Sorting) ([][]int64, error) {
	ids := s.UnitIDs()
	trains := make([][]int64, len(ids))
	for i, id := range ids {
		train, err := s.SpikeTrain(id)
		if err != nil {
			return nil, err
		}
		trains[i] = train
	}
	return trains, nil
}
