package core

import (
	"errors"
	"fmt"
	"sort"
)

// Errors returned by sorting operations.
var (
	ErrUnknownUnit = errors.New("core: unknown unit id")
	ErrUnsorted    = errors.New("core: spike train is not sorted")
)

// Sorting is the output of a spike sorter: one spike train per unit, in
// frame indices at the sorting sampling frequency.
type Sorting interface {
	UnitIDs() []string
	NumUnits() int
	SamplingFrequency() float64

	// SpikeTrain returns the sorted spike frames of one unit.
	SpikeTrain(unitID string) ([]int64, error)
}

// TrainSorting is an in-memory Sorting backed by a unit -> train map.
type TrainSorting struct {
	fs      float64
	unitIDs []string
	trains  map[string][]int64
}

// NewTrainSorting builds a Sorting from spike trains. Trains are copied and
// sorted; unit order follows lexicographic unit ID order.
func NewTrainSorting(samplingFrequency float64, trains map[string][]int64) (*TrainSorting, error) {
	if samplingFrequency <= 0 {
		return nil, fmt.Errorf("%w: %f", ErrSamplingRate, samplingFrequency)
	}

	ids := make([]string, 0, len(trains))
	copied := make(map[string][]int64, len(trains))
	for id, train := range trains {
		ids = append(ids, id)
		t := make([]int64, len(train))
		copy(t, train)
		sort.Slice(t, func(i, j int) bool { return t[i] < t[j] })
		copied[id] = t
	}
	sort.Strings(ids)

	return &TrainSorting{fs: samplingFrequency, unitIDs: ids, trains: copied}, nil
}

// UnitIDs returns the unit identifiers in stable order.
func (s *TrainSorting) UnitIDs() []string { return s.unitIDs }

// NumUnits returns the unit count.
func (s *TrainSorting) NumUnits() int { return len(s.unitIDs) }

// SamplingFrequency returns the sampling frequency in Hz.
func (s *TrainSorting) SamplingFrequency() float64 { return s.fs }

// SpikeTrain returns the spike frames of one unit.
func (s *TrainSorting) SpikeTrain(unitID string) ([]int64, error) {
	train, ok := s.trains[unitID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnit, unitID)
	}
	return train, nil
}

// FrameSliceSorting restricts a sorting to spikes in [start, end), shifting
// the remaining spikes so the slice starts at frame zero. Unit IDs are
// preserved even for units left without spikes.
func FrameSliceSorting(s Sorting, start, end int64) (Sorting, error) {
	if start < 0 || start > end {
		return nil, fmt.Errorf("%w: [%d, %d)", ErrFrameRange, start, end)
	}

	trains := make(map[string][]int64, s.NumUnits())
	for _, id := range s.UnitIDs() {
		train, err := s.SpikeTrain(id)
		if err != nil {
			return nil, err
		}
		lo := sort.Search(len(train), func(i int) bool { return train[i] >= start })
		hi := sort.Search(len(train), func(i int) bool { return train[i] >= end })
		sliced := make([]int64, hi-lo)
		for i, f := range train[lo:hi] {
			sliced[i] = f - start
		}
		trains[id] = sliced
	}

	return NewTrainSorting(s.SamplingFrequency(), trains)
}

// TotalSpikes returns the spike count summed over all units.
func TotalSpikes(s Sorting) (int, error) {
	total := 0
	for _, id := range s.UnitIDs() {
		train, err := s.SpikeTrain(id)
		if err != nil {
			return 0, err
		}
		total += len(train)
	}
	return total, nil
}
