package core

import (
	"errors"
	"fmt"
)

// ErrProbeShape is returned for inconsistent probe definitions.
var ErrProbeShape = errors.New("core: probe ids and locations differ in length")

// Probe describes channel geometry: one planar (x, y) location per channel,
// in micrometers, matched to channel IDs by position.
type Probe struct {
	ChannelIDs []string     `json:"channel_ids"`
	Locations  [][2]float64 `json:"locations"`
}

// NewProbe builds a probe from parallel id and location slices.
func NewProbe(ids []string, locations [][2]float64) (*Probe, error) {
	if len(ids) != len(locations) {
		return nil, fmt.Errorf("%w: %d ids, %d locations", ErrProbeShape, len(ids), len(locations))
	}
	return &Probe{ChannelIDs: ids, Locations: locations}, nil
}

// NewLinearProbe builds a single-column probe with the given inter-channel
// pitch in micrometers, the common layout for laminar silicon probes.
func NewLinearProbe(numChannels int, pitch float64) *Probe {
	ids := make([]string, numChannels)
	locs := make([][2]float64, numChannels)
	for i := 0; i < numChannels; i++ {
		ids[i] = fmt.Sprintf("%d", i)
		locs[i] = [2]float64{0, float64(i) * pitch}
	}
	return &Probe{ChannelIDs: ids, Locations: locs}
}

// NumChannels returns the probe channel count.
func (p *Probe) NumChannels() int { return len(p.ChannelIDs) }

// Location returns the (x, y) position of channel index i.
func (p *Probe) Location(i int) ([2]float64, error) {
	if i < 0 || i >= len(p.Locations) {
		return [2]float64{}, fmt.Errorf("%w: %d of %d channels", ErrChannelIndex, i, len(p.Locations))
	}
	return p.Locations[i], nil
}
