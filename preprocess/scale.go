package preprocess

import (
	"github.com/cwbudde/algo-vecmath"

	"github.com/kjaeger/spikekit/core"
)

// Scale returns a lazy view of rec with traces transformed to
// gain*value + offset.
func Scale(rec core.Recording, gain, offset float64) core.Recording {
	return &scaledRecording{parent: rec, gain: gain, offset: offset}
}

type scaledRecording struct {
	parent       core.Recording
	gain, offset float64
}

func (r *scaledRecording) NumChannels() int            { return r.parent.NumChannels() }
func (r *scaledRecording) NumFrames() int              { return r.parent.NumFrames() }
func (r *scaledRecording) SamplingFrequency() float64  { return r.parent.SamplingFrequency() }
func (r *scaledRecording) ChannelIDs() []string        { return r.parent.ChannelIDs() }
func (r *scaledRecording) Probe() *core.Probe          { return r.parent.Probe() }
func (r *scaledRecording) Annotations() map[string]any { return r.parent.Annotations() }

func (r *scaledRecording) Traces(start, end int, channels []int) ([][]float64, error) {
	traces, err := r.parent.Traces(start, end, channels)
	if err != nil {
		return nil, err
	}
	for _, row := range traces {
		vecmath.ScaleBlock(row, row, r.gain)
		if r.offset != 0 {
			for i := range row {
				row[i] += r.offset
			}
		}
	}
	return traces, nil
}
