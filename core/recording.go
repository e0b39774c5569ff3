package core

import (
	"errors"
	"fmt"
)

// Errors returned by recording operations.
var (
	ErrNoTraces       = errors.New("core: recording has no traces")
	ErrFrameRange     = errors.New("core: frame range out of bounds")
	ErrChannelIndex   = errors.New("core: channel index out of range")
	ErrChannelCount   = errors.New("core: channel count mismatch")
	ErrSamplingRate   = errors.New("core: sampling frequency must be positive")
	ErrNotDescribable = errors.New("core: recording cannot be described for re-opening")
)

// Recording is a single-segment multichannel extracellular recording.
//
// Traces returns frame-major data: the outer slice has end-start rows, one
// per frame, each row holding one value per requested channel. A nil
// channels slice selects all channels in native order.
type Recording interface {
	NumChannels() int
	NumFrames() int
	SamplingFrequency() float64
	ChannelIDs() []string

	// Probe returns the channel geometry, or nil when unknown.
	Probe() *Probe

	Traces(start, end int, channels []int) ([][]float64, error)

	// Annotations holds free-form metadata such as "is_filtered".
	Annotations() map[string]any
}

// checkTraceRequest validates a Traces call against a recording shape.
func checkTraceRequest(numFrames, numChannels, start, end int, channels []int) error {
	if start < 0 || end > numFrames || start > end {
		return fmt.Errorf("%w: [%d, %d) of %d frames", ErrFrameRange, start, end, numFrames)
	}
	for _, ch := range channels {
		if ch < 0 || ch >= numChannels {
			return fmt.Errorf("%w: %d of %d channels", ErrChannelIndex, ch, numChannels)
		}
	}
	return nil
}

// TraceRecording is an in-memory Recording backed by frame-major data.
type TraceRecording struct {
	data        [][]float64 // frames x channels
	fs          float64
	channelIDs  []string
	probe       *Probe
	annotations map[string]any
}

// NewTraceRecording wraps frame-major data as a Recording. The data slice is
// retained, not copied. Channel IDs default to "0".."n-1".
func NewTraceRecording(data [][]float64, samplingFrequency float64) (*TraceRecording, error) {
	if samplingFrequency <= 0 {
		return nil, fmt.Errorf("%w: %f", ErrSamplingRate, samplingFrequency)
	}
	if len(data) == 0 || len(data[0]) == 0 {
		return nil, ErrNoTraces
	}
	n := len(data[0])
	for i, row := range data {
		if len(row) != n {
			return nil, fmt.Errorf("%w: frame %d has %d channels, want %d", ErrChannelCount, i, len(row), n)
		}
	}

	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%d", i)
	}

	return &TraceRecording{
		data:        data,
		fs:          samplingFrequency,
		channelIDs:  ids,
		annotations: map[string]any{},
	}, nil
}

// NumChannels returns the channel count.
func (r *TraceRecording) NumChannels() int { return len(r.data[0]) }

// NumFrames returns the frame count.
func (r *TraceRecording) NumFrames() int { return len(r.data) }

// SamplingFrequency returns the sampling frequency in Hz.
func (r *TraceRecording) SamplingFrequency() float64 { return r.fs }

// ChannelIDs returns the channel identifiers in native order.
func (r *TraceRecording) ChannelIDs() []string { return r.channelIDs }

// Probe returns the attached probe geometry, or nil.
func (r *TraceRecording) Probe() *Probe { return r.probe }

// Annotations returns the mutable annotation map.
func (r *TraceRecording) Annotations() map[string]any { return r.annotations }

// SetChannelIDs replaces the channel identifiers.
func (r *TraceRecording) SetChannelIDs(ids []string) error {
	if len(ids) != r.NumChannels() {
		return fmt.Errorf("%w: %d ids for %d channels", ErrChannelCount, len(ids), r.NumChannels())
	}
	r.channelIDs = ids
	return nil
}

// SetProbe attaches probe geometry. The probe channel count must match.
func (r *TraceRecording) SetProbe(p *Probe) error {
	if p != nil && p.NumChannels() != r.NumChannels() {
		return fmt.Errorf("%w: probe has %d channels, recording has %d",
			ErrChannelCount, p.NumChannels(), r.NumChannels())
	}
	r.probe = p
	return nil
}

// Traces returns a copy of the requested frame/channel window.
func (r *TraceRecording) Traces(start, end int, channels []int) ([][]float64, error) {
	if err := checkTraceRequest(r.NumFrames(), r.NumChannels(), start, end, channels); err != nil {
		return nil, err
	}
	if channels == nil {
		channels = allChannels(r.NumChannels())
	}

	out := make([][]float64, end-start)
	for i := range out {
		row := make([]float64, len(channels))
		for j, ch := range channels {
			row[j] = r.data[start+i][ch]
		}
		out[i] = row
	}
	return out, nil
}

func allChannels(n int) []int {
	chans := make([]int, n)
	for i := range chans {
		chans[i] = i
	}
	return chans
}

// FrameSlice returns a zero-copy view of rec restricted to [start, end).
func FrameSlice(rec Recording, start, end int) (Recording, error) {
	if start < 0 || end > rec.NumFrames() || start > end {
		return nil, fmt.Errorf("%w: [%d, %d) of %d frames", ErrFrameRange, start, end, rec.NumFrames())
	}
	return &frameSlicedRecording{parent: rec, start: start, end: end}, nil
}

type frameSlicedRecording struct {
	parent     Recording
	start, end int
}

func (r *frameSlicedRecording) NumChannels() int           { return r.parent.NumChannels() }
func (r *frameSlicedRecording) NumFrames() int             { return r.end - r.start }
func (r *frameSlicedRecording) SamplingFrequency() float64 { return r.parent.SamplingFrequency() }
func (r *frameSlicedRecording) ChannelIDs() []string       { return r.parent.ChannelIDs() }
func (r *frameSlicedRecording) Probe() *Probe              { return r.parent.Probe() }
func (r *frameSlicedRecording) Annotations() map[string]any {
	return r.parent.Annotations()
}

func (r *frameSlicedRecording) Traces(start, end int, channels []int) ([][]float64, error) {
	if err := checkTraceRequest(r.NumFrames(), r.NumChannels(), start, end, channels); err != nil {
		return nil, err
	}
	return r.parent.Traces(r.start+start, r.start+end, channels)
}
