package postprocess

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/kjaeger/spikekit/core"
)

// Errors returned by template extraction.
var (
	ErrTemplateWindow = errors.New("postprocess: template window must be positive")
	ErrRateMismatch   = errors.New("postprocess: recording and sorting sampling frequencies differ")
)

// TemplateOptions configures waveform extraction around spike times.
type TemplateOptions struct {
	MSBefore float64 // window before the spike frame, default 1 ms
	MSAfter  float64 // window after the spike frame, default 2 ms

	// MaxSpikesPerUnit caps the number of averaged spikes per unit; 0
	// averages all. Sampling is deterministic for a given Seed.
	MaxSpikesPerUnit int
	Seed             int64
}

// Templates holds one mean waveform per unit, frame-major per unit:
// Waveforms[u][t][ch].
type Templates struct {
	UnitIDs       []string
	Waveforms     [][][]float64
	SamplesBefore int
}

// ComputeTemplates averages spike-triggered waveform windows per unit.
// Spikes whose window crosses the recording edge are skipped.
func ComputeTemplates(rec core.Recording, sorting core.Sorting, opts TemplateOptions) (*Templates, error) {
	if rec.SamplingFrequency() != sorting.SamplingFrequency() {
		return nil, fmt.Errorf("%w: %f vs %f", ErrRateMismatch, rec.SamplingFrequency(), sorting.SamplingFrequency())
	}
	if opts.MSBefore == 0 {
		opts.MSBefore = 1
	}
	if opts.MSAfter == 0 {
		opts.MSAfter = 2
	}
	if opts.MSBefore < 0 || opts.MSAfter < 0 {
		return nil, fmt.Errorf("%w: before %f ms, after %f ms", ErrTemplateWindow, opts.MSBefore, opts.MSAfter)
	}

	fs := rec.SamplingFrequency()
	before := int(opts.MSBefore * fs / 1000)
	after := int(opts.MSAfter * fs / 1000)
	width := before + after
	if width <= 0 {
		return nil, fmt.Errorf("%w: %d samples", ErrTemplateWindow, width)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = 1
	}
	rng := rand.New(rand.NewSource(seed))

	ids := sorting.UnitIDs()
	waveforms := make([][][]float64, len(ids))

	for u, id := range ids {
		train, err := sorting.SpikeTrain(id)
		if err != nil {
			return nil, err
		}

		selected := train
		if opts.MaxSpikesPerUnit > 0 && len(train) > opts.MaxSpikesPerUnit {
			perm := rng.Perm(len(train))[:opts.MaxSpikesPerUnit]
			selected = make([]int64, 0, opts.MaxSpikesPerUnit)
			for _, idx := range perm {
				selected = append(selected, train[idx])
			}
		}

		mean := core.NewMatrix(width, rec.NumChannels())
		count := 0
		for _, frame := range selected {
			start := int(frame) - before
			end := int(frame) + after
			if start < 0 || end > rec.NumFrames() {
				continue
			}
			window, err := rec.Traces(start, end, nil)
			if err != nil {
				return nil, err
			}
			for t := range window {
				for ch := range window[t] {
					mean[t][ch] += window[t][ch]
				}
			}
			count++
		}
		if count > 0 {
			inv := 1 / float64(count)
			for t := range mean {
				for ch := range mean[t] {
					mean[t][ch] *= inv
				}
			}
		}
		waveforms[u] = mean
	}

	return &Templates{UnitIDs: ids, Waveforms: waveforms, SamplesBefore: before}, nil
}
