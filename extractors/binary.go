package extractors

import (
	"fmt"
	"path/filepath"

	"github.com/kjaeger/spikekit/core"
)

func init() {
	Register("binary", func(path string, opts Options) (core.Recording, error) {
		fs, err := opts.Float("sampling_frequency")
		if err != nil {
			return nil, err
		}
		numChannels, err := opts.Int("num_channels")
		if err != nil {
			return nil, err
		}
		gain := 1.0
		if _, ok := opts["gain"]; ok {
			if gain, err = opts.Float("gain"); err != nil {
				return nil, err
			}
		}
		return OpenBinary(path, BinaryOptions{
			SamplingFrequency: fs,
			NumChannels:       numChannels,
			GainUV:            gain,
		})
	})

	core.RegisterLoader("binary", loadBinaryDescriptor)
}

// BinaryOptions configures the raw int16 reader. Nothing is inferred: the
// format has no metadata of its own.
type BinaryOptions struct {
	SamplingFrequency float64
	NumChannels       int
	GainUV            float64 // microvolts per LSB, 1.0 when zero
	ChannelIDs        []string
	Probe             *core.Probe
}

// BinaryRecording reads frame-major little-endian int16 traces lazily from
// disk. It is the reader behind dumped in-memory recordings and the script
// sorter handoff.
type BinaryRecording struct {
	path        string
	fs          float64
	numChannels int
	numFrames   int
	gain        float64
	channelIDs  []string
	probe       *core.Probe
	annotations map[string]any
}

// OpenBinary opens a raw binary traces file.
func OpenBinary(path string, opts BinaryOptions) (*BinaryRecording, error) {
	if opts.SamplingFrequency <= 0 {
		return nil, fmt.Errorf("%w: %f", core.ErrSamplingRate, opts.SamplingFrequency)
	}
	gain := opts.GainUV
	if gain == 0 {
		gain = 1.0
	}

	frames, err := core.CountBinaryFrames(path, opts.NumChannels)
	if err != nil {
		return nil, err
	}

	ids := opts.ChannelIDs
	if ids == nil {
		ids = make([]string, opts.NumChannels)
		for i := range ids {
			ids[i] = fmt.Sprintf("%d", i)
		}
	} else if len(ids) != opts.NumChannels {
		return nil, fmt.Errorf("%w: %d ids for %d channels", core.ErrChannelCount, len(ids), opts.NumChannels)
	}

	return &BinaryRecording{
		path:        path,
		fs:          opts.SamplingFrequency,
		numChannels: opts.NumChannels,
		numFrames:   frames,
		gain:        gain,
		channelIDs:  ids,
		probe:       opts.Probe,
		annotations: map[string]any{},
	}, nil
}

// NumChannels returns the channel count.
func (r *BinaryRecording) NumChannels() int { return r.numChannels }

// NumFrames returns the frame count.
func (r *BinaryRecording) NumFrames() int { return r.numFrames }

// SamplingFrequency returns the sampling frequency in Hz.
func (r *BinaryRecording) SamplingFrequency() float64 { return r.fs }

// ChannelIDs returns the channel identifiers.
func (r *BinaryRecording) ChannelIDs() []string { return r.channelIDs }

// Probe returns the attached geometry, or nil.
func (r *BinaryRecording) Probe() *core.Probe { return r.probe }

// Annotations returns the mutable annotation map.
func (r *BinaryRecording) Annotations() map[string]any { return r.annotations }

// Traces reads the requested window from disk.
func (r *BinaryRecording) Traces(start, end int, channels []int) ([][]float64, error) {
	return core.ReadTracesInt16At(r.path, r.numChannels, r.gain, start, end, channels)
}

// Describe records the open kwargs so the recording can be re-opened. The
// trace path is stored relative to dir when possible, keeping sorter
// folders relocatable.
func (r *BinaryRecording) Describe(dir string) (*core.RecordingDescriptor, error) {
	path := r.path
	if rel, err := filepath.Rel(dir, r.path); err == nil && filepath.IsLocal(rel) {
		path = rel
	}
	return &core.RecordingDescriptor{
		Format: "binary",
		Kwargs: map[string]any{
			"file_path":          path,
			"sampling_frequency": r.fs,
			"num_channels":       r.numChannels,
			"gain":               r.gain,
			"channel_ids":        r.channelIDs,
		},
		Probe: r.probe,
	}, nil
}

func loadBinaryDescriptor(desc *core.RecordingDescriptor, baseDir string) (core.Recording, error) {
	file, err := desc.KwargString("file_path")
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(baseDir, file)
	}
	fs, err := desc.KwargFloat("sampling_frequency")
	if err != nil {
		return nil, err
	}
	numChannels, err := desc.KwargInt("num_channels")
	if err != nil {
		return nil, err
	}
	gain, err := desc.KwargFloat("gain")
	if err != nil {
		return nil, err
	}
	ids, err := desc.KwargStrings("channel_ids")
	if err != nil {
		ids = nil // optional
	}

	return OpenBinary(file, BinaryOptions{
		SamplingFrequency: fs,
		NumChannels:       numChannels,
		GainUV:            gain,
		ChannelIDs:        ids,
		Probe:             desc.Probe,
	})
}
