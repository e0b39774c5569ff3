package core

import (
	"fmt"
	"math"
	"math/rand"
)

// GroundTruthConfig controls synthetic recording generation.
type GroundTruthConfig struct {
	DurationS         float64
	SamplingFrequency float64
	NumChannels       int
	NumUnits          int
	FiringRateHz      float64
	NoiseLevelUV      float64
	ChannelPitchUM    float64
}

// GroundTruthOption mutates a GroundTruthConfig.
type GroundTruthOption func(*GroundTruthConfig)

// DefaultGroundTruthConfig returns the defaults used across tests and demos.
func DefaultGroundTruthConfig() GroundTruthConfig {
	return GroundTruthConfig{
		DurationS:         10,
		SamplingFrequency: 30000,
		NumChannels:       8,
		NumUnits:          5,
		FiringRateHz:      8,
		NoiseLevelUV:      10,
		ChannelPitchUM:    20,
	}
}

// WithDuration sets the recording duration in seconds.
func WithDuration(seconds float64) GroundTruthOption {
	return func(cfg *GroundTruthConfig) {
		if seconds > 0 {
			cfg.DurationS = seconds
		}
	}
}

// WithSamplingFrequency sets the sampling frequency in Hz.
func WithSamplingFrequency(fs float64) GroundTruthOption {
	return func(cfg *GroundTruthConfig) {
		if fs > 0 {
			cfg.SamplingFrequency = fs
		}
	}
}

// WithNumChannels sets the channel count.
func WithNumChannels(n int) GroundTruthOption {
	return func(cfg *GroundTruthConfig) {
		if n > 0 {
			cfg.NumChannels = n
		}
	}
}

// WithNumUnits sets the unit count.
func WithNumUnits(n int) GroundTruthOption {
	return func(cfg *GroundTruthConfig) {
		if n > 0 {
			cfg.NumUnits = n
		}
	}
}

// WithFiringRate sets the mean firing rate per unit in Hz.
func WithFiringRate(hz float64) GroundTruthOption {
	return func(cfg *GroundTruthConfig) {
		if hz > 0 {
			cfg.FiringRateHz = hz
		}
	}
}

// WithNoiseLevel sets the additive noise sigma in microvolts.
func WithNoiseLevel(uv float64) GroundTruthOption {
	return func(cfg *GroundTruthConfig) {
		if uv >= 0 {
			cfg.NoiseLevelUV = uv
		}
	}
}

// GroundTruthGenerator produces paired recording/sorting data with known
// spike times, for comparison tests and demos. Generation is deterministic
// for a given seed.
type GroundTruthGenerator struct {
	cfg  GroundTruthConfig
	seed int64
}

// NewGroundTruthGenerator creates a configured generator. Seed 1 unless
// changed with SetSeed.
func NewGroundTruthGenerator(opts ...GroundTruthOption) *GroundTruthGenerator {
	cfg := DefaultGroundTruthConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &GroundTruthGenerator{cfg: cfg, seed: 1}
}

// SetSeed sets the deterministic random seed.
func (g *GroundTruthGenerator) SetSeed(seed int64) { g.seed = seed }

// Config returns the generator configuration.
func (g *GroundTruthGenerator) Config() GroundTruthConfig { return g.cfg }

// Generate builds the synthetic recording and its ground-truth sorting.
// Each unit fires with exponential inter-spike intervals, a refractory gap,
// and a biphasic template that decays spatially from its best channel.
func (g *GroundTruthGenerator) Generate() (*TraceRecording, *TrainSorting, error) {
	cfg := g.cfg
	numFrames := int(cfg.DurationS * cfg.SamplingFrequency)
	if numFrames <= 0 {
		return nil, nil, fmt.Errorf("core: ground truth duration too short: %f s", cfg.DurationS)
	}

	rng := rand.New(rand.NewSource(g.seed))
	data := NewMatrix(numFrames, cfg.NumChannels)

	// background noise
	if cfg.NoiseLevelUV > 0 {
		for i := range data {
			for ch := range data[i] {
				data[i][ch] = rng.NormFloat64() * cfg.NoiseLevelUV
			}
		}
	}

	templateLen := int(0.0015 * cfg.SamplingFrequency) // 1.5 ms waveform
	if templateLen < 4 {
		templateLen = 4
	}
	refractory := int64(2 * templateLen)

	trains := make(map[string][]int64, cfg.NumUnits)
	for u := 0; u < cfg.NumUnits; u++ {
		unitID := fmt.Sprintf("%d", u)
		bestChan := u % cfg.NumChannels
		amplitude := 60 + rng.Float64()*60 // peak in uV

		template := biphasicTemplate(templateLen, amplitude)

		var train []int64
		frame := int64(rng.Intn(templateLen + 1))
		for {
			isi := rng.ExpFloat64() / cfg.FiringRateHz * cfg.SamplingFrequency
			next := frame + int64(isi)
			if next-frame < refractory {
				next = frame + refractory
			}
			if next >= int64(numFrames-templateLen) {
				break
			}
			frame = next
			train = append(train, frame)
			addTemplate(data, int(frame), bestChan, template)
		}
		trains[unitID] = train
	}

	rec, err := NewTraceRecording(data, cfg.SamplingFrequency)
	if err != nil {
		return nil, nil, err
	}
	if err := rec.SetProbe(NewLinearProbe(cfg.NumChannels, cfg.ChannelPitchUM)); err != nil {
		return nil, nil, err
	}

	sort, err := NewTrainSorting(cfg.SamplingFrequency, trains)
	if err != nil {
		return nil, nil, err
	}
	return rec, sort, nil
}

// biphasicTemplate builds a negative-then-positive spike waveform peaking
// at -amplitude one third into the window.
func biphasicTemplate(length int, amplitude float64) []float64 {
	out := make([]float64, length)
	peak := length / 3
	for i := range out {
		t := float64(i-peak) / float64(length)
		out[i] = -amplitude * math.Exp(-t*t*40) * (1 - 2.5*t)
	}
	return out
}

// addTemplate injects a template at frame on bestChan, with half amplitude
// on the immediate neighbor channels.
func addTemplate(data [][]float64, frame, bestChan int, template []float64) {
	numFrames := len(data)
	numChannels := len(data[0])
	for i, v := range template {
		f := frame + i
		if f >= numFrames {
			break
		}
		data[f][bestChan] += v
		if bestChan > 0 {
			data[f][bestChan-1] += 0.5 * v
		}
		if bestChan < numChannels-1 {
			data[f][bestChan+1] += 0.5 * v
		}
	}
}
