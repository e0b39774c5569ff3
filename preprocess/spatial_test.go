package preprocess

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/kjaeger/spikekit/core"
	"github.com/kjaeger/spikekit/internal/testutil"
)

// commonModeRecording builds traces where every channel carries the same
// time-varying offset plus a per-channel alternating component.
func commonModeRecording(t *testing.T, frames, channels int, commonAmp, altAmp float64) core.Recording {
	t.Helper()
	data := core.NewMatrix(frames, channels)
	for i := range data {
		common := commonAmp * math.Sin(2*math.Pi*float64(i)/200)
		for ch := range data[i] {
			alt := altAmp
			if ch%2 == 1 {
				alt = -altAmp
			}
			data[i][ch] = common + alt
		}
	}
	rec, err := core.NewTraceRecording(data, 30000)
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestHighpassSpatialFilterRejectsCommonMode(t *testing.T) {
	const frames, channels = 400, 64
	rec := commonModeRecording(t, frames, channels, 100, 5)

	filtered, err := HighpassSpatialFilter(rec, SpatialFilterOptions{
		NChannelPad: 10,
		Butter:      ButterOptions{Order: 3, Wn: 0.01, Band: Highpass},
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := filtered.Traces(0, frames, nil)
	if err != nil {
		t.Fatal(err)
	}

	// The common-mode term is spatial DC and must be strongly attenuated;
	// the alternating term sits at the spatial Nyquist and must survive.
	for _, fi := range []int{50, 200, 350} {
		meanAbs := 0.0
		for ch := 8; ch < channels-8; ch++ {
			meanAbs += math.Abs(out[fi][ch])
		}
		meanAbs /= float64(channels - 16)
		if meanAbs > 15 {
			t.Errorf("frame %d: residual mean |v| = %.2f, want common mode (amp 100) removed", fi, meanAbs)
		}

		altEnergy := 0.0
		for ch := 8; ch < channels-8; ch++ {
			sign := 1.0
			if ch%2 == 1 {
				sign = -1
			}
			altEnergy += sign * out[fi][ch]
		}
		altEnergy /= float64(channels - 16)
		if math.Abs(altEnergy) < 2 {
			t.Errorf("frame %d: alternating component %.2f, want preserved (amp 5)", fi, altEnergy)
		}
	}
}

func TestLowpassSpatialFilterKeepsCommonMode(t *testing.T) {
	const frames, channels = 100, 64
	rec := commonModeRecording(t, frames, channels, 100, 5)

	filtered, err := HighpassSpatialFilter(rec, SpatialFilterOptions{
		NChannelPad: 10,
		Butter:      ButterOptions{Order: 5, Wn: 0.12, Band: Lowpass},
	})
	if err != nil {
		t.Fatal(err)
	}
	out, err := filtered.Traces(50, 51, nil)
	if err != nil {
		t.Fatal(err)
	}
	orig, err := rec.Traces(50, 51, nil)
	if err != nil {
		t.Fatal(err)
	}

	// lowpass keeps the smooth common-mode term and removes the
	// channel-alternating one
	mid := channels / 2
	common := orig[0][mid] - 5 // mid even -> +altAmp
	if math.Abs(out[0][mid]-common) > 10 {
		t.Errorf("lowpass mid channel = %.2f, want near common mode %.2f", out[0][mid], common)
	}
}

func TestHighpassSpatialFilterOptionGrid(t *testing.T) {
	rec := commonModeRecording(t, 120, 48, 50, 3)

	pads := []int{0, 10, 25}
	tapers := []int{0, 5, 10}
	agcs := []*AGCOptions{nil, DefaultAGC(rec.SamplingFrequency()), {WindowS: 0.01, SamplingInterval: 1.0 / 30000}}
	butters := []ButterOptions{
		{}, // defaulted inside
		{Order: 3, Wn: 0.05, Band: Highpass},
		{Order: 5, Wn: 0.12, Band: Lowpass},
	}

	for _, pad := range pads {
		for _, taper := range tapers {
			for _, agc := range agcs {
				for _, butter := range butters {
					name := fmt.Sprintf("pad=%d/taper=%d/agc=%v/butter=%v", pad, taper, agc != nil, butter.Band)
					t.Run(name, func(t *testing.T) {
						filtered, err := HighpassSpatialFilter(rec, SpatialFilterOptions{
							NChannelPad:   pad,
							NChannelTaper: taper,
							AGC:           agc,
							Butter:        butter,
						})
						if err != nil {
							t.Fatal(err)
						}
						out, err := filtered.Traces(0, 40, nil)
						if err != nil {
							t.Fatal(err)
						}
						if len(out) != 40 || len(out[0]) != 48 {
							t.Fatalf("shape = %dx%d, want 40x48", len(out), len(out[0]))
						}
						testutil.RequireFiniteTraces(t, out)
					})
				}
			}
		}
	}
}

func TestHighpassSpatialFilterSelectChannels(t *testing.T) {
	rec := commonModeRecording(t, 60, 32, 50, 3)

	selected := []int{4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15}
	filtered, err := HighpassSpatialFilter(rec, SpatialFilterOptions{
		Butter:         ButterOptions{Order: 3, Wn: 0.1, Band: Highpass},
		SelectChannels: selected,
	})
	if err != nil {
		t.Fatal(err)
	}

	out, err := filtered.Traces(0, 60, nil)
	if err != nil {
		t.Fatal(err)
	}
	orig, err := rec.Traces(0, 60, nil)
	if err != nil {
		t.Fatal(err)
	}

	inSelection := map[int]bool{}
	for _, ch := range selected {
		inSelection[ch] = true
	}
	for fi := range out {
		for ch := range out[fi] {
			if inSelection[ch] {
				continue
			}
			if out[fi][ch] != orig[fi][ch] {
				t.Fatalf("unselected channel %d modified at frame %d", ch, fi)
			}
		}
	}

	// selected channels must actually be filtered
	changed := false
	for fi := range out {
		if out[fi][selected[3]] != orig[fi][selected[3]] {
			changed = true
			break
		}
	}
	if !changed {
		t.Error("selected channels unchanged by filter")
	}
}

func TestDefaultButterCorner(t *testing.T) {
	rec := commonModeRecording(t, 20, 32, 1, 1)

	filtered, err := HighpassSpatialFilter(rec, SpatialFilterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if wn := filtered.(*spatialFilteredRecording).opts.Butter.Wn; wn != 0.01 {
		t.Errorf("full-probe default Wn = %v, want 0.01", wn)
	}

	// a channel selection defaults to the higher conventional corner
	filtered, err = HighpassSpatialFilter(rec, SpatialFilterOptions{
		SelectChannels: []int{2, 3, 4, 5, 6, 7},
	})
	if err != nil {
		t.Fatal(err)
	}
	if wn := filtered.(*spatialFilteredRecording).opts.Butter.Wn; wn != 0.1 {
		t.Errorf("selection default Wn = %v, want 0.1", wn)
	}

	// an explicit Butter is never overridden by the selection default
	filtered, err = HighpassSpatialFilter(rec, SpatialFilterOptions{
		Butter:         ButterOptions{Order: 3, Wn: 0.05, Band: Highpass},
		SelectChannels: []int{2, 3, 4, 5, 6, 7},
	})
	if err != nil {
		t.Fatal(err)
	}
	if wn := filtered.(*spatialFilteredRecording).opts.Butter.Wn; wn != 0.05 {
		t.Errorf("explicit Wn = %v, want 0.05", wn)
	}
}

func TestHighpassSpatialFilterValidation(t *testing.T) {
	rec := commonModeRecording(t, 10, 8, 1, 1)

	tests := []struct {
		name    string
		opts    SpatialFilterOptions
		wantErr error
	}{
		{"bad band", SpatialFilterOptions{Butter: ButterOptions{Order: 3, Wn: 0.1, Band: "bandpass"}}, ErrButterBand},
		{"wn too high", SpatialFilterOptions{Butter: ButterOptions{Order: 3, Wn: 1.5, Band: Highpass}}, ErrButterWn},
		{"negative order", SpatialFilterOptions{Butter: ButterOptions{Order: -1, Wn: 0.1, Band: Highpass}}, ErrButterOrder},
		{"pad too large", SpatialFilterOptions{NChannelPad: 9, Butter: ButterOptions{Order: 3, Wn: 0.1, Band: Highpass}}, ErrPadTooLarge},
		{"select out of range", SpatialFilterOptions{SelectChannels: []int{99}, Butter: ButterOptions{Order: 3, Wn: 0.1, Band: Highpass}}, ErrSelectBounds},
		{"empty select", SpatialFilterOptions{SelectChannels: []int{}, Butter: ButterOptions{Order: 3, Wn: 0.1, Band: Highpass}}, ErrEmptySelect},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HighpassSpatialFilter(rec, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestFilteredAnnotation(t *testing.T) {
	rec := commonModeRecording(t, 10, 8, 1, 1)
	filtered, err := HighpassSpatialFilter(rec, DefaultSpatialFilterOptions(rec.SamplingFrequency()))
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := filtered.Annotations()["is_filtered"].(bool); !ok || !v {
		t.Error("filtered view not annotated is_filtered")
	}
}
