package core

import (
	"errors"
	"testing"
)

func makeRamp(frames, channels int) [][]float64 {
	data := NewMatrix(frames, channels)
	for i := range data {
		for ch := range data[i] {
			data[i][ch] = float64(i*channels + ch)
		}
	}
	return data
}

func TestNewTraceRecordingValidation(t *testing.T) {
	tests := []struct {
		name    string
		data    [][]float64
		fs      float64
		wantErr error
	}{
		{"valid", makeRamp(10, 4), 30000, nil},
		{"zero rate", makeRamp(10, 4), 0, ErrSamplingRate},
		{"negative rate", makeRamp(10, 4), -1, ErrSamplingRate},
		{"empty", nil, 30000, ErrNoTraces},
		{"ragged", [][]float64{{1, 2}, {3}}, 30000, ErrChannelCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTraceRecording(tt.data, tt.fs)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewTraceRecording() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTracesWindowAndChannels(t *testing.T) {
	rec, err := NewTraceRecording(makeRamp(10, 4), 30000)
	if err != nil {
		t.Fatal(err)
	}

	got, err := rec.Traces(2, 5, []int{3, 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("frames = %d, want 3", len(got))
	}
	// frame 2: values 8..11, channels [3, 0] -> [11, 8]
	if got[0][0] != 11 || got[0][1] != 8 {
		t.Errorf("frame 2 = %v, want [11 8]", got[0])
	}

	if _, err := rec.Traces(5, 11, nil); !errors.Is(err, ErrFrameRange) {
		t.Errorf("out-of-range end error = %v, want ErrFrameRange", err)
	}
	if _, err := rec.Traces(0, 1, []int{4}); !errors.Is(err, ErrChannelIndex) {
		t.Errorf("bad channel error = %v, want ErrChannelIndex", err)
	}
}

func TestFrameSlice(t *testing.T) {
	rec, err := NewTraceRecording(makeRamp(10, 2), 30000)
	if err != nil {
		t.Fatal(err)
	}

	sliced, err := FrameSlice(rec, 4, 8)
	if err != nil {
		t.Fatal(err)
	}
	if sliced.NumFrames() != 4 {
		t.Fatalf("NumFrames() = %d, want 4", sliced.NumFrames())
	}

	got, err := sliced.Traces(0, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	want, err := rec.Traces(4, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got[0][0] != want[0][0] || got[0][1] != want[0][1] {
		t.Errorf("sliced frame 0 = %v, want %v", got[0], want[0])
	}

	// nested slices compose
	nested, err := FrameSlice(sliced, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	got, err = nested.Traces(0, 1, nil)
	if err != nil {
		t.Fatal(err)
	}
	want, _ = rec.Traces(5, 6, nil)
	if got[0][0] != want[0][0] {
		t.Errorf("nested frame 0 = %v, want %v", got[0], want[0])
	}

	if _, err := FrameSlice(rec, 8, 4); !errors.Is(err, ErrFrameRange) {
		t.Errorf("reversed range error = %v, want ErrFrameRange", err)
	}
}

func TestSetProbeChecksShape(t *testing.T) {
	rec, err := NewTraceRecording(makeRamp(10, 4), 30000)
	if err != nil {
		t.Fatal(err)
	}
	if err := rec.SetProbe(NewLinearProbe(3, 20)); !errors.Is(err, ErrChannelCount) {
		t.Errorf("SetProbe mismatch error = %v, want ErrChannelCount", err)
	}
	if err := rec.SetProbe(NewLinearProbe(4, 20)); err != nil {
		t.Errorf("SetProbe() error = %v", err)
	}
	if loc, _ := rec.Probe().Location(2); loc[1] != 40 {
		t.Errorf("channel 2 depth = %v, want 40", loc[1])
	}
}
