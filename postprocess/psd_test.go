package postprocess

import (
	"testing"

	"github.com/kjaeger/spikekit/core"
	"github.com/kjaeger/spikekit/internal/testutil"
)

func sineRecording(t *testing.T, fs float64, frames int, freqs []float64) core.Recording {
	t.Helper()
	rec, err := core.NewTraceRecording(testutil.SineTraces(fs, 1, freqs, frames), fs)
	if err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestNoisePSDLocatesTone(t *testing.T) {
	const fs = 1024.0
	rec := sineRecording(t, fs, 2048, []float64{128, 256})

	psd, err := NoisePSD(rec, PSDOptions{SegmentLength: 256, MaxFrames: -1})
	if err != nil {
		t.Fatal(err)
	}
	if len(psd.FreqsHz) != 129 {
		t.Fatalf("bins = %d, want 129", len(psd.FreqsHz))
	}
	if psd.FreqsHz[1] != fs/256 {
		t.Fatalf("bin spacing = %v, want %v", psd.FreqsHz[1], fs/256)
	}

	for ch, wantHz := range []float64{128, 256} {
		peak := 0
		for i, p := range psd.Power[ch] {
			if p > psd.Power[ch][peak] {
				peak = i
			}
		}
		if psd.FreqsHz[peak] != wantHz {
			t.Errorf("channel %d peak at %v Hz, want %v", ch, psd.FreqsHz[peak], wantHz)
		}
	}
}

func TestNoisePSDValidation(t *testing.T) {
	rec := sineRecording(t, 1024, 2048, []float64{100})

	if _, err := NoisePSD(rec, PSDOptions{SegmentLength: 100}); err == nil {
		t.Error("expected segment length error for non power of two")
	}
	if _, err := NoisePSD(rec, PSDOptions{SegmentLength: 8}); err == nil {
		t.Error("expected segment length error for tiny segment")
	}

	short := sineRecording(t, 1024, 128, []float64{100})
	if _, err := NoisePSD(short, PSDOptions{SegmentLength: 256}); err == nil {
		t.Error("expected too-short error")
	}
}
