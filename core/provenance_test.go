package core

import (
	"errors"
	"path/filepath"
	"testing"
)

func init() {
	// Minimal binary loader so descriptor round-trips are testable without
	// importing the extractors package (which registers the real one).
	RegisterLoader("test-binary", func(desc *RecordingDescriptor, baseDir string) (Recording, error) {
		file, err := desc.KwargString("file_path")
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
		fs, err := desc.KwargFloat("sampling_frequency")
		if err != nil {
			return nil, err
		}
		data, err := ReadTracesInt16(filepath.Join(baseDir, file), numChannels, gain)
		if err != nil {
			return nil, err
		}
		return NewTraceRecording(data, fs)
	})
}

type describableAs struct {
	*TraceRecording
	format string
}

func (d describableAs) Describe(dir string) (*RecordingDescriptor, error) {
	desc, err := d.TraceRecording.Describe(dir)
	if err != nil {
		return nil, err
	}
	desc.Format = d.format
	return desc, nil
}

func TestDumpLoadRecordingRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.json")

	rec, err := NewTraceRecording(makeRamp(50, 2), 30000)
	if err != nil {
		t.Fatal(err)
	}
	rec.Annotations()["is_filtered"] = true

	if err := DumpRecording(describableAs{rec, "test-binary"}, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadRecording(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.NumFrames() != 50 || loaded.NumChannels() != 2 {
		t.Fatalf("loaded shape %dx%d, want 50x2", loaded.NumFrames(), loaded.NumChannels())
	}
	if loaded.SamplingFrequency() != 30000 {
		t.Errorf("fs = %v, want 30000", loaded.SamplingFrequency())
	}
	if v, ok := loaded.Annotations()["is_filtered"].(bool); !ok || !v {
		t.Errorf("is_filtered annotation lost: %v", loaded.Annotations())
	}
}

func TestDumpRecordingRequiresDescribable(t *testing.T) {
	dir := t.TempDir()
	rec, err := NewTraceRecording(makeRamp(5, 2), 30000)
	if err != nil {
		t.Fatal(err)
	}
	view, err := FrameSlice(rec, 0, 3)
	if err != nil {
		t.Fatal(err)
	}
	err = DumpRecording(view, filepath.Join(dir, "recording.json"))
	if !errors.Is(err, ErrNotDescribable) {
		t.Errorf("error = %v, want ErrNotDescribable", err)
	}
}

func TestLoadRecordingUnknownFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "recording.json")
	rec, err := NewTraceRecording(makeRamp(5, 2), 30000)
	if err != nil {
		t.Fatal(err)
	}
	if err := DumpRecording(describableAs{rec, "no-such-format"}, path); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadRecording(path); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error = %v, want ErrUnknownFormat", err)
	}
}
