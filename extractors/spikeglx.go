package extractors

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kjaeger/spikekit/core"
)

// Errors returned by the SpikeGLX reader.
var (
	ErrNoMeta    = errors.New("extractors: spikeglx meta file not found")
	ErrNoStream  = errors.New("extractors: spikeglx stream not found")
	ErrMetaField = errors.New("extractors: spikeglx meta field missing or malformed")
	ErrAmbiguous = errors.New("extractors: multiple spikeglx streams, specify stream id")
)

func init() {
	Register("spikeglx", func(path string, opts Options) (core.Recording, error) {
		return OpenSpikeGLX(path, SpikeGLXOptions{StreamID: opts.String("stream_id", "")})
	})

	core.RegisterLoader("spikeglx", func(desc *core.RecordingDescriptor, baseDir string) (core.Recording, error) {
		file, err := desc.KwargString("file_path")
		if err != nil {
			return nil, err
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		streamID, _ := desc.KwargString("stream_id")
		return OpenSpikeGLX(file, SpikeGLXOptions{StreamID: streamID})
	})
}

// SpikeGLXOptions configures the SpikeGLX reader.
type SpikeGLXOptions struct {
	// StreamID selects a stream ("imec0.ap", "imec0.lf", "nidq") when the
	// path is a session folder holding several streams.
	StreamID string
}

// SpikeGLXRecording reads a SpikeGLX acquisition: an int16 .bin payload
// described by a sidecar .meta file of key=value lines.
type SpikeGLXRecording struct {
	*BinaryRecording
	binPath  string
	streamID string
}

// OpenSpikeGLX opens a SpikeGLX recording. path may point at the .bin file,
// the .meta file, or a session folder (then StreamID picks the stream).
func OpenSpikeGLX(path string, opts SpikeGLXOptions) (*SpikeGLXRecording, error) {
	binPath, err := resolveSpikeGLXBin(path, opts.StreamID)
	if err != nil {
		return nil, err
	}
	metaPath := strings.TrimSuffix(binPath, ".bin") + ".meta"

	meta, err := parseSpikeGLXMeta(metaPath)
	if err != nil {
		return nil, err
	}

	fs, err := meta.samplingFrequency()
	if err != nil {
		return nil, err
	}
	numChannels, err := meta.int("nSavedChans")
	if err != nil {
		return nil, err
	}
	gain, err := meta.gainUV()
	if err != nil {
		return nil, err
	}

	inner, err := OpenBinary(binPath, BinaryOptions{
		SamplingFrequency: fs,
		NumChannels:       numChannels,
		GainUV:            gain,
	})
	if err != nil {
		return nil, err
	}
	inner.Annotations()["spikeglx_meta"] = metaPath

	return &SpikeGLXRecording{
		BinaryRecording: inner,
		binPath:         binPath,
		streamID:        streamIDFromName(binPath),
	}, nil
}

// StreamID returns the stream the recording was opened from.
func (r *SpikeGLXRecording) StreamID() string { return r.streamID }

// Describe records the open kwargs for re-opening.
func (r *SpikeGLXRecording) Describe(dir string) (*core.RecordingDescriptor, error) {
	path := r.binPath
	if rel, err := filepath.Rel(dir, r.binPath); err == nil && filepath.IsLocal(rel) {
		path = rel
	}
	return &core.RecordingDescriptor{
		Format: "spikeglx",
		Kwargs: map[string]any{
			"file_path": path,
			"stream_id": r.streamID,
		},
	}, nil
}

// resolveSpikeGLXBin maps the user-facing path onto a concrete .bin file.
func resolveSpikeGLXBin(path, streamID string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("extractors: stat spikeglx path: %w", err)
	}

	if !info.IsDir() {
		switch {
		case strings.HasSuffix(path, ".bin"):
			return path, nil
		case strings.HasSuffix(path, ".meta"):
			return strings.TrimSuffix(path, ".meta") + ".bin", nil
		default:
			return "", fmt.Errorf("%w: %q is neither .bin nor .meta", ErrNoStream, path)
		}
	}

	pattern := "*.bin"
	if streamID != "" {
		pattern = "*." + streamID + ".bin"
	}
	matches, err := filepath.Glob(filepath.Join(path, pattern))
	if err != nil {
		return "", fmt.Errorf("extractors: glob spikeglx folder: %w", err)
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: no %q in %q", ErrNoStream, pattern, path)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %v", ErrAmbiguous, matches)
	}
}

// streamIDFromName extracts "imec0.ap" from "run_g0_t0.imec0.ap.bin".
func streamIDFromName(binPath string) string {
	name := strings.TrimSuffix(filepath.Base(binPath), ".bin")
	parts := strings.Split(name, ".")
	if len(parts) >= 3 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return ""
}

type spikeGLXMeta map[string]string

// parseSpikeGLXMeta reads the key=value lines of a .meta file. Keys may be
// prefixed with '~' for table entries; the prefix is stripped.
func parseSpikeGLXMeta(path string) (spikeGLXMeta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNoMeta, path)
	}
	defer f.Close()

	meta := spikeGLXMeta{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024) // imroTbl lines are long
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		meta[strings.TrimPrefix(strings.TrimSpace(key), "~")] = strings.TrimSpace(val)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("extractors: read spikeglx meta: %w", err)
	}
	return meta, nil
}

func (m spikeGLXMeta) float(key string) (float64, error) {
	v, ok := m[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMetaField, key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q=%q", ErrMetaField, key, v)
	}
	return f, nil
}

func (m spikeGLXMeta) int(key string) (int, error) {
	f, err := m.float(key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// samplingFrequency reads imSampRate (imec streams) or niSampRate (nidq).
func (m spikeGLXMeta) samplingFrequency() (float64, error) {
	if _, ok := m["imSampRate"]; ok {
		return m.float("imSampRate")
	}
	return m.float("niSampRate")
}

// defaultAPGain is the Neuropixels AP-band amplifier gain assumed when the
// imro table is absent from the meta file.
const defaultAPGain = 500.0

// gainUV derives microvolts per LSB from the ADC range and bit depth.
func (m spikeGLXMeta) gainUV() (float64, error) {
	rangeMax, errMax := m.float("imAiRangeMax")
	maxInt, errInt := m.float("imMaxInt")
	if errMax != nil || errInt != nil || maxInt == 0 {
		// nidq streams or incomplete meta: report raw ADC counts
		return 1.0, nil
	}
	return rangeMax * 1e6 / (maxInt * defaultAPGain), nil
}
