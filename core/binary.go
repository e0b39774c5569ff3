package core

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// Errors returned by the binary trace codec.
var (
	ErrBinaryShape = errors.New("core: binary file size is not a whole number of frames")
	ErrZeroGain    = errors.New("core: gain must be non-zero")
)

// WriteTracesInt16 writes frame-major traces as little-endian int16 samples,
// dividing by gain before quantization. This is the raw layout shared by
// SpikeGLX-style acquisition files and the sorter handoff folder.
func WriteTracesInt16(path string, traces [][]float64, gain float64) error {
	if gain == 0 {
		return ErrZeroGain
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("core: create binary file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	buf := make([]byte, 2)
	for _, row := range traces {
		for _, v := range row {
			q := math.Round(v / gain)
			q = Clamp(q, math.MinInt16, math.MaxInt16)
			binary.LittleEndian.PutUint16(buf, uint16(int16(q)))
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("core: write binary traces: %w", err)
			}
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("core: flush binary traces: %w", err)
	}
	return nil
}

// ReadTracesInt16 reads a whole int16 binary file into frame-major float64
// traces, multiplying by gain.
func ReadTracesInt16(path string, numChannels int, gain float64) ([][]float64, error) {
	frames, err := CountBinaryFrames(path, numChannels)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("core: open binary file: %w", err)
	}
	defer f.Close()

	out := NewMatrix(frames, numChannels)
	r := bufio.NewReader(f)
	buf := make([]byte, 2*numChannels)
	for i := 0; i < frames; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("core: read binary frame %d: %w", i, err)
		}
		for ch := 0; ch < numChannels; ch++ {
			raw := int16(binary.LittleEndian.Uint16(buf[2*ch:]))
			out[i][ch] = float64(raw) * gain
		}
	}
	return out, nil
}

// ReadTracesInt16At reads frames [start, end) of channel subset channels
// (nil for all) without loading the whole file.
func ReadTracesInt16At(path string, numChannels int, gain float64, start, end int, channels []int) ([][]float64, error) {
	totalFrames, err := CountBinaryFrames(path, numChannels)
	if err != nil {
		return nil, err
	}
	if err := checkTraceRequest(totalFrames, numChannels, start, end, channels); err != nil {
		return nil, err
	}
	if channels == nil {
		channels = allChannels(numChannels)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("core: open binary file: %w", err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(start)*int64(2*numChannels), io.SeekStart); err != nil {
		return nil, fmt.Errorf("core: seek binary file: %w", err)
	}

	out := make([][]float64, end-start)
	r := bufio.NewReader(f)
	buf := make([]byte, 2*numChannels)
	for i := range out {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("core: read binary frame %d: %w", start+i, err)
		}
		row := make([]float64, len(channels))
		for j, ch := range channels {
			raw := int16(binary.LittleEndian.Uint16(buf[2*ch:]))
			row[j] = float64(raw) * gain
		}
		out[i] = row
	}
	return out, nil
}

// CountBinaryFrames returns the frame count of an int16 binary file.
func CountBinaryFrames(path string, numChannels int) (int, error) {
	if numChannels <= 0 {
		return 0, fmt.Errorf("%w: %d channels", ErrChannelCount, numChannels)
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("core: stat binary file: %w", err)
	}
	frameBytes := int64(2 * numChannels)
	if info.Size()%frameBytes != 0 {
		return 0, fmt.Errorf("%w: %d bytes, %d per frame", ErrBinaryShape, info.Size(), frameBytes)
	}
	return int(info.Size() / frameBytes), nil
}
