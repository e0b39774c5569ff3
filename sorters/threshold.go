package sorters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kjaeger/spikekit/core"
)

// ErrNoResult reports a sorter output folder without a persisted sorting.
var ErrNoResult = errors.New("sorters: sorter output holds no sorting result")

func init() {
	Register(&ThresholdSorter{})
}

// Files the built-in sorters exchange inside the sorter output folder.
const (
	setupTracesFile = "recording.bin"
	setupInfoFile   = "recording_info.json"
	setupGainUV     = 0.1

	sortingDirName  = "sorting"
	sortingFileName = "sorting.json"
)

// setupInfo describes the traces the setup step materialized.
type setupInfo struct {
	SamplingFrequency float64  `json:"sampling_frequency"`
	NumChannels       int      `json:"num_channels"`
	GainUV            float64  `json:"gain_uv"`
	ChannelIDs        []string `json:"channel_ids"`
}

// sortingDoc is the persisted result of an in-process sorter run.
type sortingDoc struct {
	SamplingFrequency float64            `json:"sampling_frequency"`
	Units             map[string][]int64 `json:"units"`
}

// ThresholdSorter is the built-in in-process sorter: it detects
// per-channel threshold crossings measured in multiples of the channel's
// median absolute deviation and reports one unit per channel that fired.
// It exists so the full run pipeline works without any external tool.
type ThresholdSorter struct{}

func (*ThresholdSorter) Name() string    { return "threshold" }
func (*ThresholdSorter) Version() string { return "1.0.0" }

func (*ThresholdSorter) DefaultParams() Params {
	return Params{
		"detect_threshold": 5.0,
		"detect_sign":      -1.0,
		"min_gap_ms":       1.0,
	}
}

func (*ThresholdSorter) ParamsDescription() map[string]string {
	return map[string]string{
		"detect_threshold": "Detection threshold in MAD multiples",
		"detect_sign":      "Polarity of detected peaks, -1 negative or 1 positive",
		"min_gap_ms":       "Minimum gap between detections on one channel in ms",
	}
}

func (*ThresholdSorter) RequiresLocations() bool { return false }
func (*ThresholdSorter) IsInstalled() bool       { return true }
func (*ThresholdSorter) InstallMessage() string  { return "" }

func (*ThresholdSorter) SetupRecording(rec core.Recording, sorterOutputDir string, params Params, verbose bool) error {
	traces, err := rec.Traces(0, rec.NumFrames(), nil)
	if err != nil {
		return err
	}
	if err := core.WriteTracesInt16(filepath.Join(sorterOutputDir, setupTracesFile), traces, setupGainUV); err != nil {
		return err
	}
	info := setupInfo{
		SamplingFrequency: rec.SamplingFrequency(),
		NumChannels:       rec.NumChannels(),
		GainUV:            setupGainUV,
		ChannelIDs:        rec.ChannelIDs(),
	}
	return writeJSON(filepath.Join(sorterOutputDir, setupInfoFile), info)
}

func (*ThresholdSorter) RunFromFolder(ctx context.Context, sorterOutputDir string, params Params, verbose bool) error {
	var info setupInfo
	if err := readJSON(filepath.Join(sorterOutputDir, setupInfoFile), &info); err != nil {
		return fmt.Errorf("sorters: threshold: read setup info: %w", err)
	}
	traces, err := core.ReadTracesInt16(filepath.Join(sorterOutputDir, setupTracesFile), info.NumChannels, info.GainUV)
	if err != nil {
		return fmt.Errorf("sorters: threshold: read traces: %w", err)
	}

	threshold := params.Float("detect_threshold", 5)
	sign := params.Float("detect_sign", -1)
	minGap := int64(params.Float("min_gap_ms", 1) / 1000 * info.SamplingFrequency)
	if minGap < 1 {
		minGap = 1
	}

	units := make(map[string][]int64)
	col := make([]float64, 0, len(traces))
	for ch := 0; ch < info.NumChannels; ch++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		col = core.Column(col, traces, ch)
		train := detectCrossings(col, threshold, sign, minGap)
		if len(train) == 0 {
			continue
		}
		units[info.ChannelIDs[ch]] = train
	}

	doc := sortingDoc{SamplingFrequency: info.SamplingFrequency, Units: units}
	dir := filepath.Join(sorterOutputDir, sortingDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sorters: threshold: create sorting folder: %w", err)
	}
	return writeJSON(filepath.Join(dir, sortingFileName), doc)
}

func (*ThresholdSorter) ResultFromFolder(sorterOutputDir string) (core.Sorting, error) {
	return readSortingDoc(sorterOutputDir)
}

// readSortingDoc loads the persisted sorting of an in-process run.
func readSortingDoc(sorterOutputDir string) (core.Sorting, error) {
	path := filepath.Join(sorterOutputDir, sortingDirName, sortingFileName)
	var doc sortingDoc
	if err := readJSON(path, &doc); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoResult, path)
		}
		return nil, fmt.Errorf("sorters: read sorting result: %w", err)
	}
	return core.NewTrainSorting(doc.SamplingFrequency, doc.Units)
}

// detectCrossings finds threshold crossings on one channel, with the
// threshold measured in multiples of the channel's MAD. Detections
// closer than minGap frames collapse into the first one.
func detectCrossings(x []float64, threshold, sign float64, minGap int64) []int64 {
	mad := core.MedianAbsDeviation(x)
	if mad == 0 {
		return nil
	}
	limit := threshold * mad

	var train []int64
	last := int64(-minGap - 1)
	for i, v := range x {
		if sign*v <= limit {
			continue
		}
		frame := int64(i)
		if frame-last < minGap {
			continue
		}
		train = append(train, frame)
		last = frame
	}
	return train
}
