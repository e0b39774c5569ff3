package extractors

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kjaeger/spikekit/core"
)

// ErrXDatMeta is returned for missing or malformed .xdat.json metadata.
var ErrXDatMeta = errors.New("extractors: xdat metadata missing or malformed")

func init() {
	Register("xdat", func(path string, opts Options) (core.Recording, error) {
		useNames, err := opts.Bool("use_names_as_ids", false)
		if err != nil {
			return nil, err
		}
		return OpenXDat(path, XDatOptions{UseNamesAsIDs: useNames})
	})

	core.RegisterLoader("xdat", func(desc *core.RecordingDescriptor, baseDir string) (core.Recording, error) {
		file, err := desc.KwargString("file_path")
		if err != nil {
			return nil, err
		}
		if !filepath.IsAbs(file) {
			file = filepath.Join(baseDir, file)
		}
		useNames := false
		if v, ok := desc.Kwargs["use_names_as_ids"].(bool); ok {
			useNames = v
		}
		return OpenXDat(file, XDatOptions{UseNamesAsIDs: useNames})
	})
}

// XDatOptions configures the Allego XDat reader.
type XDatOptions struct {
	// UseNamesAsIDs selects the human-readable channel names as channel
	// IDs. When false (the default) the hardware native channel names
	// (ntv_chan_names) are used.
	UseNamesAsIDs bool
}

// xdatMeta is the subset of the Allego .xdat.json session metadata the
// reader consumes.
type xdatMeta struct {
	SampFreq     float64  `json:"samp_freq"`
	NumChannels  int      `json:"num_channels"`
	GainUV       float64  `json:"gain_uv"`
	ChanNames    []string `json:"chan_names"`
	NtvChanNames []string `json:"ntv_chan_names"`
}

// XDatRecording reads a Neuronexus Allego session: int16 samples in a
// .xdat payload described by a .xdat.json metadata file.
type XDatRecording struct {
	*BinaryRecording
	metaPath string
	useNames bool
}

// OpenXDat opens an Allego session. path points at the .xdat.json metadata
// file; the data payload is the sibling file with a _data.xdat suffix.
func OpenXDat(path string, opts XDatOptions) (*XDatRecording, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrXDatMeta, err)
	}
	var meta xdatMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrXDatMeta, err)
	}
	if meta.SampFreq <= 0 || meta.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: samp_freq=%f num_channels=%d", ErrXDatMeta, meta.SampFreq, meta.NumChannels)
	}

	ids := meta.NtvChanNames
	if opts.UseNamesAsIDs {
		ids = meta.ChanNames
	}
	if len(ids) != meta.NumChannels {
		ids = nil // metadata without per-channel names falls back to indices
	}

	gain := meta.GainUV
	if gain == 0 {
		gain = 1.0
	}

	dataPath := strings.TrimSuffix(path, ".xdat.json") + "_data.xdat"
	inner, err := OpenBinary(dataPath, BinaryOptions{
		SamplingFrequency: meta.SampFreq,
		NumChannels:       meta.NumChannels,
		GainUV:            gain,
		ChannelIDs:        ids,
	})
	if err != nil {
		return nil, err
	}

	return &XDatRecording{
		BinaryRecording: inner,
		metaPath:        path,
		useNames:        opts.UseNamesAsIDs,
	}, nil
}

// Describe records the open kwargs for re-opening.
func (r *XDatRecording) Describe(dir string) (*core.RecordingDescriptor, error) {
	path := r.metaPath
	if rel, err := filepath.Rel(dir, r.metaPath); err == nil && filepath.IsLocal(rel) {
		path = rel
	}
	return &core.RecordingDescriptor{
		Format: "xdat",
		Kwargs: map[string]any{
			"file_path":        path,
			"use_names_as_ids": r.useNames,
		},
	}, nil
}
