package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Errors returned by descriptor load/dump.
var (
	ErrUnknownFormat = errors.New("core: no loader registered for format")
	ErrBadDescriptor = errors.New("core: malformed recording descriptor")
)

// DescriptorVersion tags the descriptor schema written by this toolkit.
const DescriptorVersion = "1"

// RecordingDescriptor is the flat JSON record describing how to re-open a
// recording: a format name plus the keyword arguments its reader needs.
// Paths inside Kwargs are stored relative to the descriptor location when
// possible, so sorter folders stay relocatable.
type RecordingDescriptor struct {
	Format      string         `json:"format"`
	Version     string         `json:"version"`
	Kwargs      map[string]any `json:"kwargs"`
	Annotations map[string]any `json:"annotations,omitempty"`
	Probe       *Probe         `json:"probe,omitempty"`
}

// Describable is implemented by recordings that can be re-opened from a
// descriptor. dir is the folder the descriptor will live in; implementations
// may materialize data there (an in-memory recording writes its traces).
type Describable interface {
	Describe(dir string) (*RecordingDescriptor, error)
}

// LoaderFunc re-opens a recording from its descriptor. baseDir is the folder
// the descriptor was read from; relative kwarg paths resolve against it.
type LoaderFunc func(desc *RecordingDescriptor, baseDir string) (Recording, error)

var (
	loadersMu sync.RWMutex
	loaders   = map[string]LoaderFunc{}
)

// RegisterLoader registers a descriptor loader for a format name. Readers
// register themselves in init, the database/sql driver way.
func RegisterLoader(format string, fn LoaderFunc) {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	loaders[format] = fn
}

// DumpRecording writes the descriptor of rec to path. The recording must be
// Describable; a plain view (frame slice, lazy preprocessing) is not.
func DumpRecording(rec Recording, path string) error {
	d, ok := rec.(Describable)
	if !ok {
		return fmt.Errorf("%w: %T", ErrNotDescribable, rec)
	}

	desc, err := d.Describe(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("core: describe recording: %w", err)
	}
	desc.Version = DescriptorVersion
	if desc.Annotations == nil && len(rec.Annotations()) > 0 {
		desc.Annotations = rec.Annotations()
	}

	data, err := json.MarshalIndent(desc, "", "    ")
	if err != nil {
		return fmt.Errorf("core: encode recording descriptor: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("core: write recording descriptor: %w", err)
	}
	return nil
}

// LoadRecording re-opens the recording described by the JSON file at path.
func LoadRecording(path string) (Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("core: read recording descriptor: %w", err)
	}

	var desc RecordingDescriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDescriptor, err)
	}
	if desc.Format == "" {
		return nil, fmt.Errorf("%w: missing format", ErrBadDescriptor)
	}

	loadersMu.RLock()
	fn, ok := loaders[desc.Format]
	loadersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, desc.Format)
	}

	rec, err := fn(&desc, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("core: load %q recording: %w", desc.Format, err)
	}

	if desc.Annotations != nil {
		ann := rec.Annotations()
		for k, v := range desc.Annotations {
			if _, exists := ann[k]; !exists {
				ann[k] = v
			}
		}
	}
	return rec, nil
}

// tracesFile is the sidecar written when an in-memory recording is dumped.
const tracesFile = "traces.bin"

// defaultDumpGain quantizes microvolt traces to int16 with 0.1 uV steps.
const defaultDumpGain = 0.1

// Describe materializes the in-memory traces next to the descriptor so the
// recording can be re-opened by the binary loader.
func (r *TraceRecording) Describe(dir string) (*RecordingDescriptor, error) {
	path := filepath.Join(dir, tracesFile)

	data, err := r.Traces(0, r.NumFrames(), nil)
	if err != nil {
		return nil, err
	}
	if err := WriteTracesInt16(path, data, defaultDumpGain); err != nil {
		return nil, err
	}

	return &RecordingDescriptor{
		Format: "binary",
		Kwargs: map[string]any{
			"file_path":          tracesFile,
			"sampling_frequency": r.fs,
			"num_channels":       r.NumChannels(),
			"gain":               defaultDumpGain,
			"channel_ids":        r.channelIDs,
		},
		Probe: r.probe,
	}, nil
}

// KwargString reads a string kwarg from a descriptor.
func (d *RecordingDescriptor) KwargString(key string) (string, error) {
	v, ok := d.Kwargs[key]
	if !ok {
		return "", fmt.Errorf("%w: missing kwarg %q", ErrBadDescriptor, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: kwarg %q is not a string", ErrBadDescriptor, key)
	}
	return s, nil
}

// KwargFloat reads a numeric kwarg from a descriptor.
func (d *RecordingDescriptor) KwargFloat(key string) (float64, error) {
	v, ok := d.Kwargs[key]
	if !ok {
		return 0, fmt.Errorf("%w: missing kwarg %q", ErrBadDescriptor, key)
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: kwarg %q is not a number", ErrBadDescriptor, key)
	}
	return f, nil
}

// KwargInt reads an integer kwarg from a descriptor. JSON numbers decode as
// float64, so whole floats are accepted.
func (d *RecordingDescriptor) KwargInt(key string) (int, error) {
	f, err := d.KwargFloat(key)
	if err != nil {
		return 0, err
	}
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Errorf("%w: kwarg %q is not an integer", ErrBadDescriptor, key)
	}
	return n, nil
}

// KwargStrings reads a string-slice kwarg from a descriptor, tolerating the
// []any shape produced by json.Unmarshal.
func (d *RecordingDescriptor) KwargStrings(key string) ([]string, error) {
	v, ok := d.Kwargs[key]
	if !ok {
		return nil, fmt.Errorf("%w: missing kwarg %q", ErrBadDescriptor, key)
	}
	switch vv := v.(type) {
	case []string:
		return vv, nil
	case []any:
		out := make([]string, len(vv))
		for i, e := range vv {
			s, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("%w: kwarg %q element %d is not a string", ErrBadDescriptor, key, i)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: kwarg %q is not a string list", ErrBadDescriptor, key)
	}
}
