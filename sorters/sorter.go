package sorters

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kjaeger/spikekit/core"
)

// Errors returned by sorter orchestration.
var (
	ErrNotInstalled   = errors.New("sorters: sorter is not installed")
	ErrNeedsLocations = errors.New("sorters: sorter requires channel locations")
	ErrFolderExists   = errors.New("sorters: output folder already exists")
	ErrInvalidParams  = errors.New("sorters: invalid parameters")
	ErrMissingLog     = errors.New("sorters: get result: folder has no spikeinterface_log.json")
	ErrUnknownSorter  = errors.New("sorters: unknown sorter")
)

// Params holds sorter parameters as written to and read from
// spikeinterface_params.json.
type Params map[string]any

// Bool reads a boolean parameter, false when absent or not a bool.
func (p Params) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Float reads a numeric parameter, falling back when absent. JSON
// round-trips store all numbers as float64.
func (p Params) Float(key string, fallback float64) float64 {
	if v, ok := p[key].(float64); ok {
		return v
	}
	if v, ok := p[key].(int); ok {
		return float64(v)
	}
	return fallback
}

// String reads a string parameter, falling back when absent.
func (p Params) String(key, fallback string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return fallback
}

// clone returns a shallow copy so defaults stay untouched.
func (p Params) clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Sorter is one spike-sorting backend. Implementations work folder-based:
// SetupRecording materializes everything the sorter needs inside the
// sorter output directory, and RunFromFolder must be able to run from
// those files alone.
type Sorter interface {
	Name() string
	Version() string
	DefaultParams() Params
	ParamsDescription() map[string]string

	// RequiresLocations reports whether the recording must carry a probe.
	RequiresLocations() bool

	// SetupRecording writes traces, geometry, and scripts into
	// sorterOutputDir so the run no longer needs the recording object.
	SetupRecording(rec core.Recording, sorterOutputDir string, params Params, verbose bool) error

	// RunFromFolder executes the sorter against a prepared directory.
	RunFromFolder(ctx context.Context, sorterOutputDir string, params Params, verbose bool) error

	// ResultFromFolder reads the sorting the run produced.
	ResultFromFolder(sorterOutputDir string) (core.Sorting, error)

	IsInstalled() bool
	InstallMessage() string
}

// SortingError reports a failed sorter run together with the serialized
// error trace stored in the run log.
type SortingError struct {
	SorterName string
	Trace      []string
	Err        error
}

func (e *SortingError) Error() string {
	msg := fmt.Sprintf("sorters: %s run failed", e.SorterName)
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	if len(e.Trace) > 0 {
		return msg + ": " + strings.Join(e.Trace, "; ")
	}
	return msg
}

func (e *SortingError) Unwrap() error { return e.Err }

// errorChain flattens an error's unwrap chain into trace lines for the
// run log.
func errorChain(err error) []string {
	var lines []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		lines = append(lines, e.Error())
	}
	return lines
}
