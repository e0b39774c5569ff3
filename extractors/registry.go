package extractors

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/kjaeger/spikekit/core"
)

// Errors returned by the format registry.
var (
	ErrUnknownFormat = errors.New("extractors: unknown format")
	ErrMissingOption = errors.New("extractors: missing required option")
	ErrBadOption     = errors.New("extractors: malformed option value")
)

// Options carries per-format open parameters as strings, one flat map, so
// formats can be opened uniformly from CLI flags or config files. Typed
// option structs exist next to each reader for programmatic use.
type Options map[string]string

// String returns the named option or the fallback.
func (o Options) String(key, fallback string) string {
	if v, ok := o[key]; ok {
		return v
	}
	return fallback
}

// Float parses the named option as float64.
func (o Options) Float(key string) (float64, error) {
	v, ok := o[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingOption, key)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q=%q", ErrBadOption, key, v)
	}
	return f, nil
}

// Int parses the named option as int.
func (o Options) Int(key string) (int, error) {
	v, ok := o[key]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrMissingOption, key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %q=%q", ErrBadOption, key, v)
	}
	return n, nil
}

// Bool parses the named option as bool, with a fallback when absent.
func (o Options) Bool(key string, fallback bool) (bool, error) {
	v, ok := o[key]
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %q=%q", ErrBadOption, key, v)
	}
	return b, nil
}

// Opener opens a recording of one format from a path.
type Opener func(path string, opts Options) (core.Recording, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Opener{}
)

// Register adds a format opener. Later registrations of the same name win,
// which lets applications shadow a built-in reader.
func Register(format string, opener Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[format] = opener
}

// Open opens path with the reader registered for format.
func Open(format, path string, opts Options) (core.Recording, error) {
	registryMu.RLock()
	opener, ok := registry[format]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownFormat, format, Formats())
	}
	return opener(path, opts)
}

// Formats returns the registered format names, sorted.
func Formats() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
