package sorters

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kjaeger/spikekit/core"
)

// File names of the on-disk run contract.
const (
	recordingFile = "spikeinterface_recording.json"
	paramsFile    = "spikeinterface_params.json"
	logFile       = "spikeinterface_log.json"

	sorterOutputName = "sorter_output"
)

// paramsDoc is the spikeinterface_params.json layout.
type paramsDoc struct {
	SorterName   string `json:"sorter_name"`
	SorterParams Params `json:"sorter_params"`
}

// runLog is the spikeinterface_log.json layout. RunTime is null when the
// run failed, which is also how IsLogOK probes for success.
type runLog struct {
	SorterName    string   `json:"sorter_name"`
	SorterVersion string   `json:"sorter_version"`
	Datetime      string   `json:"datetime"`
	RunTime       *float64 `json:"run_time"`
	Error         bool     `json:"error"`
	ErrorTrace    []string `json:"error_trace,omitempty"`
	RuntimeTrace  []string `json:"runtime_trace"`
}

// Runner drives one sorter run inside one output folder.
type Runner struct {
	// Folder is the run's output folder.
	Folder string

	// RemoveExisting wipes an existing folder instead of refusing it.
	RemoveExisting bool

	// Verbose lowers the log level to debug.
	Verbose bool

	// Logger receives structured run events. NewRunner installs one;
	// replace it to silence or redirect.
	Logger *zap.Logger

	runID string
}

// NewRunner creates a runner for the given output folder.
func NewRunner(folder string, verbose bool) *Runner {
	return &Runner{
		Folder:  folder,
		Verbose: verbose,
		Logger:  newLogger(verbose),
		runID:   uuid.NewString(),
	}
}

func newLogger(verbose bool) *zap.Logger {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// SorterOutput returns the subfolder the sorter itself works in.
func (r *Runner) SorterOutput() string {
	return filepath.Join(r.Folder, sorterOutputName)
}

// InitializeFolder prepares the output folder for a run: checks the
// sorter is installed and the recording satisfies its requirements,
// creates the folder and its sorter_output subfolder, and serializes the
// recording descriptor. An existing folder is refused unless
// RemoveExisting is set. The recording must be descriptor-serializable.
func (r *Runner) InitializeFolder(s Sorter, rec core.Recording) error {
	if !s.IsInstalled() {
		return fmt.Errorf("%w: %s; install with:\n%s", ErrNotInstalled, s.Name(), s.InstallMessage())
	}
	if s.RequiresLocations() && rec.Probe() == nil {
		return fmt.Errorf("%w: %s; attach a probe to the recording", ErrNeedsLocations, s.Name())
	}

	if _, err := os.Stat(r.Folder); err == nil {
		if !r.RemoveExisting {
			return fmt.Errorf("%w: %s", ErrFolderExists, r.Folder)
		}
		if err := os.RemoveAll(r.Folder); err != nil {
			return fmt.Errorf("sorters: remove existing folder: %w", err)
		}
	}
	if err := os.MkdirAll(r.SorterOutput(), 0o755); err != nil {
		return fmt.Errorf("sorters: create output folder: %w", err)
	}

	if err := core.DumpRecording(rec, filepath.Join(r.Folder, recordingFile)); err != nil {
		return fmt.Errorf("sorters: recording cannot be sorted, it does not serialize to a descriptor: %w", err)
	}

	r.Logger.Info("initialized sorter folder",
		zap.String("sorter", s.Name()),
		zap.String("folder", r.Folder),
		zap.String("run_id", r.runID))
	return nil
}

// WriteParams merges overrides into the sorter's defaults, rejects
// unknown keys, and writes spikeinterface_params.json. It returns the
// resolved parameter set. A warning is logged when the recording is
// already filtered and the sorter's own filter is enabled.
func (r *Runner) WriteParams(s Sorter, rec core.Recording, overrides Params) (Params, error) {
	params := s.DefaultParams().clone()

	var invalid []string
	for k := range overrides {
		if _, ok := params[k]; !ok {
			invalid = append(invalid, k)
		}
	}
	if len(invalid) > 0 {
		valid := make([]string, 0, len(params))
		for k := range params {
			valid = append(valid, k)
		}
		return nil, fmt.Errorf("%w: %v (valid parameters: %v)", ErrInvalidParams, invalid, valid)
	}
	for k, v := range overrides {
		params[k] = v
	}

	if filtered, _ := rec.Annotations()["is_filtered"].(bool); filtered && params.Bool("filter") {
		r.Logger.Warn("recording is already filtered but the sorter filter is enabled",
			zap.String("sorter", s.Name()),
			zap.String("run_id", r.runID))
	}

	doc := paramsDoc{SorterName: s.Name(), SorterParams: params}
	if err := writeJSON(filepath.Join(r.Folder, paramsFile), doc); err != nil {
		return nil, err
	}
	return params, nil
}

// RunFromFolder executes the sorter named in the folder's params file and
// writes spikeinterface_log.json with the outcome. On failure the error
// chain is serialized into the log's error_trace and run_time stays
// null; when raiseError is set the failure also comes back as a
// *SortingError, otherwise it is only recorded. The sorter's own
// <name>.log inside sorter_output, if present, is scraped into
// runtime_trace.
func (r *Runner) RunFromFolder(ctx context.Context, raiseError bool) (float64, error) {
	var doc paramsDoc
	if err := readJSON(filepath.Join(r.Folder, paramsFile), &doc); err != nil {
		return 0, fmt.Errorf("sorters: read params file: %w", err)
	}
	s, err := Get(doc.SorterName)
	if err != nil {
		return 0, err
	}

	log := runLog{
		SorterName:    s.Name(),
		SorterVersion: s.Version(),
		Datetime:      time.Now().Format(time.RFC3339),
	}

	r.Logger.Info("running sorter",
		zap.String("sorter", s.Name()),
		zap.String("folder", r.Folder),
		zap.String("run_id", r.runID))

	t0 := time.Now()
	runErr := s.RunFromFolder(ctx, r.SorterOutput(), doc.SorterParams, r.Verbose)
	if runErr == nil {
		runTime := time.Since(t0).Seconds()
		log.RunTime = &runTime
	} else {
		log.Error = true
		log.ErrorTrace = errorChain(runErr)
	}

	log.RuntimeTrace = scrapeRuntimeTrace(filepath.Join(r.SorterOutput(), s.Name()+".log"))

	if err := writeJSON(filepath.Join(r.Folder, logFile), log); err != nil {
		return 0, err
	}

	if runErr != nil {
		r.Logger.Error("sorter run failed",
			zap.String("sorter", s.Name()),
			zap.String("run_id", r.runID),
			zap.Error(runErr))
		if raiseError {
			return 0, &SortingError{SorterName: s.Name(), Trace: log.ErrorTrace, Err: runErr}
		}
		return 0, nil
	}

	r.Logger.Info("sorter run finished",
		zap.String("sorter", s.Name()),
		zap.String("run_id", r.runID),
		zap.Float64("run_time", *log.RunTime))
	return *log.RunTime, nil
}

// Result is what a finished run hands back: the sorting itself, the
// re-attached recording when its descriptor still loads, and the raw
// contract documents of the run.
type Result struct {
	Sorting   core.Sorting
	Recording core.Recording

	RecordingInfo map[string]any
	ParamsInfo    map[string]any
	LogInfo       map[string]any
}

// ResultFromFolder reads back the sorting of a completed run. A folder
// without a log file yields ErrMissingLog; a logged failure yields the
// stored *SortingError.
func (r *Runner) ResultFromFolder() (*Result, error) {
	path := filepath.Join(r.Folder, logFile)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingLog, r.Folder)
	}
	var log runLog
	if err := readJSON(path, &log); err != nil {
		return nil, fmt.Errorf("sorters: read log file: %w", err)
	}
	if log.Error {
		return nil, &SortingError{SorterName: log.SorterName, Trace: log.ErrorTrace}
	}

	s, err := Get(log.SorterName)
	if err != nil {
		return nil, err
	}
	sorting, err := s.ResultFromFolder(r.SorterOutput())
	if err != nil {
		return nil, err
	}

	res := &Result{Sorting: sorting}
	if rec, err := core.LoadRecording(filepath.Join(r.Folder, recordingFile)); err == nil {
		res.Recording = rec
	}
	readJSONInto(filepath.Join(r.Folder, recordingFile), &res.RecordingInfo)
	readJSONInto(filepath.Join(r.Folder, paramsFile), &res.ParamsInfo)
	readJSONInto(path, &res.LogInfo)
	return res, nil
}

// IsLogOK reports whether the folder holds the log of a successful run,
// probed by a non-null run_time.
func IsLogOK(folder string) bool {
	var log runLog
	if err := readJSON(filepath.Join(folder, logFile), &log); err != nil {
		return false
	}
	return log.RunTime != nil
}

func scrapeRuntimeTrace(path string) []string {
	trace := []string{}
	f, err := os.Open(path)
	if err != nil {
		return trace
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		trace = append(trace, strings.TrimSpace(sc.Text()))
	}
	return trace
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return fmt.Errorf("sorters: marshal %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("sorters: write %s: %w", filepath.Base(path), err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// readJSONInto fills the map when the file is present and parseable,
// used for the optional sorting-info attachments.
func readJSONInto(path string, m *map[string]any) {
	_ = readJSON(path, m)
}
