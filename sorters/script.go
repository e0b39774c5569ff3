package sorters

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/kjaeger/spikekit/core"
)

// Errors returned by the script sorter.
var (
	ErrNoCommand   = errors.New("sorters: script sorter needs a command parameter")
	ErrBadSpikeRow = errors.New("sorters: malformed row in spikes.csv")
)

func init() {
	Register(&ScriptSorter{})
}

const (
	probeFile  = "probe.csv"
	spikesFile = "spikes.csv"
)

// ScriptSorter wraps an arbitrary external sorter executable. Setup
// materializes the recording as int16 traces with a JSON info sidecar
// and the probe as CSV; the command then runs inside the sorter output
// folder and must leave its detections in spikes.csv as frame,unit
// rows. Compiled sorter binaries and shell-script sorters both go
// through this path.
type ScriptSorter struct{}

func (*ScriptSorter) Name() string    { return "script" }
func (*ScriptSorter) Version() string { return "1.0.0" }

func (*ScriptSorter) DefaultParams() Params {
	return Params{
		"command": "",
	}
}

func (*ScriptSorter) ParamsDescription() map[string]string {
	return map[string]string{
		"command": "Command line to run inside the sorter output folder",
	}
}

func (*ScriptSorter) RequiresLocations() bool { return true }
func (*ScriptSorter) IsInstalled() bool       { return true }
func (*ScriptSorter) InstallMessage() string  { return "" }

func (*ScriptSorter) SetupRecording(rec core.Recording, sorterOutputDir string, params Params, verbose bool) error {
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
	if err := writeJSON(filepath.Join(sorterOutputDir, setupInfoFile), info); err != nil {
		return err
	}
	return writeProbeCSV(filepath.Join(sorterOutputDir, probeFile), rec.Probe())
}

func (*ScriptSorter) RunFromFolder(ctx context.Context, sorterOutputDir string, params Params, verbose bool) error {
	command := params.String("command", "")
	if command == "" {
		return ErrNoCommand
	}
	script := &ShellScript{
		Dir:     sorterOutputDir,
		Name:    "script",
		Content: command + "\n",
	}
	return script.Run(ctx)
}

func (*ScriptSorter) ResultFromFolder(sorterOutputDir string) (core.Sorting, error) {
	var info setupInfo
	if err := readJSON(filepath.Join(sorterOutputDir, setupInfoFile), &info); err != nil {
		return nil, fmt.Errorf("sorters: script: read setup info: %w", err)
	}

	path := filepath.Join(sorterOutputDir, spikesFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoResult, path)
		}
		return nil, fmt.Errorf("sorters: script: open spikes file: %w", err)
	}
	defer f.Close()

	trains := make(map[string][]int64)
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		frameStr, unit, ok := strings.Cut(line, ",")
		if !ok {
			return nil, fmt.Errorf("%w: line %d: %q", ErrBadSpikeRow, lineNo, line)
		}
		frame, err := strconv.ParseInt(strings.TrimSpace(frameStr), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %q", ErrBadSpikeRow, lineNo, line)
		}
		unit = strings.TrimSpace(unit)
		trains[unit] = append(trains[unit], frame)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("sorters: script: read spikes file: %w", err)
	}

	return core.NewTrainSorting(info.SamplingFrequency, trains)
}

// writeProbeCSV serializes channel geometry as "channel,x,y" rows.
func writeProbeCSV(path string, probe *core.Probe) error {
	if probe == nil {
		return fmt.Errorf("%w: recording has no probe", ErrNeedsLocations)
	}
	var b strings.Builder
	b.WriteString("channel,x,y\n")
	for i, id := range probe.ChannelIDs {
		x, y := probe.Locations[i][0], probe.Locations[i][1]
		fmt.Fprintf(&b, "%s,%g,%g\n", id, x, y)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("sorters: write probe file: %w", err)
	}
	return nil
}
