package sorters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kjaeger/spikekit/core"
	_ "github.com/kjaeger/spikekit/extractors"
)

// fakeSorter is a registrable stub whose run outcome the tests control.
type fakeSorter struct {
	name    string
	fail    bool
	logLine string
}

func init() {
	Register(&fakeSorter{name: "fake-ok", logLine: "fake sorter at work"})
	Register(&fakeSorter{name: "fake-fail", fail: true, logLine: "about to fail"})
}

func (f *fakeSorter) Name() string    { return f.name }
func (f *fakeSorter) Version() string { return "0.0.1" }
func (f *fakeSorter) DefaultParams() Params {
	return Params{"alpha": 1.0, "filter": true}
}
func (f *fakeSorter) ParamsDescription() map[string]string {
	return map[string]string{"alpha": "test knob", "filter": "test filter flag"}
}
func (f *fakeSorter) RequiresLocations() bool { return false }
func (f *fakeSorter) IsInstalled() bool       { return true }
func (f *fakeSorter) InstallMessage() string  { return "" }

func (f *fakeSorter) SetupRecording(rec core.Recording, dir string, params Params, verbose bool) error {
	return nil
}

func (f *fakeSorter) RunFromFolder(ctx context.Context, dir string, params Params, verbose bool) error {
	if f.logLine != "" {
		if err := os.WriteFile(filepath.Join(dir, f.name+".log"), []byte(f.logLine+"\n"), 0o644); err != nil {
			return err
		}
	}
	if f.fail {
		return fmt.Errorf("sorters: fake backend broke: %w", errors.New("inner cause"))
	}
	return nil
}

func (f *fakeSorter) ResultFromFolder(dir string) (core.Sorting, error) {
	return core.NewTrainSorting(30000, map[string][]int64{"u0": {10, 20}})
}

func quietRunner(t *testing.T, folder string) *Runner {
	t.Helper()
	r := NewRunner(folder, false)
	r.Logger = zap.NewNop()
	return r
}

func groundTruth(t *testing.T) (core.Recording, core.Sorting) {
	t.Helper()
	gen := core.NewGroundTruthGenerator(
		core.WithDuration(1),
		core.WithNumChannels(4),
		core.WithNumUnits(2),
		core.WithNoiseLevel(5),
	)
	gen.SetSeed(7)
	rec, sorting, err := gen.Generate()
	require.NoError(t, err)
	return rec, sorting
}

func TestRunnerSuccessfulRun(t *testing.T) {
	rec, _ := groundTruth(t)
	folder := filepath.Join(t.TempDir(), "run")
	r := quietRunner(t, folder)

	s, err := Get("fake-ok")
	require.NoError(t, err)
	require.NoError(t, r.InitializeFolder(s, rec))
	_, err = r.WriteParams(s, rec, Params{"alpha": 2.0})
	require.NoError(t, err)

	runTime, err := r.RunFromFolder(context.Background(), true)
	require.NoError(t, err)
	require.GreaterOrEqual(t, runTime, 0.0)
	require.True(t, IsLogOK(folder))

	var log runLog
	require.NoError(t, readJSON(filepath.Join(folder, "spikeinterface_log.json"), &log))
	require.Equal(t, "fake-ok", log.SorterName)
	require.Equal(t, "0.0.1", log.SorterVersion)
	require.False(t, log.Error)
	require.NotNil(t, log.RunTime)
	require.Contains(t, log.RuntimeTrace, "fake sorter at work")

	res, err := r.ResultFromFolder()
	require.NoError(t, err)
	require.Equal(t, []string{"u0"}, res.Sorting.UnitIDs())
	require.NotNil(t, res.Recording)
	require.Equal(t, "fake-ok", res.ParamsInfo["sorter_name"])
	require.NotNil(t, res.LogInfo["run_time"])
}

func TestRunnerFailedRun(t *testing.T) {
	rec, _ := groundTruth(t)
	folder := filepath.Join(t.TempDir(), "run")
	r := quietRunner(t, folder)

	s, err := Get("fake-fail")
	require.NoError(t, err)
	require.NoError(t, r.InitializeFolder(s, rec))
	_, err = r.WriteParams(s, rec, nil)
	require.NoError(t, err)

	_, err = r.RunFromFolder(context.Background(), true)
	var sortErr *SortingError
	require.ErrorAs(t, err, &sortErr)
	require.Equal(t, "fake-fail", sortErr.SorterName)
	require.False(t, IsLogOK(folder))

	var log runLog
	require.NoError(t, readJSON(filepath.Join(folder, "spikeinterface_log.json"), &log))
	require.True(t, log.Error)
	require.Nil(t, log.RunTime)
	require.Contains(t, log.ErrorTrace, "inner cause")
	require.Contains(t, log.RuntimeTrace, "about to fail")

	// the stored failure surfaces again when reading the result
	_, err = r.ResultFromFolder()
	require.ErrorAs(t, err, &sortErr)

	// without raiseError the failure is only recorded
	r2 := quietRunner(t, filepath.Join(t.TempDir(), "run2"))
	require.NoError(t, r2.InitializeFolder(s, rec))
	_, err = r2.WriteParams(s, rec, nil)
	require.NoError(t, err)
	_, err = r2.RunFromFolder(context.Background(), false)
	require.NoError(t, err)
	require.False(t, IsLogOK(r2.Folder))
}

func TestInitializeFolderRefusesExisting(t *testing.T) {
	rec, _ := groundTruth(t)
	folder := filepath.Join(t.TempDir(), "run")
	require.NoError(t, os.MkdirAll(folder, 0o755))

	s, err := Get("fake-ok")
	require.NoError(t, err)

	r := quietRunner(t, folder)
	require.ErrorIs(t, r.InitializeFolder(s, rec), ErrFolderExists)

	r.RemoveExisting = true
	require.NoError(t, r.InitializeFolder(s, rec))
}

func TestWriteParamsRejectsUnknownKeys(t *testing.T) {
	rec, _ := groundTruth(t)
	r := quietRunner(t, filepath.Join(t.TempDir(), "run"))
	s, err := Get("fake-ok")
	require.NoError(t, err)
	require.NoError(t, r.InitializeFolder(s, rec))

	_, err = r.WriteParams(s, rec, Params{"bogus": 1})
	require.ErrorIs(t, err, ErrInvalidParams)
	require.Contains(t, err.Error(), "bogus")
	require.Contains(t, err.Error(), "alpha")
}

func TestResultFromFolderMissingLog(t *testing.T) {
	r := quietRunner(t, t.TempDir())
	_, err := r.ResultFromFolder()
	require.ErrorIs(t, err, ErrMissingLog)
}

func TestRunSorterThresholdEndToEnd(t *testing.T) {
	rec, truth := groundTruth(t)
	folder := filepath.Join(t.TempDir(), "threshold_run")

	res, err := RunSorter(context.Background(), "threshold", rec, RunOptions{Folder: folder})
	require.NoError(t, err)
	require.NotEmpty(t, res.Sorting.UnitIDs())

	total, err := core.TotalSpikes(res.Sorting)
	require.NoError(t, err)
	require.Greater(t, total, 0)

	truthTotal, err := core.TotalSpikes(truth)
	require.NoError(t, err)
	require.Greater(t, truthTotal, 0)

	require.True(t, IsLogOK(folder))
	require.FileExists(t, filepath.Join(folder, "spikeinterface_recording.json"))
	require.FileExists(t, filepath.Join(folder, "spikeinterface_params.json"))
}

func TestRunSorterDeleteOutputFolder(t *testing.T) {
	rec, _ := groundTruth(t)
	folder := filepath.Join(t.TempDir(), "threshold_run")

	_, err := RunSorter(context.Background(), "threshold", rec, RunOptions{
		Folder:             folder,
		DeleteOutputFolder: true,
	})
	require.NoError(t, err)
	require.NoDirExists(t, filepath.Join(folder, "sorter_output"))
	require.FileExists(t, filepath.Join(folder, "spikeinterface_log.json"))
}

func TestRunSorterUnknownName(t *testing.T) {
	rec, _ := groundTruth(t)
	_, err := RunSorter(context.Background(), "no-such-sorter", rec, RunOptions{Folder: t.TempDir()})
	require.ErrorIs(t, err, ErrUnknownSorter)
}
