package sorters

import (
	"context"
	"os"

	"github.com/kjaeger/spikekit/core"
)

// RunOptions configures a full RunSorter pipeline.
type RunOptions struct {
	// Folder is the output folder, default "<sorter>_output".
	Folder string

	// Params overrides the sorter's default parameters.
	Params Params

	// RemoveExisting wipes an existing output folder.
	RemoveExisting bool

	// DeleteOutputFolder removes the sorter_output subfolder after the
	// result has been read. The contract files stay.
	DeleteOutputFolder bool

	Verbose bool
}

// RunSorter drives the whole pipeline for a registered sorter:
// initialize the folder, resolve and write parameters, set up the
// recording, run, and read the result back.
func RunSorter(ctx context.Context, name string, rec core.Recording, opts RunOptions) (*Result, error) {
	s, err := Get(name)
	if err != nil {
		return nil, err
	}

	folder := opts.Folder
	if folder == "" {
		folder = name + "_output"
	}
	runner := NewRunner(folder, opts.Verbose)
	runner.RemoveExisting = opts.RemoveExisting

	if err := runner.InitializeFolder(s, rec); err != nil {
		return nil, err
	}
	params, err := runner.WriteParams(s, rec, opts.Params)
	if err != nil {
		return nil, err
	}
	if err := s.SetupRecording(rec, runner.SorterOutput(), params, opts.Verbose); err != nil {
		return nil, err
	}
	if _, err := runner.RunFromFolder(ctx, true); err != nil {
		return nil, err
	}

	res, err := runner.ResultFromFolder()
	if err != nil {
		return nil, err
	}
	if opts.DeleteOutputFolder {
		os.RemoveAll(runner.SorterOutput())
	}
	return res, nil
}
