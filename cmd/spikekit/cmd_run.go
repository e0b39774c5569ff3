package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kjaeger/spikekit/core"
	"github.com/kjaeger/spikekit/extractors"
	"github.com/kjaeger/spikekit/sorters"
)

var (
	runSorterName     string
	runFormat         string
	runParams         []string
	runOpts           []string
	runRemoveExisting bool
	runVerbose        bool
)

var runCmd = &cobra.Command{
	Use:   "run PATH OUT",
	Short: "Run a spike sorter on a recording",
	Long: "Open a recording through the extractor registry, run the chosen\n" +
		"sorter in the OUT folder, and report the resulting units.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		format := runFormat
		if format == "" {
			format = cfg.DefaultFormat
		}
		if format == "" {
			return fmt.Errorf("no --format given and no default_format in config")
		}

		opts, err := extractorOptions(runOpts)
		if err != nil {
			return err
		}
		rec, err := extractors.Open(format, args[0], opts)
		if err != nil {
			return err
		}

		params, err := cfg.sorterParams(runSorterName, runParams)
		if err != nil {
			return err
		}
		res, err := sorters.RunSorter(cmd.Context(), runSorterName, rec, sorters.RunOptions{
			Folder:         args[1],
			Params:         params,
			RemoveExisting: runRemoveExisting,
			Verbose:        runVerbose,
		})
		if err != nil {
			return err
		}

		total, err := core.TotalSpikes(res.Sorting)
		if err != nil {
			return err
		}
		fmt.Printf("sorted %s: %d units, %d spikes (folder %s)\n",
			args[0], res.Sorting.NumUnits(), total, args[1])
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runSorterName, "sorter", "threshold", "registered sorter name")
	runCmd.Flags().StringVar(&runFormat, "format", "", "recording format (see extractor registry)")
	runCmd.Flags().StringArrayVar(&runParams, "param", nil, "sorter parameter override key=value (repeatable)")
	runCmd.Flags().StringArrayVar(&runOpts, "opt", nil, "extractor option key=value (repeatable)")
	runCmd.Flags().BoolVar(&runRemoveExisting, "remove-existing", false, "wipe an existing output folder")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "verbose run logging")
}
