package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kjaeger/spikekit/compare"
	"github.com/kjaeger/spikekit/core"
	"github.com/kjaeger/spikekit/sorters"
)

var (
	demoDuration float64
	demoChannels int
	demoUnits    int
	demoSeed     int64
)

var demoCmd = &cobra.Command{
	Use:   "demo OUT",
	Short: "Run the whole pipeline on synthetic data",
	Long: "Generate a ground-truth recording, sort it with the built-in\n" +
		"threshold sorter in OUT, and compare the result against the truth.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		gen := core.NewGroundTruthGenerator(
			core.WithDuration(demoDuration),
			core.WithNumChannels(demoChannels),
			core.WithNumUnits(demoUnits),
		)
		gen.SetSeed(demoSeed)
		rec, truth, err := gen.Generate()
		if err != nil {
			return err
		}
		fmt.Printf("generated %d channels, %.1f s, %d ground-truth units\n",
			rec.NumChannels(), demoDuration, truth.NumUnits())

		res, err := sorters.RunSorter(cmd.Context(), "threshold", rec, sorters.RunOptions{
			Folder:         filepath.Join(args[0], "threshold_output"),
			RemoveExisting: true,
		})
		if err != nil {
			return err
		}
		total, err := core.TotalSpikes(res.Sorting)
		if err != nil {
			return err
		}
		fmt.Printf("threshold sorter found %d units, %d spikes\n",
			res.Sorting.NumUnits(), total)

		cmpRes, err := compare.CompareSortings(truth, res.Sorting, compare.Options{})
		if err != nil {
			return err
		}
		matched := 0
		for _, u2 := range cmpRes.HungarianMatch12 {
			if u2 != compare.Unmatched {
				matched++
			}
		}
		fmt.Printf("%d of %d ground-truth units recovered\n", matched, truth.NumUnits())
		return nil
	},
}

func init() {
	demoCmd.Flags().Float64Var(&demoDuration, "duration", 10, "recording duration in seconds")
	demoCmd.Flags().IntVar(&demoChannels, "channels", 8, "number of channels")
	demoCmd.Flags().IntVar(&demoUnits, "units", 5, "number of ground-truth units")
	demoCmd.Flags().Int64Var(&demoSeed, "seed", 1, "random seed")
}
