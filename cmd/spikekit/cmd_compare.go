package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kjaeger/spikekit/compare"
	"github.com/kjaeger/spikekit/sorters"
)

var (
	compareDelta    int64
	compareMinScore float64
)

var compareCmd = &cobra.Command{
	Use:   "compare FOLDER_A FOLDER_B",
	Short: "Compare the sortings of two finished runs",
	Long: "Read the results of two sorter output folders and print the\n" +
		"agreement and optimal unit matching between them.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		resA, err := loadResult(args[0])
		if err != nil {
			return err
		}
		resB, err := loadResult(args[1])
		if err != nil {
			return err
		}

		res, err := compare.CompareSortings(resA.Sorting, resB.Sorting, compare.Options{
			DeltaFrames:  compareDelta,
			MinAgreement: compareMinScore,
		})
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Unit A\tUnit B\tAgreement\n")
		for i, u1 := range res.UnitIDs1 {
			u2 := res.HungarianMatch12[u1]
			score := "-"
			if u2 != compare.Unmatched {
				for j, id := range res.UnitIDs2 {
					if id == u2 {
						score = fmt.Sprintf("%.3f", res.Agreement[i][j])
						break
					}
				}
			} else {
				u2 = "(unmatched)"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", u1, u2, score)
		}
		return w.Flush()
	},
}

func loadResult(folder string) (*sorters.Result, error) {
	runner := sorters.NewRunner(folder, false)
	res, err := runner.ResultFromFolder()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", folder, err)
	}
	return res, nil
}

func init() {
	compareCmd.Flags().Int64Var(&compareDelta, "delta", 10, "coincidence tolerance in frames")
	compareCmd.Flags().Float64Var(&compareMinScore, "min-agreement", 0.5, "score below which matches are dropped")
}
