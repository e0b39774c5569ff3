package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kjaeger/spikekit/sorters"
)

var sortersCmd = &cobra.Command{
	Use:   "sorters",
	Short: "List registered spike sorters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "Name\tVersion\tParameter\tDescription\n")
		for _, name := range sorters.Names() {
			s, err := sorters.Get(name)
			if err != nil {
				return err
			}
			desc := s.ParamsDescription()
			keys := make([]string, 0, len(desc))
			for k := range desc {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			if len(keys) == 0 {
				fmt.Fprintf(w, "%s\t%s\t\t\n", s.Name(), s.Version())
				continue
			}
			for i, k := range keys {
				if i == 0 {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.Name(), s.Version(), k, desc[k])
				} else {
					fmt.Fprintf(w, "\t\t%s\t%s\n", k, desc[k])
				}
			}
		}
		return w.Flush()
	},
}
