package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kjaeger/spikekit/extractors"
	"github.com/kjaeger/spikekit/postprocess"
)

var (
	infoFormat  string
	infoOpts    []string
	infoWithPSD bool
)

var infoCmd = &cobra.Command{
	Use:   "info PATH",
	Short: "Summarize a recording",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := currentConfig()
		if err != nil {
			return err
		}
		format := infoFormat
		if format == "" {
			format = cfg.DefaultFormat
		}
		if format == "" {
			return fmt.Errorf("no --format given and no default_format in config")
		}

		opts, err := extractorOptions(infoOpts)
		if err != nil {
			return err
		}
		rec, err := extractors.Open(format, args[0], opts)
		if err != nil {
			return err
		}

		fs := rec.SamplingFrequency()
		fmt.Printf("format:    %s\n", format)
		fmt.Printf("channels:  %d\n", rec.NumChannels())
		fmt.Printf("frames:    %d (%.2f s at %.1f Hz)\n",
			rec.NumFrames(), float64(rec.NumFrames())/fs, fs)
		if probe := rec.Probe(); probe != nil {
			fmt.Printf("probe:     %d contacts\n", len(probe.ChannelIDs))
		}
		for k, v := range rec.Annotations() {
			fmt.Printf("annotation %s: %v\n", k, v)
		}

		if !infoWithPSD {
			return nil
		}
		psd, err := postprocess.NoisePSD(rec, postprocess.PSDOptions{})
		if err != nil {
			return err
		}
		fmt.Printf("noise spectrum (dominant frequency per channel):\n")
		for ch, power := range psd.Power {
			peak, total := 0, 0.0
			for i, p := range power {
				total += p
				if p > power[peak] {
					peak = i
				}
			}
			fmt.Printf("  %s: %.1f Hz (total power %.3g)\n",
				rec.ChannelIDs()[ch], psd.FreqsHz[peak], total)
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().StringVar(&infoFormat, "format", "", "recording format (see extractor registry)")
	infoCmd.Flags().StringArrayVar(&infoOpts, "opt", nil, "extractor option key=value (repeatable)")
	infoCmd.Flags().BoolVar(&infoWithPSD, "psd", false, "estimate the per-channel noise spectrum")
}
