package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kjaeger/spikekit/extractors"
	"github.com/kjaeger/spikekit/sorters"
)

// config is the optional spikekit.yaml file: per-sorter parameter
// defaults applied under any command-line overrides, plus a default
// extractor format.
type config struct {
	DefaultFormat string                    `yaml:"default_format"`
	SorterParams  map[string]map[string]any `yaml:"sorter_params"`
}

// loadConfig reads the config file. A missing file at the default
// location is not an error, an explicitly named missing file is.
func loadConfig(path string, explicit bool) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return &config{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, nil
}

// currentConfig loads the file named by --config, tolerating a missing
// file only when the flag was left at its default.
func currentConfig() (*config, error) {
	return loadConfig(configPath, rootCmd.PersistentFlags().Changed("config"))
}

// sorterParams merges the config defaults for a sorter with command-line
// key=value overrides.
func (c *config) sorterParams(sorter string, overrides []string) (sorters.Params, error) {
	params := sorters.Params{}
	for k, v := range c.SorterParams[sorter] {
		params[k] = v
	}
	for _, pair := range overrides {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not key=value", pair)
		}
		params[k] = parseScalar(v)
	}
	return params, nil
}

// parseScalar turns a command-line value into the type the params file
// would round-trip: bool, number, or string.
func parseScalar(v string) any {
	if b, err := strconv.ParseBool(v); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// extractorOptions parses key=value pairs for the extractor registry.
func extractorOptions(pairs []string) (extractors.Options, error) {
	opts := extractors.Options{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("option %q is not key=value", pair)
		}
		opts[k] = v
	}
	return opts, nil
}
