// Package sorters orchestrates spike-sorter runs through a folder-based
// handshake.
//
// A run lives in an output folder: the recording descriptor goes to
// spikeinterface_recording.json, the resolved parameters to
// spikeinterface_params.json, and the outcome of the run (version,
// timing, error trace, scraped runtime log) to spikeinterface_log.json.
// The sorter itself works entirely from the folder: everything it needs
// is written there before it runs, and its result is read back from
// there afterwards. The file names and keys follow the SpikeInterface
// convention so folders stay readable by existing tooling.
//
// Sorter implementations register themselves by name; RunSorter drives
// the whole pipeline for a registered name. External sorters are invoked
// through ShellScript, which tees their output into the log file the
// runner scrapes.
package sorters
