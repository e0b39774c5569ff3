// Package postprocess derives unit- and channel-level measures from a
// recording/sorting pair: spike-train correlograms, mean unit templates,
// template similarity, and channel noise spectra.
package postprocess
