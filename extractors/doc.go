// Package extractors exposes file-format readers through one common
// interface. Each reader is a thin parameter-mapping shim: it parses the
// format's metadata, maps it onto a lazily-read core.Recording, and records
// the keyword arguments needed to re-open the file into the recording
// descriptor.
//
// Readers self-register with the package registry (and with the core
// descriptor loaders) in init, so importing this package for side effects
// is enough to resolve recordings dumped by the sorter runner:
//
//	_ "github.com/kjaeger/spikekit/extractors"
package extractors
