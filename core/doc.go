// Package core defines the domain model shared by the whole toolkit:
// recordings (multichannel extracellular traces), sortings (per-unit spike
// trains), probe geometry, and the JSON provenance descriptors used to
// re-open recordings from disk.
//
// Recordings and sortings are interfaces so that file-backed readers
// (package extractors), lazy preprocessing views (package preprocess) and
// in-memory data share one surface. Frames are integer sample indices at
// the recording sampling frequency.
package core
