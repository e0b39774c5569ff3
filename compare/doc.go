// Package compare measures agreement between spike-sorting results.
//
// Two sorting outputs of the same recording are compared by counting
// coincident spikes within a frame tolerance, turning the counts into an
// agreement matrix, and solving an optimal one-to-one unit matching over
// it. Template-based comparison applies the same matching to waveform
// similarity instead, which also works across recordings that do not
// share a time axis. CompareMultiple chains pairwise template
// comparisons over several sessions and groups units that track the same
// neuron.
package compare
