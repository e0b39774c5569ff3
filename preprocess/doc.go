// Package preprocess provides lazy trace transformations: scaling, windowed
// automatic gain control, and the high-pass spatial filter used to suppress
// common-mode artifacts across densely spaced probe channels.
//
// The filter math itself (Butterworth design, biquad cascades) is owned by
// the external algo-dsp library; this package only orchestrates it across
// the spatial dimension: channel padding, cosine tapering, AGC and channel
// selection.
package preprocess
