package core

// EnsureLen returns a slice with the requested length, reusing buf capacity if possible.
func EnsureLen(buf []float64, n int) []float64 {
	if n <= 0 {
		return buf[:0]
	}
	if cap(buf) >= n {
		return buf[:n]
	}
	return make([]float64, n)
}

// NewMatrix allocates a frames x channels matrix backed by one contiguous slice.
func NewMatrix(frames, channels int) [][]float64 {
	if frames <= 0 || channels <= 0 {
		return nil
	}
	backing := make([]float64, frames*channels)
	out := make([][]float64, frames)
	for i := range out {
		out[i] = backing[i*channels : (i+1)*channels]
	}
	return out
}

// Column extracts channel ch of a frame-major matrix into dst, growing dst
// as needed, and returns it.
func Column(dst []float64, traces [][]float64, ch int) []float64 {
	dst = EnsureLen(dst, len(traces))
	for i, row := range traces {
		dst[i] = row[ch]
	}
	return dst
}

// SetColumn writes src back into channel ch of a frame-major matrix.
func SetColumn(traces [][]float64, ch int, src []float64) {
	n := len(traces)
	if len(src) < n {
		n = len(src)
	}
	for i := 0; i < n; i++ {
		traces[i][ch] = src[i]
	}
}
