package postprocess

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// ErrTemplateShape is returned when template sets cannot be compared.
var ErrTemplateShape = errors.New("postprocess: template shapes differ")

// TemplateSimilarity returns the cosine similarity between every unit pair
// of two template sets: sim[i][j] compares unit i of a with unit j of b.
// Both sets must share the waveform window and channel count.
func TemplateSimilarity(a, b *Templates) ([][]float64, error) {
	flatA, err := flattenTemplates(a)
	if err != nil {
		return nil, err
	}
	flatB, err := flattenTemplates(b)
	if err != nil {
		return nil, err
	}
	if len(flatA) > 0 && len(flatB) > 0 && len(flatA[0]) != len(flatB[0]) {
		return nil, fmt.Errorf("%w: %d vs %d values", ErrTemplateShape, len(flatA[0]), len(flatB[0]))
	}

	sim := make([][]float64, len(flatA))
	normB := make([]float64, len(flatB))
	for j, w := range flatB {
		normB[j] = math.Sqrt(vecmath.DotProduct(w, w))
	}
	for i, wa := range flatA {
		row := make([]float64, len(flatB))
		normA := math.Sqrt(vecmath.DotProduct(wa, wa))
		for j, wb := range flatB {
			denom := normA * normB[j]
			if denom == 0 {
				continue
			}
			row[j] = vecmath.DotProduct(wa, wb) / denom
		}
		sim[i] = row
	}
	return sim, nil
}

// flattenTemplates concatenates each unit waveform into one vector.
func flattenTemplates(t *Templates) ([][]float64, error) {
	out := make([][]float64, len(t.Waveforms))
	width := -1
	for u, wf := range t.Waveforms {
		n := 0
		for _, row := range wf {
			n += len(row)
		}
		if width == -1 {
			width = n
		} else if n != width {
			return nil, fmt.Errorf("%w: unit %d has %d values, want %d", ErrTemplateShape, u, n, width)
		}
		flat := make([]float64, 0, n)
		for _, row := range wf {
			flat = append(flat, row...)
		}
		out[u] = flat
	}
	return out, nil
}
