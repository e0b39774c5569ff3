package compare

import (
	"fmt"
	"testing"

	"github.com/kjaeger/spikekit/core"
	"github.com/kjaeger/spikekit/postprocess"
)

// sliceTemplates splits a ground-truth recording into consecutive windows
// and computes unit templates for each window.
func sliceTemplates(t *testing.T, numSlices int) []*postprocess.Templates {
	t.Helper()

	gen := core.NewGroundTruthGenerator(
		core.WithDuration(6),
		core.WithNumChannels(8),
	)
	gen.SetSeed(42)
	rec, sorting, err := gen.Generate()
	if err != nil {
		t.Fatal(err)
	}

	width := rec.NumFrames() / numSlices
	out := make([]*postprocess.Templates, numSlices)
	for k := 0; k < numSlices; k++ {
		start, end := k*width, (k+1)*width
		recSlice, err := core.FrameSlice(rec, start, end)
		if err != nil {
			t.Fatal(err)
		}
		sortSlice, err := core.FrameSliceSorting(sorting, int64(start), int64(end))
		if err != nil {
			t.Fatal(err)
		}
		tmpl, err := postprocess.ComputeTemplates(recSlice, sortSlice, postprocess.TemplateOptions{})
		if err != nil {
			t.Fatal(err)
		}
		out[k] = tmpl
	}
	return out
}

func TestCompareTemplatesAcrossSlices(t *testing.T) {
	tmpls := sliceTemplates(t, 3)

	// units carry the same IDs in every slice, so the optimal matching
	// between two slices must be the identity
	res, err := CompareTemplates(tmpls[0], tmpls[1], TemplateMatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for u1, u2 := range res.HungarianMatch12 {
		if u2 != Unmatched && u1 != u2 {
			t.Errorf("unit %q matched to %q across slices", u1, u2)
		}
	}

	matched := 0
	for _, u2 := range res.HungarianMatch12 {
		if u2 != Unmatched {
			matched++
		}
	}
	if matched == 0 {
		t.Error("no unit matched across slices")
	}
}

func TestCompareMultipleGroupsAcrossSlices(t *testing.T) {
	tmpls := sliceTemplates(t, 3)

	sessions := make([]Session, len(tmpls))
	for k, tmpl := range tmpls {
		sessions[k] = Session{Name: fmt.Sprintf("slice%d", k), Templates: tmpl}
	}
	mc, err := CompareMultiple(sessions, TemplateMatchOptions{})
	if err != nil {
		t.Fatal(err)
	}

	// any group spanning several sessions must carry a single unit ID
	spanning := 0
	for _, g := range mc.Groups {
		if len(g.UnitIDs) < 2 {
			continue
		}
		spanning++
		var first string
		for _, id := range g.UnitIDs {
			if first == "" {
				first = id
			} else if id != first {
				t.Errorf("group %v mixes unit IDs", g.UnitIDs)
			}
		}
	}
	if spanning == 0 {
		t.Error("no unit group spans multiple sessions")
	}
}

func TestCompareMultipleValidation(t *testing.T) {
	tmpls := sliceTemplates(t, 2)
	if _, err := CompareMultiple([]Session{{Name: "only", Templates: tmpls[0]}}, TemplateMatchOptions{}); err == nil {
		t.Error("expected error for a single session")
	}
	if _, err := CompareTemplates(tmpls[0], tmpls[1], TemplateMatchOptions{MinSimilarity: 2}); err == nil {
		t.Error("expected error for out-of-range similarity threshold")
	}
}
