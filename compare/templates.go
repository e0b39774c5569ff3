package compare

import (
	"errors"
	"fmt"

	"github.com/kjaeger/spikekit/postprocess"
)

// Errors returned by template comparison.
var (
	ErrNoSessions = errors.New("compare: need at least two sessions")
	ErrMinScore   = errors.New("compare: minimum score must be within [0, 1]")
)

// TemplateMatchOptions configures waveform-based comparison.
type TemplateMatchOptions struct {
	// MinSimilarity is the cosine similarity below which an optimal
	// match is discarded, default 0.7.
	MinSimilarity float64
}

// CompareTemplates scores every unit of a against every unit of b by
// cosine similarity of their mean waveforms and derives the same
// matchings as CompareSortings. Unlike spike-train comparison it does
// not require the two unit sets to share a time axis.
func CompareTemplates(a, b *postprocess.Templates, opts TemplateMatchOptions) (*Comparison, error) {
	minScore := opts.MinSimilarity
	if minScore == 0 {
		minScore = 0.7
	}
	if minScore < 0 || minScore > 1 {
		return nil, fmt.Errorf("%w: %g", ErrMinScore, opts.MinSimilarity)
	}

	sim, err := postprocess.TemplateSimilarity(a, b)
	if err != nil {
		return nil, err
	}
	cmp := &Comparison{
		UnitIDs1:  a.UnitIDs,
		UnitIDs2:  b.UnitIDs,
		Agreement: sim,
	}
	cmp.match(minScore)
	return cmp, nil
}

// Session is one sorted recording entering a multi-session comparison,
// represented by its unit templates.
type Session struct {
	Name      string
	Templates *postprocess.Templates
}

// UnitGroup collects the units that track the same putative neuron
// across sessions, keyed by session name.
type UnitGroup struct {
	UnitIDs map[string]string
}

// MultiComparison is the result of chaining pairwise template
// comparisons over several sessions.
type MultiComparison struct {
	Sessions []string
	Groups   []UnitGroup
}

// CompareMultiple compares consecutive sessions pairwise and merges the
// optimal matches into global unit groups. A unit matched in session k+1
// joins the group of its session-k counterpart; unmatched units open a
// group of their own. Session order therefore matters: units are chained
// through their immediate neighbors.
func CompareMultiple(sessions []Session, opts TemplateMatchOptions) (*MultiComparison, error) {
	if len(sessions) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNoSessions, len(sessions))
	}

	names := make([]string, len(sessions))
	for i, s := range sessions {
		names[i] = s.Name
	}

	// groupOf remembers which group each unit of the previous session
	// landed in.
	var groups []UnitGroup
	groupOf := make(map[string]int, len(sessions[0].Templates.UnitIDs))
	for _, id := range sessions[0].Templates.UnitIDs {
		groups = append(groups, UnitGroup{UnitIDs: map[string]string{names[0]: id}})
		groupOf[id] = len(groups) - 1
	}

	for k := 1; k < len(sessions); k++ {
		cmp, err := CompareTemplates(sessions[k-1].Templates, sessions[k].Templates, opts)
		if err != nil {
			return nil, fmt.Errorf("compare: sessions %q and %q: %w", names[k-1], names[k], err)
		}

		next := make(map[string]int, len(cmp.UnitIDs2))
		for _, id := range cmp.UnitIDs2 {
			prev := cmp.HungarianMatch21[id]
			if prev != Unmatched {
				g := groupOf[prev]
				groups[g].UnitIDs[names[k]] = id
				next[id] = g
				continue
			}
			groups = append(groups, UnitGroup{UnitIDs: map[string]string{names[k]: id}})
			next[id] = len(groups) - 1
		}
		groupOf = next
	}

	return &MultiComparison{Sessions: names, Groups: groups}, nil
}
