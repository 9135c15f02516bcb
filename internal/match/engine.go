// Package match ranks gallery identities against a probe embedding and
// classifies the confidence of each candidate.
package match

import (
	"sort"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/gallery"
)

// Tier is the confidence classification of a match score.
type Tier string

const (
	// TierHigh marks scores at or above the auto-accept threshold.
	TierHigh Tier = "high"
	// TierAmbiguous marks scores between the ambiguous floor and the
	// auto-accept threshold; surfaced but visually de-emphasized.
	TierAmbiguous Tier = "ambiguous"
	// TierNone marks scores below the ambiguous floor that still cleared
	// the caller's query threshold.
	TierNone Tier = "none"
)

// Thresholds holds the two cutoffs that partition scores into tiers, plus the
// inclusive threshold used by read-only quick scans.
type Thresholds struct {
	AutoAccept     float64
	AmbiguousFloor float64
	Exploratory    float64
}

// Classify assigns exactly one tier to a score. The auto-accept boundary is
// closed: score == AutoAccept is high.
func (t Thresholds) Classify(score float64) Tier {
	switch {
	case score >= t.AutoAccept:
		return TierHigh
	case score >= t.AmbiguousFloor:
		return TierAmbiguous
	default:
		return TierNone
	}
}

// Candidate is a transient match result. It is created fresh for every query
// and never cached across calls.
type Candidate struct {
	IdentityID uuid.UUID
	Name       string
	Score      float64
	Tier       Tier
}

// Engine scores probe embeddings against gallery snapshots. It is a pure,
// synchronous computation; it never blocks and never touches storage.
type Engine struct {
	thresholds Thresholds
}

func NewEngine(thresholds Thresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// Thresholds returns the engine's configured cutoffs.
func (e *Engine) Thresholds() Thresholds {
	return e.thresholds
}

// FindMatches ranks snapshot identities by similarity to the probe.
//
// An identity's score is the maximum similarity over all of its samples, so
// a person matches if any of their reference faces is close; this tolerates
// pose and lighting variation across stored samples. Identities with zero
// samples are skipped, as are individual samples whose dimensionality
// disagrees with the gallery's (a bad sample never aborts the query).
//
// The result is sorted by descending score with ties broken by gallery
// insertion order, filtered to scores >= threshold, and truncated to topK.
// No match is an empty list, not an error.
func (e *Engine) FindMatches(probe []float32, snapshot *gallery.Snapshot, topK int, threshold float64) []Candidate {
	return e.findMatches(probe, snapshot, nil, topK, threshold)
}

// FindMatchesIndexed is FindMatches restricted to the identities an HNSW
// index pre-selected for the probe. Scores and ordering are identical to the
// exact path for every identity that survives pre-selection.
func (e *Engine) FindMatchesIndexed(probe []float32, snapshot *gallery.Snapshot, index *gallery.Index, topK int, threshold float64) ([]Candidate, error) {
	candidates, err := index.Candidates(probe, topK)
	if err != nil {
		return nil, err
	}
	return e.findMatches(probe, snapshot, candidates, topK, threshold), nil
}

func (e *Engine) findMatches(probe []float32, snapshot *gallery.Snapshot, eligible map[uuid.UUID]bool, topK int, threshold float64) []Candidate {
	if snapshot.Empty() || topK <= 0 || len(probe) == 0 {
		return []Candidate{}
	}

	matches := make([]Candidate, 0, snapshot.Len())
	for i := range snapshot.Identities() {
		identity := &snapshot.Identities()[i]
		if !identity.HasSamples() {
			continue
		}
		if eligible != nil && !eligible[identity.ID] {
			continue
		}

		best := -1.0
		for _, sample := range identity.Samples {
			if len(sample.Embedding) != len(probe) {
				continue // reject the sample, not the query
			}
			if score := CosineSimilarity(probe, sample.Embedding); score > best {
				best = score
			}
		}
		if best < threshold {
			continue
		}

		matches = append(matches, Candidate{
			IdentityID: identity.ID,
			Name:       identity.Name,
			Score:      best,
			Tier:       e.thresholds.Classify(best),
		})
	}

	// Stable sort keeps gallery insertion order for equal scores.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
