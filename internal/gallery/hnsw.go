package gallery

import (
	"errors"
	"sync"

	"github.com/coder/hnsw"
	"github.com/google/uuid"
)

// HNSW index parameters for face embeddings.
const (
	// hnswMaxNeighbors (M) is the maximum number of neighbors per node.
	// Higher values improve recall but increase memory and build time.
	hnswMaxNeighbors = 16

	// hnswSearchMultiplier requests more candidates from HNSW than asked
	// for, so enough survive the per-identity deduplication.
	hnswSearchMultiplier = 3
)

// Index is an approximate-nearest-neighbor accelerator over all samples of a
// snapshot. It narrows a probe down to a candidate identity set; exact
// max-over-samples scoring still produces the final ranking, so the index
// never changes which score an identity gets, only which identities are
// considered.
type Index struct {
	mu         sync.RWMutex
	graph      *hnsw.Graph[int64]
	sampleToID map[int64]uuid.UUID
}

// BuildIndex constructs an HNSW graph over every sample in the snapshot.
// Samples with a dimensionality different from the gallery's are skipped,
// matching the engine's per-sample rejection policy.
func BuildIndex(snapshot *Snapshot) *Index {
	g := hnsw.NewGraph[int64]()
	g.M = hnswMaxNeighbors
	g.Ml = 1.0 / float64(hnswMaxNeighbors) // standard HNSW formula
	g.Distance = hnsw.CosineDistance

	idx := &Index{
		graph:      g,
		sampleToID: make(map[int64]uuid.UUID),
	}

	for _, identity := range snapshot.Identities() {
		for _, sample := range identity.Samples {
			if len(sample.Embedding) != snapshot.Dim() {
				continue
			}
			g.Add(hnsw.MakeNode(sample.ID, sample.Embedding))
			idx.sampleToID[sample.ID] = identity.ID
		}
	}

	return idx
}

// Candidates returns the identities owning the samples nearest to the probe.
// The result is a set: an identity appears once no matter how many of its
// samples rank among the neighbors.
func (idx *Index) Candidates(probe []float32, limit int) (map[uuid.UUID]bool, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.graph == nil {
		return nil, errors.New("index not initialized")
	}
	if limit <= 0 {
		return map[uuid.UUID]bool{}, nil
	}

	neighbors := idx.graph.Search(probe, limit*hnswSearchMultiplier)

	candidates := make(map[uuid.UUID]bool, limit)
	for _, n := range neighbors {
		if id, ok := idx.sampleToID[n.Key]; ok {
			candidates[id] = true
		}
	}
	return candidates, nil
}

// Count returns the number of indexed samples.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.sampleToID)
}
