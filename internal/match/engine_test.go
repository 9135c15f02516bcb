package match

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jkubale/namerecall/internal/gallery"
)

var testThresholds = Thresholds{
	AutoAccept:     0.85,
	AmbiguousFloor: 0.60,
	Exploratory:    0.45,
}

// probe2D is the reference probe all test vectors are measured against.
var probe2D = []float32{1, 0}

// vecWithSimilarity builds a 2-d unit vector whose normalized cosine
// similarity to probe2D is the given score.
func vecWithSimilarity(score float64) []float32 {
	cos := 2*score - 1
	sin := math.Sqrt(1 - cos*cos)
	return []float32{float32(cos), float32(sin)}
}

// nextTestSampleID keeps fixture sample IDs unique across identities;
// gallery.BuildIndex keys its graph by sample ID, so collisions are
// invalid input.
var nextTestSampleID int64

func testIdentity(name string, embeddings ...[]float32) gallery.Identity {
	id := gallery.Identity{
		ID:   uuid.New(),
		Name: name,
	}
	for _, emb := range embeddings {
		nextTestSampleID++
		id.Samples = append(id.Samples, gallery.FaceSample{
			ID:        nextTestSampleID,
			Embedding: emb,
			CreatedAt: time.Now(),
		})
	}
	return id
}

func TestFindMatchesSingleHighConfidence(t *testing.T) {
	// Gallery has one identity "Amy" with one sample at similarity 0.92.
	snapshot := gallery.NewSnapshot(2, []gallery.Identity{
		testIdentity("Amy", vecWithSimilarity(0.92)),
	})
	engine := NewEngine(testThresholds)

	matches := engine.FindMatches(probe2D, snapshot, 10, testThresholds.Exploratory)

	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Name != "Amy" {
		t.Errorf("Name = %q, want Amy", matches[0].Name)
	}
	if math.Abs(matches[0].Score-0.92) > 0.001 {
		t.Errorf("Score = %v, want 0.92", matches[0].Score)
	}
	if matches[0].Tier != TierHigh {
		t.Errorf("Tier = %q, want high", matches[0].Tier)
	}
}

func TestFindMatchesEmptyGallery(t *testing.T) {
	snapshot := gallery.NewSnapshot(2, nil)
	engine := NewEngine(testThresholds)

	matches := engine.FindMatches(probe2D, snapshot, 10, 0)

	if len(matches) != 0 {
		t.Fatalf("got %d matches from empty gallery, want 0", len(matches))
	}
}

func TestFindMatchesSkipsZeroSampleIdentities(t *testing.T) {
	snapshot := gallery.NewSnapshot(2, []gallery.Identity{
		testIdentity("NoFaces"), // no samples at all
		testIdentity("Bob", vecWithSimilarity(0.7)),
	})
	engine := NewEngine(testThresholds)

	matches := engine.FindMatches(probe2D, snapshot, 10, 0)

	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].Name != "Bob" {
		t.Errorf("Name = %q, want Bob", matches[0].Name)
	}
}

func TestFindMatchesMaxOverSamples(t *testing.T) {
	// Identity score is the best similarity over all owned samples.
	snapshot := gallery.NewSnapshot(2, []gallery.Identity{
		testIdentity("Carol", vecWithSimilarity(0.5), vecWithSimilarity(0.88), vecWithSimilarity(0.65)),
	})
	engine := NewEngine(testThresholds)

	matches := engine.FindMatches(probe2D, snapshot, 10, 0)

	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if math.Abs(matches[0].Score-0.88) > 0.001 {
		t.Errorf("Score = %v, want max sample score 0.88", matches[0].Score)
	}
	if matches[0].Tier != TierHigh {
		t.Errorf("Tier = %q, want high", matches[0].Tier)
	}
}

func TestFindMatchesSkipsMismatchedSamples(t *testing.T) {
	// One sample has the wrong dimensionality; it must be skipped without
	// aborting the query or hiding the identity's valid samples.
	bad := testIdentity("Dana")
	bad.Samples = []gallery.FaceSample{
		{ID: 1, Embedding: []float32{1, 0, 0, 0}}, // wrong dim
		{ID: 2, Embedding: vecWithSimilarity(0.75)},
	}
	snapshot := gallery.NewSnapshot(2, []gallery.Identity{bad})
	engine := NewEngine(testThresholds)

	matches := engine.FindMatches(probe2D, snapshot, 10, 0)

	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if math.Abs(matches[0].Score-0.75) > 0.001 {
		t.Errorf("Score = %v, want 0.75 from the valid sample", matches[0].Score)
	}
}

func TestFindMatchesOnlyMismatchedSamples(t *testing.T) {
	bad := testIdentity("Eve")
	bad.Samples = []gallery.FaceSample{
		{ID: 1, Embedding: []float32{1, 0, 0, 0}},
	}
	snapshot := gallery.NewSnapshot(2, []gallery.Identity{bad})
	engine := NewEngine(testThresholds)

	matches := engine.FindMatches(probe2D, snapshot, 10, 0)

	if len(matches) != 0 {
		t.Fatalf("got %d matches, want 0 when every sample is rejected", len(matches))
	}
}

func TestFindMatchesThresholdAndOrdering(t *testing.T) {
	snapshot := gallery.NewSnapshot(2, []gallery.Identity{
		testIdentity("Low", vecWithSimilarity(0.3)),
		testIdentity("Mid", vecWithSimilarity(0.62)),
		testIdentity("Top", vecWithSimilarity(0.9)),
	})
	engine := NewEngine(testThresholds)

	matches := engine.FindMatches(probe2D, snapshot, 10, testThresholds.Exploratory)

	if len(matches) != 2 {
		t.Fatalf("got %d matches, want 2 above threshold 0.45", len(matches))
	}
	if matches[0].Name != "Top" || matches[1].Name != "Mid" {
		t.Errorf("order = [%s, %s], want [Top, Mid]", matches[0].Name, matches[1].Name)
	}
	for _, m := range matches {
		if m.Score < testThresholds.Exploratory {
			t.Errorf("match %s score %v below threshold", m.Name, m.Score)
		}
	}
}

func TestFindMatchesTopKTruncation(t *testing.T) {
	snapshot := gallery.NewSnapshot(2, []gallery.Identity{
		testIdentity("A", vecWithSimilarity(0.9)),
		testIdentity("B", vecWithSimilarity(0.8)),
		testIdentity("C", vecWithSimilarity(0.7)),
		testIdentity("D", vecWithSimilarity(0.6)),
	})
	engine := NewEngine(testThresholds)

	matches := engine.FindMatches(probe2D, snapshot, 2, 0)

	if len(matches) != 2 {
		t.Fatalf("got %d matches, want topK=2", len(matches))
	}
	if matches[0].Name != "A" || matches[1].Name != "B" {
		t.Errorf("order = [%s, %s], want [A, B]", matches[0].Name, matches[1].Name)
	}
}

func TestFindMatchesTieBreakByInsertionOrder(t *testing.T) {
	same := vecWithSimilarity(0.8)
	snapshot := gallery.NewSnapshot(2, []gallery.Identity{
		testIdentity("First", same),
		testIdentity("Second", same),
	})
	engine := NewEngine(testThresholds)

	// Ties must resolve the same way on every call.
	for i := 0; i < 5; i++ {
		matches := engine.FindMatches(probe2D, snapshot, 10, 0)
		if len(matches) != 2 {
			t.Fatalf("got %d matches, want 2", len(matches))
		}
		if matches[0].Name != "First" || matches[1].Name != "Second" {
			t.Fatalf("run %d: order = [%s, %s], want insertion order [First, Second]",
				i, matches[0].Name, matches[1].Name)
		}
	}
}

func TestClassifyTiers(t *testing.T) {
	tests := []struct {
		score float64
		want  Tier
	}{
		{0.99, TierHigh},
		{0.85, TierHigh}, // boundary is closed: exactly autoAccept is high
		{0.849, TierAmbiguous},
		{0.60, TierAmbiguous}, // floor is closed too
		{0.599, TierNone},
		{0.0, TierNone},
	}

	for _, tt := range tests {
		if got := testThresholds.Classify(tt.score); got != tt.want {
			t.Errorf("Classify(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestFindMatchesIndexedAgreesWithExact(t *testing.T) {
	identities := []gallery.Identity{
		testIdentity("A", vecWithSimilarity(0.9)),
		testIdentity("B", vecWithSimilarity(0.75)),
		testIdentity("C", vecWithSimilarity(0.5)),
	}
	snapshot := gallery.NewSnapshot(2, identities)
	index := gallery.BuildIndex(snapshot)
	engine := NewEngine(testThresholds)

	exact := engine.FindMatches(probe2D, snapshot, 3, testThresholds.Exploratory)
	indexed, err := engine.FindMatchesIndexed(probe2D, snapshot, index, 3, testThresholds.Exploratory)
	if err != nil {
		t.Fatalf("FindMatchesIndexed: %v", err)
	}

	if len(indexed) != len(exact) {
		t.Fatalf("indexed returned %d matches, exact %d", len(indexed), len(exact))
	}
	for i := range exact {
		if indexed[i].IdentityID != exact[i].IdentityID {
			t.Errorf("position %d: indexed %s, exact %s", i, indexed[i].Name, exact[i].Name)
		}
		if math.Abs(indexed[i].Score-exact[i].Score) > 1e-9 {
			t.Errorf("position %d: score %v vs %v", i, indexed[i].Score, exact[i].Score)
		}
	}
}
