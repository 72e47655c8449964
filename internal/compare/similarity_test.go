package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiceCoefficient(t *testing.T) {
	assert.Equal(t, 1.0, DiceCoefficient("NIGHT", "NIGHT"))
	assert.Equal(t, 0.0, DiceCoefficient("", "NIGHT"))
	assert.Equal(t, 0.0, DiceCoefficient("A", "B"))
	// NI IG GH HT vs NA AC CH HT: one shared bigram
	assert.InDelta(t, 0.25, DiceCoefficient("NIGHT", "NACHT"), 1e-9)
}

func TestDiceTokenSimilarity(t *testing.T) {
	sim := DefaultSimilarity()

	assert.Equal(t, 1.0, sim.Score("Steel Rod 12mm", "steel-rod 12MM"))
	assert.Equal(t, 0.0, sim.Score("", "Steel Rod"))

	close := sim.Score("Hydraulic pump assembly", "Hydraulic pump assy")
	far := sim.Score("Hydraulic pump assembly", "Copper wire 2.5 sq mm")
	assert.GreaterOrEqual(t, close, DefaultThreshold)
	assert.Less(t, far, DefaultThreshold)
	assert.Greater(t, close, far)
}

func TestDiceTokenSimilarity_Symmetric(t *testing.T) {
	sim := DefaultSimilarity()
	a, b := "Ball bearing 6204 ZZ", "6204 bearing"
	assert.InDelta(t, sim.Score(a, b), sim.Score(b, a), 1e-9)
}

func TestSimilarityFunc(t *testing.T) {
	var s Similarity = SimilarityFunc(func(a, b string) float64 { return 0.42 })
	assert.Equal(t, 0.42, s.Score("x", "y"))
}
