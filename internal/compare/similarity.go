package compare

// Similarity scores how alike two product descriptions are, from 0 (unrelated) to 1
type Similarity interface {
	Score(a, b string) float64
}

// SimilarityFunc adapts a plain function to Similarity
type SimilarityFunc func(a, b string) float64

// Score calls f
func (f SimilarityFunc) Score(a, b string) float64 { return f(a, b) }

// DiceTokenSimilarity blends the Dice coefficient over character bigrams with the share
// of tokens the two descriptions have in common.
type DiceTokenSimilarity struct {
	DiceWeight  float64
	TokenWeight float64
}

// DefaultSimilarity weighs bigrams at 0.65 and tokens at 0.35
func DefaultSimilarity() DiceTokenSimilarity {
	return DiceTokenSimilarity{DiceWeight: 0.65, TokenWeight: 0.35}
}

// Score implements Similarity
func (s DiceTokenSimilarity) Score(a, b string) float64 {
	na, nb := NormalizeText(a), NormalizeText(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	dice := DiceCoefficient(na, nb)
	ta, tb := Tokenize(na), Tokenize(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return dice
	}

	set := make(map[string]struct{}, len(tb))
	for _, t := range tb {
		set[t] = struct{}{}
	}
	overlap := 0
	for _, t := range ta {
		if _, ok := set[t]; ok {
			overlap++
		}
	}
	longest := len(ta)
	if len(tb) > longest {
		longest = len(tb)
	}
	tokenScore := float64(overlap) / float64(longest)

	return s.DiceWeight*dice + s.TokenWeight*tokenScore
}

// DiceCoefficient is 2*|shared bigrams| / (|bigrams a| + |bigrams b|)
func DiceCoefficient(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	aPairs, bPairs := bigrams(a), bigrams(b)
	if len(aPairs) == 0 || len(bPairs) == 0 {
		return 0
	}

	bCount := map[string]int{}
	for _, p := range bPairs {
		bCount[p]++
	}
	inter := 0
	for _, p := range aPairs {
		if bCount[p] > 0 {
			inter++
			bCount[p]--
		}
	}

	return float64(2*inter) / float64(len(aPairs)+len(bPairs))
}

func bigrams(s string) []string {
	r := []rune(s)
	if len(r) < 2 {
		return nil
	}
	out := make([]string, 0, len(r)-1)
	for i := 0; i < len(r)-1; i++ {
		out = append(out, string(r[i:i+2]))
	}
	return out
}
