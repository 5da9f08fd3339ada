package textutil

// OverlapStats summarizes shared vocabulary between two texts.
type OverlapStats struct {
	// Shared is the number of unique tokens present in both texts.
	Shared int
	// Ratio is Shared divided by the unique token count of the smaller text.
	Ratio float64
}

// Overlap computes the unique-token overlap between a reference text and a
// candidate text. Used to verify a generated draft stays anchored to its
// source material.
func Overlap(reference, candidate string) OverlapStats {
	refSet := tokenSet(reference)
	candSet := tokenSet(candidate)
	if len(refSet) == 0 || len(candSet) == 0 {
		return OverlapStats{}
	}

	smaller, larger := refSet, candSet
	if len(candSet) < len(refSet) {
		smaller, larger = candSet, refSet
	}
	shared := 0
	for token := range smaller {
		if _, ok := larger[token]; ok {
			shared++
		}
	}
	return OverlapStats{
		Shared: shared,
		Ratio:  float64(shared) / float64(len(smaller)),
	}
}

func tokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		set[token] = struct{}{}
	}
	return set
}
