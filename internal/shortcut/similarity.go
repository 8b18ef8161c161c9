package shortcut

import "strings"

// JaroWinkler computes the Jaro-Winkler similarity of a and b in [0,1],
// used to pick the best filename match when renaming a shortcut whose
// title changed.
func JaroWinkler(a, b string) float64 {
	jaro := jaroSimilarity(a, b)
	if jaro == 0 {
		return 0
	}

	const scalingFactor = 0.1
	const maxPrefix = 4

	prefixLen := 0
	for i := 0; i < len(a) && i < len(b) && i < maxPrefix; i++ {
		if a[i] != b[i] {
			break
		}
		prefixLen++
	}

	return jaro + float64(prefixLen)*scalingFactor*(1-jaro)
}

func jaroSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	matchDistance := max(len(a), len(b))/2 - 1
	if matchDistance < 0 {
		matchDistance = 0
	}

	aMatches := make([]bool, len(a))
	bMatches := make([]bool, len(b))

	matches := 0
	for i := 0; i < len(a); i++ {
		start := max(0, i-matchDistance)
		end := min(len(b)-1, i+matchDistance)
		for j := start; j <= end; j++ {
			if bMatches[j] || a[i] != b[j] {
				continue
			}
			aMatches[i] = true
			bMatches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	var transpositions int
	k := 0
	for i := 0; i < len(a); i++ {
		if !aMatches[i] {
			continue
		}
		for !bMatches[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}
	transpositions /= 2

	m := float64(matches)
	return (m/float64(len(a)) + m/float64(len(b)) + (m-float64(transpositions))/m) / 3.0
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// BestMatch returns the index in candidates with the highest Jaro-Winkler
// similarity to target, or -1 if candidates is empty.
func BestMatch(target string, candidates []string) int {
	best := -1
	bestScore := -1.0
	for i, c := range candidates {
		score := JaroWinkler(strings.ToLower(target), strings.ToLower(c))
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}
