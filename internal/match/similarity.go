package match

// String-similarity primitives used by the fuzzy matcher. All three operate
// on runes so multi-byte input scores the same as ASCII.

// LevenshteinDistance is the classic dynamic-programming edit distance with
// unit costs for insert, delete, and substitute.
func LevenshteinDistance(s1, s2 string) int {
	a := []rune(s1)
	b := []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := 0; j <= len(b); j++ {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// LevenshteinSimilarity maps edit distance into [0,1]. Two empty strings are
// defined as identical.
func LevenshteinSimilarity(s1, s2 string) float64 {
	la := len([]rune(s1))
	lb := len([]rune(s2))
	if la == 0 && lb == 0 {
		return 1.0
	}
	longest := la
	if lb > longest {
		longest = lb
	}
	return 1.0 - float64(LevenshteinDistance(s1, s2))/float64(longest)
}

// JaroSimilarity implements the standard Jaro algorithm: matches within a
// half-length window, transpositions counted among matched runes in order.
func JaroSimilarity(s1, s2 string) float64 {
	a := []rune(s1)
	b := []rune(s2)
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	if string(a) == string(b) {
		return 1.0
	}

	window := maxInt(len(a), len(b))/2 - 1
	if window < 0 {
		window = 0
	}

	aMatched := make([]bool, len(a))
	bMatched := make([]bool, len(b))
	matches := 0

	for i := range a {
		lo := maxInt(0, i-window)
		hi := minInt2(i+window+1, len(b))
		for j := lo; j < hi; j++ {
			if bMatched[j] || a[i] != b[j] {
				continue
			}
			aMatched[i] = true
			bMatched[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := range a {
		if !aMatched[i] {
			continue
		}
		for !bMatched[k] {
			k++
		}
		if a[i] != b[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2.0
	return (m/float64(len(a)) + m/float64(len(b)) + (m-t)/m) / 3.0
}

const (
	jaroWinklerBoostThreshold = 0.7
	jaroWinklerPrefixScale    = 0.1
	jaroWinklerMaxPrefix      = 4
)

// JaroWinklerSimilarity boosts Jaro scores above the 0.7 threshold by a
// shared-prefix bonus of up to four runes, capped at 1.0.
func JaroWinklerSimilarity(s1, s2 string) float64 {
	jaro := JaroSimilarity(s1, s2)
	if jaro < jaroWinklerBoostThreshold {
		return jaro
	}

	a := []rune(s1)
	b := []rune(s2)
	prefix := 0
	for i := 0; i < minInt2(minInt2(len(a), len(b)), jaroWinklerMaxPrefix); i++ {
		if a[i] != b[i] {
			break
		}
		prefix++
	}

	jw := jaro + float64(prefix)*jaroWinklerPrefixScale*(1.0-jaro)
	if jw > 1.0 {
		jw = 1.0
	}
	return jw
}

func minInt(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

func minInt2(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
