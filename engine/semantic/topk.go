package semantic

import "sort"

// topK returns the indices of the k highest scores, ordered by score
// descending with lower index winning ties. For small inputs a full sort is
// cheapest; for large inputs a quickselect partition first isolates the
// top-k candidate set so only that subset is sorted, O(n + k log k) instead
// of O(n log n).
func topK(scores []float64, k int) []int {
	n := len(scores)
	if n == 0 || k <= 0 {
		return nil
	}
	if k > n {
		k = n
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	// ranks higher: score desc, then original chunk order. Using the same
	// comparator for selection and the final sort keeps boundary ties
	// deterministic.
	ranksHigher := func(a, b int) bool {
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return a < b
	}

	if n > 2*k {
		selectTop(idx, k, ranksHigher)
		idx = idx[:k]
	}

	sort.Slice(idx, func(i, j int) bool { return ranksHigher(idx[i], idx[j]) })
	return idx[:k]
}

// selectTop partially orders idx so its first k elements are the k
// highest-ranked, in arbitrary order (Hoare-style quickselect).
func selectTop(idx []int, k int, ranksHigher func(a, b int) bool) {
	lo, hi := 0, len(idx)-1
	for lo < hi {
		p := partition(idx, lo, hi, ranksHigher)
		switch {
		case p == k-1:
			return
		case p < k-1:
			lo = p + 1
		default:
			hi = p - 1
		}
	}
}

func partition(idx []int, lo, hi int, ranksHigher func(a, b int) bool) int {
	// Median-of-three pivot guards against sorted input.
	mid := lo + (hi-lo)/2
	if ranksHigher(idx[mid], idx[lo]) {
		idx[lo], idx[mid] = idx[mid], idx[lo]
	}
	if ranksHigher(idx[hi], idx[lo]) {
		idx[lo], idx[hi] = idx[hi], idx[lo]
	}
	if ranksHigher(idx[hi], idx[mid]) {
		idx[mid], idx[hi] = idx[hi], idx[mid]
	}
	pivot := idx[mid]
	idx[mid], idx[hi] = idx[hi], idx[mid]

	store := lo
	for i := lo; i < hi; i++ {
		if ranksHigher(idx[i], pivot) {
			idx[store], idx[i] = idx[i], idx[store]
			store++
		}
	}
	idx[store], idx[hi] = idx[hi], idx[store]
	return store
}
