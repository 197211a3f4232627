// Package fuzzy implements the approximate string matching used by the reply
// cascade: unit-cost Levenshtein distance, per-word threshold matching, and
// the nearest-catalog-key scan.
package fuzzy

// Distance computes the Levenshtein edit distance between a and b: the
// minimum number of single-character insertions, deletions, or substitutions
// needed to transform a into b.
//
// Two rolling rows are kept instead of the full matrix, giving
// O(len(a)·len(b)) time and O(min(len(a),len(b))) space.
func Distance(a, b string) int {
	if a == b {
		return 0
	}
	// Keep the rows sized by the shorter string.
	if len(a) < len(b) {
		a, b = b, a
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
			ins := curr[j-1] + 1
			del := prev[j] + 1
			sub := prev[j-1] + cost

			m := ins
			if del < m {
				m = del
			}
			if sub < m {
				m = sub
			}
			curr[j] = m
		}
		prev, curr = curr, prev
	}

	return prev[len(b)]
}

// WordMatch reports whether word is within maxDist edits of target. Used for
// short keyword detection with small fixed thresholds (1-2).
func WordMatch(word, target string, maxDist int) bool {
	return Distance(word, target) <= maxDist
}

// AnyWordMatch reports whether any of words is within maxDist edits of target.
func AnyWordMatch(words []string, target string, maxDist int) bool {
	for _, w := range words {
		if WordMatch(w, target, maxDist) {
			return true
		}
	}
	return false
}

// NearestKey scans candidates in slice order and returns the one with the
// minimum edit distance to key. The first candidate encountered wins ties,
// so the caller's ordering is the tie-break. ok is false when candidates is
// empty.
func NearestKey(key string, candidates []string) (best string, dist int, ok bool) {
	for _, c := range candidates {
		d := Distance(key, c)
		if !ok || d < dist {
			best, dist, ok = c, d, true
		}
	}
	return best, dist, ok
}
