package index

import "sort"

// clampPositions returns the sub-slice of an ascending position list
// falling within [left, right), found by bisection on both ends. The
// result aliases the input.
func clampPositions(positions []int, left, right int) []int {
	lo := sort.SearchInts(positions, left)
	hi := sort.SearchInts(positions, right)
	return positions[lo:hi]
}

// intersectPositions merges two ascending position lists with a two-pointer
// walk, emitting positions present in both, and stops once need positions
// have been emitted. Work is O(need + scanned), never more than the
// combined list lengths.
func intersectPositions(a, b []int, need int) []int {
	if need <= 0 {
		return nil
	}
	result := make([]int, 0, min(need, min(len(a), len(b))))
	i, j := 0, 0
	for i < len(a) && j < len(b) && len(result) < need {
		if a[i] == b[j] {
			result = append(result, a[i])
			i++
			j++
		} else if a[i] < b[j] {
			i++
		} else {
			j++
		}
	}
	return result
}
