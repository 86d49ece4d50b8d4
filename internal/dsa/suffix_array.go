package dsa

import "sort"

// SuffixArray indexes a text for substring lookup.
// Built by prefix doubling in O(n log² n); Lookup is O(m log n) for a
// pattern of length m.
type SuffixArray struct {
	text string
	sa   []int
}

// NewSuffixArray builds the suffix array of text.
func NewSuffixArray(text string) *SuffixArray {
	n := len(text)
	sa := make([]int, n)
	rank := make([]int, n)
	tmp := make([]int, n)
	for i := range sa {
		sa[i] = i
		rank[i] = int(text[i])
	}

	rankAt := func(i int) int {
		if i < n {
			return rank[i]
		}
		return -1
	}

	for k := 1; n > 1; k *= 2 {
		less := func(a, b int) bool {
			if rank[a] != rank[b] {
				return rank[a] < rank[b]
			}
			return rankAt(a+k) < rankAt(b+k)
		}
		sort.Slice(sa, func(i, j int) bool { return less(sa[i], sa[j]) })

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			tmp[sa[i]] = tmp[sa[i-1]]
			if less(sa[i-1], sa[i]) {
				tmp[sa[i]]++
			}
		}
		copy(rank, tmp)

		if rank[sa[n-1]] == n-1 {
			break
		}
	}
	return &SuffixArray{text: text, sa: sa}
}

// Len returns the indexed text length.
func (s *SuffixArray) Len() int { return len(s.text) }

// Lookup returns the start offsets of every occurrence of pattern in
// ascending order.
func (s *SuffixArray) Lookup(pattern string) []int {
	m := len(pattern)
	if m == 0 || len(s.sa) == 0 {
		return nil
	}
	prefix := func(i int) string {
		suffix := s.text[s.sa[i]:]
		if len(suffix) > m {
			return suffix[:m]
		}
		return suffix
	}
	left := sort.Search(len(s.sa), func(i int) bool { return prefix(i) >= pattern })
	right := sort.Search(len(s.sa), func(i int) bool { return prefix(i) > pattern })

	var out []int
	for i := left; i < right; i++ {
		if prefix(i) == pattern {
			out = append(out, s.sa[i])
		}
	}
	sort.Ints(out)
	return out
}
