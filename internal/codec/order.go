package codec

import (
	"sort"
	"strings"
)

// NaturalLess compares two page names treating digit runs as numbers,
// so "page-2" sorts before "page-10". Digit runs that are numerically
// equal but padded differently compare equal and scanning continues.
func NaturalLess(a, b string) bool {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		ca, cb := a[i], b[j]
		da, db := isDigit(ca), isDigit(cb)

		if da && db {
			ia, ib := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			na := strings.TrimLeft(a[ia:i], "0")
			nb := strings.TrimLeft(b[ib:j], "0")
			if len(na) != len(nb) {
				return len(na) < len(nb)
			}
			if na != nb {
				return na < nb
			}
			continue
		}

		if ca != cb {
			return ca < cb
		}
		i++
		j++
	}
	return len(a)-i < len(b)-j
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// SortPages orders page file names in place. A nil rule means the
// numeric-aware default; callers that already guarantee order simply
// skip the call.
func SortPages(paths []string, less func(a, b string) bool) {
	if less == nil {
		less = NaturalLess
	}
	sort.SliceStable(paths, func(i, j int) bool { return less(paths[i], paths[j]) })
}
