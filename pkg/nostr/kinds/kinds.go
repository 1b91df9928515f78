package kinds

import (
	"github.com/Hubmakerlabs/aionostr/pkg/nostr/kind"
	"golang.org/x/exp/slices"
)

type T []kind.T

func FromIntSlice(is []int) (k T) {
	for i := range is {
		k = append(k, kind.T(is[i]))
	}
	return
}

// Clone makes a new kinds.T with the same members.
func (ar T) Clone() (c T) { return slices.Clone(ar) }

// Contains returns true if the provided element is found in the kinds.T.
func (ar T) Contains(s kind.T) bool { return slices.Contains(ar, s) }

// Equals checks that the provided kinds.T has the same members in the same
// order.
func (ar T) Equals(t1 T) bool { return slices.Equal(ar, t1) }

// ToInts converts back to plain integers, mostly for printing and interop.
func (ar T) ToInts() (is []int) {
	is = make([]int, len(ar))
	for i := range ar {
		is[i] = int(ar[i])
	}
	return
}
