package textdet

import (
	"cmp"
	"slices"
)

// SortReadingOrder orders regions top to bottom and, within a row, left to
// right. Two regions share a row when their vertical centers are less than
// half the shorter height apart.
func SortReadingOrder(regions []Region) {
	slices.SortStableFunc(regions, func(a, b Region) int {
		return cmp.Or(cmp.Compare(a.Box.Min.Y, b.Box.Min.Y), cmp.Compare(a.Box.Min.X, b.Box.Min.X))
	})
	for i := 0; i < len(regions); {
		j := i + 1
		for j < len(regions) && sameRow(regions[i], regions[j]) {
			j++
		}
		slices.SortStableFunc(regions[i:j], func(a, b Region) int {
			return cmp.Compare(a.Box.Min.X, b.Box.Min.X)
		})
		i = j
	}
}

func sameRow(a, b Region) bool {
	ca := a.Box.Min.Y + a.Box.Max.Y
	cb := b.Box.Min.Y + b.Box.Max.Y
	d := ca - cb
	if d < 0 {
		d = -d
	}
	// centers are doubled, so compare against the full shorter height
	return d < min(a.Box.Dy(), b.Box.Dy())
}
