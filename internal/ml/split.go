package ml

import (
	"math"
	"math/rand"
)

// splitSeed fixes the shuffle used for the train/holdout split so
// repeated training runs over the same table produce the same model.
const splitSeed = 42

// minSplitRows is the cutoff below which splitting is pointless: with
// fewer than five labeled rows the model trains and evaluates on the
// full set, and the reported metric is diagnostic only.
const minSplitRows = 5

// holdoutSize returns the number of holdout rows for n labeled rows:
// the larger of 20% (rounded up) and two rows.
func holdoutSize(n int) int {
	size := int(math.Ceil(0.2 * float64(n)))
	if size < 2 {
		size = 2
	}
	return size
}

// splitHoldout partitions row indices into train and holdout sets.
//
// Below minSplitRows both returned slices are the full index set (no
// split). Otherwise the holdout takes holdoutSize(n) rows, stratified by
// label when both classes are present; a single-class target is never
// stratified, mirroring the degenerate-small-sample contract.
func splitHoldout(y []int) (train, holdout []int) {
	n := len(y)
	if n < minSplitRows {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all, all
	}

	size := holdoutSize(n)
	rng := rand.New(rand.NewSource(splitSeed))

	var classes [2][]int
	for i, label := range y {
		classes[label] = append(classes[label], i)
	}

	if len(classes[0]) == 0 || len(classes[1]) == 0 {
		// single class: plain shuffled split
		idx := rng.Perm(n)
		return idx[size:], idx[:size]
	}

	// stratified: each class contributes proportionally, remainder drawn
	// from the larger class
	frac := float64(size) / float64(n)
	for _, members := range classes {
		rng.Shuffle(len(members), func(i, j int) {
			members[i], members[j] = members[j], members[i]
		})
		take := int(math.Round(frac * float64(len(members))))
		if take >= len(members) {
			take = len(members) - 1
		}
		if take < 1 {
			take = 1
		}
		holdout = append(holdout, members[:take]...)
		train = append(train, members[take:]...)
	}

	// proportional rounding can land one row off the target; this keeps
	// the documented holdout size exact
	for len(holdout) > size {
		last := holdout[len(holdout)-1]
		holdout = holdout[:len(holdout)-1]
		train = append(train, last)
	}
	for len(holdout) < size && len(train) > 1 {
		last := train[len(train)-1]
		train = train[:len(train)-1]
		holdout = append(holdout, last)
	}

	return train, holdout
}
