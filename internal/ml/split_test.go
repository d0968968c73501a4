package ml

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHoldoutSize(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{5, 2},
		{10, 2},
		{11, 3},
		{20, 4},
		{100, 20},
		{101, 21},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, holdoutSize(tc.n), "n=%d", tc.n)
	}
}

func TestSplitHoldoutTinySample(t *testing.T) {
	y := []int{1, 0, 1, 0}
	train, holdout := splitHoldout(y)

	assert.Equal(t, []int{0, 1, 2, 3}, train)
	assert.Equal(t, train, holdout, "below the cutoff both sets are the full data")
}

func TestSplitHoldoutSingleClass(t *testing.T) {
	y := make([]int, 10) // all zeros
	train, holdout := splitHoldout(y)

	assert.Len(t, holdout, 2)
	assert.Len(t, train, 8)
	seen := map[int]bool{}
	for _, i := range append(append([]int{}, train...), holdout...) {
		assert.False(t, seen[i], "index %d appears twice", i)
		seen[i] = true
	}
	assert.Len(t, seen, 10)
}

func TestSplitHoldoutStratified(t *testing.T) {
	// 12 positives, 8 negatives; holdout of 4 should carry both classes
	y := make([]int, 20)
	for i := 0; i < 12; i++ {
		y[i] = 1
	}
	train, holdout := splitHoldout(y)

	assert.Len(t, holdout, 4)
	assert.Len(t, train, 16)

	var pos, neg int
	for _, i := range holdout {
		if y[i] == 1 {
			pos++
		} else {
			neg++
		}
	}
	assert.NotZero(t, pos, "holdout must carry the positive class")
	assert.NotZero(t, neg, "holdout must carry the negative class")
}

func TestSplitHoldoutDeterministic(t *testing.T) {
	y := make([]int, 30)
	for i := 0; i < 18; i++ {
		y[i] = 1
	}
	trainA, holdA := splitHoldout(y)
	trainB, holdB := splitHoldout(y)

	assert.Equal(t, trainA, trainB)
	assert.Equal(t, holdA, holdB)
}
