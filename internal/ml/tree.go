package ml

import (
	"fmt"
	"sort"
)

// DecisionTree is a depth-bounded CART classifier for binary targets.
// The shallow depth keeps the auto-approval decision inspectable: every
// path from root to leaf is a readable rule over the feature vector.
//
// Nodes are stored flattened so the fitted tree serializes to JSON
// without pointer fixups.
type DecisionTree struct {
	Nodes           []TreeNode `json:"nodes"`
	MaxDepth        int        `json:"max_depth"`
	MinSamplesSplit int        `json:"min_samples_split"`
	NumFeatures     int        `json:"num_features"`

	importances []float64
}

// TreeNode is one node of the flattened tree. Leaf nodes have Feature -1
// and carry the training class counts their prediction is derived from.
type TreeNode struct {
	Feature     int     `json:"feature"`
	Threshold   float64 `json:"threshold"`
	Left        int     `json:"left"`
	Right       int     `json:"right"`
	ClassCounts [2]int  `json:"class_counts"`
}

const leafMarker = -1

// NewDecisionTree returns an unfitted tree with the given bounds.
func NewDecisionTree(maxDepth, minSamplesSplit int) *DecisionTree {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if minSamplesSplit < 2 {
		minSamplesSplit = 2
	}
	return &DecisionTree{MaxDepth: maxDepth, MinSamplesSplit: minSamplesSplit}
}

// Fit grows the tree on X (rows of feature vectors) and binary labels y.
// Splits are chosen by Gini impurity decrease; ties keep the first
// candidate in feature order, so fitting is deterministic.
func (t *DecisionTree) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("decision tree: no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("decision tree: %d rows but %d labels", len(X), len(y))
	}

	t.NumFeatures = len(X[0])
	t.Nodes = t.Nodes[:0]
	t.importances = make([]float64, t.NumFeatures)

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.grow(X, y, idx, 0)
	t.normalizeImportances()
	return nil
}

// grow appends the subtree for idx and returns its root node index.
func (t *DecisionTree) grow(X [][]float64, y []int, idx []int, depth int) int {
	counts := countClasses(y, idx)

	node := TreeNode{Feature: leafMarker, Left: leafMarker, Right: leafMarker, ClassCounts: counts}
	pos := len(t.Nodes)
	t.Nodes = append(t.Nodes, node)

	if depth >= t.MaxDepth || len(idx) < t.MinSamplesSplit || counts[0] == 0 || counts[1] == 0 {
		return pos
	}

	feature, threshold, gain, ok := t.bestSplit(X, y, idx)
	if !ok {
		return pos
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return pos
	}

	t.importances[feature] += float64(len(idx)) * gain

	leftPos := t.grow(X, y, left, depth+1)
	rightPos := t.grow(X, y, right, depth+1)

	t.Nodes[pos].Feature = feature
	t.Nodes[pos].Threshold = threshold
	t.Nodes[pos].Left = leftPos
	t.Nodes[pos].Right = rightPos
	return pos
}

// bestSplit scans every feature and every midpoint between adjacent
// distinct values, returning the split with the largest impurity
// decrease. ok is false when no split improves on the parent.
func (t *DecisionTree) bestSplit(X [][]float64, y []int, idx []int) (feature int, threshold, gain float64, ok bool) {
	parent := gini(countClasses(y, idx))
	n := float64(len(idx))

	values := make([]float64, 0, len(idx))
	for f := 0; f < t.NumFeatures; f++ {
		values = values[:0]
		for _, i := range idx {
			values = append(values, X[i][f])
		}
		sort.Float64s(values)

		for v := 1; v < len(values); v++ {
			if values[v] == values[v-1] {
				continue
			}
			mid := (values[v] + values[v-1]) / 2

			var leftCounts, rightCounts [2]int
			for _, i := range idx {
				if X[i][f] <= mid {
					leftCounts[y[i]]++
				} else {
					rightCounts[y[i]]++
				}
			}
			nLeft := float64(leftCounts[0] + leftCounts[1])
			nRight := float64(rightCounts[0] + rightCounts[1])
			if nLeft == 0 || nRight == 0 {
				continue
			}

			g := parent - (nLeft/n)*gini(leftCounts) - (nRight/n)*gini(rightCounts)
			if g > gain+1e-12 {
				feature, threshold, gain, ok = f, mid, g, true
			}
		}
	}
	return feature, threshold, gain, ok
}

// PredictProba returns [P(class 0), P(class 1)] from the leaf the vector
// lands in.
func (t *DecisionTree) PredictProba(x []float64) ([2]float64, error) {
	if len(x) != t.NumFeatures {
		return [2]float64{}, fmt.Errorf("decision tree: expected %d features, got %d", t.NumFeatures, len(x))
	}
	if len(t.Nodes) == 0 {
		return [2]float64{}, fmt.Errorf("decision tree: not fitted")
	}

	pos := 0
	for t.Nodes[pos].Feature != leafMarker {
		if x[t.Nodes[pos].Feature] <= t.Nodes[pos].Threshold {
			pos = t.Nodes[pos].Left
		} else {
			pos = t.Nodes[pos].Right
		}
	}

	counts := t.Nodes[pos].ClassCounts
	total := float64(counts[0] + counts[1])
	if total == 0 {
		return [2]float64{0.5, 0.5}, nil
	}
	return [2]float64{float64(counts[0]) / total, float64(counts[1]) / total}, nil
}

// Predict returns the majority class of the leaf.
func (t *DecisionTree) Predict(x []float64) (int, error) {
	p, err := t.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if p[1] >= p[0] {
		return 1, nil
	}
	return 0, nil
}

// FeatureImportances returns the normalized impurity-decrease importance
// per feature, summing to 1 when the tree has at least one split.
func (t *DecisionTree) FeatureImportances() []float64 {
	out := make([]float64, t.NumFeatures)
	copy(out, t.importances)
	return out
}

func (t *DecisionTree) normalizeImportances() {
	var sum float64
	for _, v := range t.importances {
		sum += v
	}
	if sum == 0 {
		return
	}
	for i := range t.importances {
		t.importances[i] /= sum
	}
}

func countClasses(y []int, idx []int) [2]int {
	var counts [2]int
	for _, i := range idx {
		counts[y[i]]++
	}
	return counts
}

func gini(counts [2]int) float64 {
	total := float64(counts[0] + counts[1])
	if total == 0 {
		return 0
	}
	p0 := float64(counts[0]) / total
	p1 := float64(counts[1]) / total
	return 1 - p0*p0 - p1*p1
}
