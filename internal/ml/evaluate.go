package ml

// ClassMetrics holds per-class precision, recall and F1 from a holdout
// evaluation.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Evaluation summarizes a model's holdout performance. When Diagnostic
// is set, the model was evaluated on its own training rows (the
// small-sample path) and the numbers are not a generalization estimate.
type Evaluation struct {
	Accuracy    float64         `json:"accuracy"`
	PerClass    [2]ClassMetrics `json:"per_class"`
	HoldoutRows int             `json:"holdout_rows"`
	Diagnostic  bool            `json:"diagnostic"`
}

// evaluate computes accuracy and per-class metrics for predictions
// against truth. Labels name the negative (class 0) and positive
// (class 1) classes, in that order. Classes absent from both truth and
// predictions score zero rather than NaN.
func evaluate(truth, predicted []int, labels [2]string) Evaluation {
	ev := Evaluation{HoldoutRows: len(truth)}

	correct := 0
	// confusion[actual][predicted]
	var confusion [2][2]int
	for i := range truth {
		confusion[truth[i]][predicted[i]]++
		if truth[i] == predicted[i] {
			correct++
		}
	}
	if len(truth) > 0 {
		ev.Accuracy = float64(correct) / float64(len(truth))
	}

	for class := 0; class < 2; class++ {
		tp := confusion[class][class]
		fp := confusion[1-class][class]
		fn := confusion[class][1-class]

		m := ClassMetrics{Label: labels[class], Support: tp + fn}
		if tp+fp > 0 {
			m.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			m.Recall = float64(tp) / float64(tp+fn)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		ev.PerClass[class] = m
	}
	return ev
}
