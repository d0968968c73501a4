package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// LogisticRegression is a binary probabilistic classifier fitted by
// full-batch gradient descent over standardized features. It backs the
// no-show score, where a reasonably calibrated probability matters more
// than raw accuracy.
type LogisticRegression struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`

	// Standardization parameters captured at fit time; inputs are scaled
	// with these before scoring so serving uses the training distribution.
	Means []float64 `json:"means"`
	Stds  []float64 `json:"stds"`

	MaxIterations int     `json:"max_iterations"`
	LearningRate  float64 `json:"learning_rate"`
}

// NewLogisticRegression returns an unfitted model with the default
// optimizer settings.
func NewLogisticRegression() *LogisticRegression {
	return &LogisticRegression{MaxIterations: 1000, LearningRate: 0.1}
}

// Fit estimates weights on X and binary labels y. Descent stops early
// once the gradient norm falls under tolerance.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if len(X) == 0 {
		return fmt.Errorf("logistic regression: no training rows")
	}
	if len(X) != len(y) {
		return fmt.Errorf("logistic regression: %d rows but %d labels", len(X), len(y))
	}

	nFeatures := len(X[0])
	m.fitScaler(X, nFeatures)

	scaled := make([][]float64, len(X))
	for i, row := range X {
		scaled[i] = m.scale(row)
	}

	m.Weights = make([]float64, nFeatures)
	m.Bias = 0

	const tolerance = 1e-6
	grad := make([]float64, nFeatures)
	n := float64(len(scaled))

	for iter := 0; iter < m.MaxIterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var biasGrad float64

		for i, row := range scaled {
			p := sigmoid(floats.Dot(m.Weights, row) + m.Bias)
			residual := p - float64(y[i])
			floats.AddScaled(grad, residual, row)
			biasGrad += residual
		}
		floats.Scale(1/n, grad)
		biasGrad /= n

		floats.AddScaled(m.Weights, -m.LearningRate, grad)
		m.Bias -= m.LearningRate * biasGrad

		if floats.Norm(grad, 2) < tolerance && math.Abs(biasGrad) < tolerance {
			break
		}
	}
	return nil
}

// PredictProba returns [P(class 0), P(class 1)].
func (m *LogisticRegression) PredictProba(x []float64) ([2]float64, error) {
	if len(m.Weights) == 0 {
		return [2]float64{}, fmt.Errorf("logistic regression: not fitted")
	}
	if len(x) != len(m.Weights) {
		return [2]float64{}, fmt.Errorf("logistic regression: expected %d features, got %d", len(m.Weights), len(x))
	}

	p := sigmoid(floats.Dot(m.Weights, m.scale(x)) + m.Bias)
	return [2]float64{1 - p, p}, nil
}

// Predict returns the class with probability above one half.
func (m *LogisticRegression) Predict(x []float64) (int, error) {
	p, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	if p[1] >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

func (m *LogisticRegression) fitScaler(X [][]float64, nFeatures int) {
	m.Means = make([]float64, nFeatures)
	m.Stds = make([]float64, nFeatures)

	col := make([]float64, len(X))
	for j := 0; j < nFeatures; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		m.Means[j] = stat.Mean(col, nil)
		sd := stat.StdDev(col, nil)
		// constant columns scale to zero instead of dividing by zero
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.Stds[j] = sd
	}
}

func (m *LogisticRegression) scale(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - m.Means[j]) / m.Stds[j]
	}
	return out
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
