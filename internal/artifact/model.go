package artifact

import (
	"fmt"
)

// Model kinds understood by the loader
const (
	KindLinear   = "linear"
	KindForest   = "forest"
	KindConstant = "constant"
)

// Forest aggregation modes
const (
	AggregateMean = "mean"
	AggregateSum  = "sum"
)

// Model is a fitted multi-output regressor
type Model interface {
	Name() string
	Predict(x []float64) ([]float64, error)
}

// Document is the on-disk form of a model artifact
type Document struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	NFeatures int    `json:"n_features"`
	NOutputs  int    `json:"n_outputs"`

	// linear
	Coef      [][]float64 `json:"coef,omitempty"`
	Intercept []float64   `json:"intercept,omitempty"`

	// forest
	Trees        []Tree    `json:"trees,omitempty"`
	Aggregation  string    `json:"aggregation,omitempty"`
	BaseScore    []float64 `json:"base_score,omitempty"`
	LearningRate float64   `json:"learning_rate,omitempty"`

	// constant
	Value []float64 `json:"value,omitempty"`
}

// Tree is a binary regression tree stored as a flat node array rooted at 0
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Node is a split when Left >= 0, otherwise a leaf carrying Value
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

func (n Node) leaf() bool { return n.Left < 0 }

// Build validates the document and returns the model it describes
func (d *Document) Build() (Model, error) {
	if d.NFeatures <= 0 {
		return nil, fmt.Errorf("n_features must be positive, got %d", d.NFeatures)
	}
	if d.NOutputs <= 0 {
		return nil, fmt.Errorf("n_outputs must be positive, got %d", d.NOutputs)
	}

	switch d.Kind {
	case KindLinear:
		return d.buildLinear()
	case KindForest:
		return d.buildForest()
	case KindConstant:
		if len(d.Value) != d.NOutputs {
			return nil, fmt.Errorf("constant value has %d outputs, expected %d", len(d.Value), d.NOutputs)
		}
		return &Constant{name: d.Name, nFeatures: d.NFeatures, value: d.Value}, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", d.Kind)
	}
}

func (d *Document) buildLinear() (Model, error) {
	if len(d.Coef) != d.NOutputs {
		return nil, fmt.Errorf("coef has %d rows, expected %d", len(d.Coef), d.NOutputs)
	}
	for i, row := range d.Coef {
		if len(row) != d.NFeatures {
			return nil, fmt.Errorf("coef row %d has %d values, expected %d", i, len(row), d.NFeatures)
		}
	}
	intercept := d.Intercept
	if intercept == nil {
		intercept = make([]float64, d.NOutputs)
	}
	if len(intercept) != d.NOutputs {
		return nil, fmt.Errorf("intercept has %d values, expected %d", len(intercept), d.NOutputs)
	}
	return &Linear{name: d.Name, coef: d.Coef, intercept: intercept}, nil
}

func (d *Document) buildForest() (Model, error) {
	if len(d.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}

	agg := d.Aggregation
	if agg == "" {
		agg = AggregateMean
	}
	if agg != AggregateMean && agg != AggregateSum {
		return nil, fmt.Errorf("unknown aggregation %q", d.Aggregation)
	}

	base := d.BaseScore
	if base == nil {
		base = make([]float64, d.NOutputs)
	}
	if len(base) != d.NOutputs {
		return nil, fmt.Errorf("base_score has %d values, expected %d", len(base), d.NOutputs)
	}

	rate := d.LearningRate
	if rate == 0 {
		rate = 1
	}

	for ti, tree := range d.Trees {
		if err := validateTree(tree, d.NFeatures, d.NOutputs); err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
	}

	return &Forest{
		name:         d.Name,
		nFeatures:    d.NFeatures,
		nOutputs:     d.NOutputs,
		trees:        d.Trees,
		aggregation:  agg,
		baseScore:    base,
		learningRate: rate,
	}, nil
}

func validateTree(tree Tree, nFeatures, nOutputs int) error {
	if len(tree.Nodes) == 0 {
		return fmt.Errorf("no nodes")
	}
	for i, n := range tree.Nodes {
		if n.leaf() {
			if len(n.Value) != nOutputs {
				return fmt.Errorf("leaf %d has %d values, expected %d", i, len(n.Value), nOutputs)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d, out of range", i, n.Feature)
		}
		// Children must come after their parent, which also rules out cycles
		if n.Left <= i || n.Left >= len(tree.Nodes) || n.Right <= i || n.Right >= len(tree.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}

func checkInput(name string, x []float64, nFeatures int) error {
	if len(x) != nFeatures {
		return fmt.Errorf("model %s expects %d features, got %d", name, nFeatures, len(x))
	}
	return nil
}

// Linear computes coef·x + intercept for every output
type Linear struct {
	name      string
	coef      [][]float64
	intercept []float64
}

func (m *Linear) Name() string { return m.name }

func (m *Linear) Predict(x []float64) ([]float64, error) {
	if err := checkInput(m.name, x, len(m.coef[0])); err != nil {
		return nil, err
	}
	out := make([]float64, len(m.coef))
	for i, row := range m.coef {
		sum := m.intercept[i]
		for j, c := range row {
			sum += c * x[j]
		}
		out[i] = sum
	}
	return out, nil
}

// Forest evaluates a tree ensemble. Mean aggregation averages leaf values
// (random forest); sum aggregation adds base_score plus the scaled leaf sum
// (gradient boosting).
type Forest struct {
	name         string
	nFeatures    int
	nOutputs     int
	trees        []Tree
	aggregation  string
	baseScore    []float64
	learningRate float64
}

func (m *Forest) Name() string { return m.name }

func (m *Forest) Predict(x []float64) ([]float64, error) {
	if err := checkInput(m.name, x, m.nFeatures); err != nil {
		return nil, err
	}

	sum := make([]float64, m.nOutputs)
	for _, tree := range m.trees {
		leaf := walk(tree, x)
		for i, v := range leaf {
			sum[i] += v
		}
	}

	out := make([]float64, m.nOutputs)
	for i := range out {
		if m.aggregation == AggregateMean {
			out[i] = sum[i] / float64(len(m.trees))
		} else {
			out[i] = m.baseScore[i] + m.learningRate*sum[i]
		}
	}
	return out, nil
}

func walk(tree Tree, x []float64) []float64 {
	i := 0
	for {
		n := tree.Nodes[i]
		if n.leaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Constant ignores its input and always predicts the same vector
type Constant struct {
	name      string
	nFeatures int
	value     []float64
}

func (m *Constant) Name() string { return m.name }

func (m *Constant) Predict(x []float64) ([]float64, error) {
	if err := checkInput(m.name, x, m.nFeatures); err != nil {
		return nil, err
	}
	out := make([]float64, len(m.value))
	copy(out, m.value)
	return out, nil
}
