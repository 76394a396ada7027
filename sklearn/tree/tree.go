// Package tree implements a CART decision tree classifier compatible with
// scikit-learn's DecisionTreeClassifier.
//
// Splits are chosen greedily by the best impurity decrease over midpoints
// between consecutive distinct feature values. The tree is also the base
// learner of sklearn/ensemble.RandomForestClassifier, which calls FitSample
// with a bootstrap sample and a per-tree seed.
package tree

import (
	"math"
	"math/rand"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/titanic/core/model"
	"github.com/YuminosukeSato/titanic/pkg/errors"
)

const modelName = "DecisionTreeClassifier"

// MaxFeatures values accepted by WithMaxFeatures.
const (
	MaxFeaturesAll  = ""
	MaxFeaturesSqrt = "sqrt"
	MaxFeaturesLog2 = "log2"
)

var _ model.Classifier = (*DecisionTreeClassifier)(nil)

// DecisionTreeClassifier is a binary or multiclass CART classifier.
type DecisionTreeClassifier struct {
	state *model.StateManager

	// hyperparameters
	criterion           string
	maxDepth            int // -1 means unlimited
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         string
	minImpurityDecrease float64
	randomState         *int64

	// fitted state
	root                *node
	classes_            []int
	nClasses_           int
	nFeatures_          int
	featureImportances_ []float64
	depth_              int
	nLeaves_            int
}

type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	proba     []float64
	impurity  float64
	nSamples  int
}

func (n *node) isLeaf() bool { return n.left == nil }

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the split quality measure: "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = criterion }
}

// WithMaxDepth limits the tree depth. A value <= 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		if depth <= 0 {
			depth = -1
		}
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples required at each leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMaxFeatures sets how many features are considered per split:
// MaxFeaturesAll, MaxFeaturesSqrt or MaxFeaturesLog2.
func WithMaxFeatures(maxFeatures string) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = maxFeatures }
}

// WithMinImpurityDecrease only splits a node if the weighted impurity decrease is at least v.
func WithMinImpurityDecrease(v float64) Option {
	return func(dt *DecisionTreeClassifier) { dt.minImpurityDecrease = v }
}

// WithRandomState seeds the feature sampling. Without it every Fit draws a fresh seed.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) { dt.randomState = &seed }
}

// NewDecisionTreeClassifier creates a tree with scikit-learn defaults:
// gini, unlimited depth, min_samples_split=2, min_samples_leaf=1, all features.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     MaxFeaturesAll,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Fit builds the tree from X (n_samples × n_features) and y (n_samples × 1).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	n, _ := X.Dims()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return dt.FitSample(X, y, idx)
}

// FitSample builds the tree from the rows of X listed in sampleIdx. Indices may repeat,
// which weights the row by its multiplicity. Classes are taken from the whole of y
// so that every tree of an ensemble shares the same class ordering.
func (dt *DecisionTreeClassifier) FitSample(X, y mat.Matrix, sampleIdx []int) error {
	if err := dt.validateParams(); err != nil {
		return err
	}

	labels, classes, err := encodeLabels("Fit", X, y)
	if err != nil {
		return err
	}
	if len(sampleIdx) == 0 {
		return errors.WithStack(errors.ErrEmptyData)
	}

	n, nFeatures := X.Dims()
	for _, i := range sampleIdx {
		if i < 0 || i >= n {
			return errors.NewValueError("FitSample", "sample index out of range")
		}
	}

	cols := make([][]float64, nFeatures)
	for j := range cols {
		cols[j] = mat.Col(nil, j, X)
		for _, v := range cols[j] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.NewValueError("Fit", "input contains NaN or infinity")
			}
		}
	}

	seed := time.Now().UnixNano()
	if dt.randomState != nil {
		seed = *dt.randomState
	}

	b := &builder{
		dt:          dt,
		cols:        cols,
		labels:      labels,
		nClasses:    len(classes),
		maxFeatures: resolveMaxFeatures(dt.maxFeatures, nFeatures),
		rng:         rand.New(rand.NewSource(seed)),
		importances: make([]float64, nFeatures),
		totalN:      float64(len(sampleIdx)),
	}

	samples := make([]int, len(sampleIdx))
	copy(samples, sampleIdx)

	dt.state.Reset()
	dt.root = b.build(samples, 0)
	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.nFeatures_ = nFeatures
	dt.depth_ = b.maxDepth
	dt.nLeaves_ = b.nLeaves
	dt.featureImportances_ = normalize(b.importances)

	dt.state.SetDimensions(nFeatures, len(sampleIdx))
	dt.state.SetFitted()
	return nil
}

// Predict returns the most probable class label for each row of X as an n × 1 matrix.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := dt.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return ArgmaxLabels(proba, dt.classes_), nil
}

// PredictProba returns the class distribution of the leaf each row of X falls into.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequireFitted(modelName, "PredictProba"); err != nil {
		return nil, err
	}
	if err := dt.state.CheckFeatures("PredictProba", X); err != nil {
		return nil, err
	}

	n, _ := X.Dims()
	out := mat.NewDense(n, dt.nClasses_, nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, dt.leaf(X, i).proba)
	}
	return out, nil
}

func (dt *DecisionTreeClassifier) leaf(X mat.Matrix, row int) *node {
	nd := dt.root
	for !nd.isLeaf() {
		if X.At(row, nd.feature) <= nd.threshold {
			nd = nd.left
		} else {
			nd = nd.right
		}
	}
	return nd
}

// Score returns the mean accuracy on X and y.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	return accuracy(dt, X, y)
}

// Classes returns the sorted class labels seen during fitting.
func (dt *DecisionTreeClassifier) Classes() []int {
	out := make([]int, len(dt.classes_))
	copy(out, dt.classes_)
	return out
}

// NFeatures returns the number of features seen during fitting.
func (dt *DecisionTreeClassifier) NFeatures() int {
	return dt.nFeatures_
}

// GetFeatureImportances returns the normalized total impurity decrease per feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	out := make([]float64, len(dt.featureImportances_))
	copy(out, dt.featureImportances_)
	return out
}

// FeatureImportances implements model.FeatureImporter.
func (dt *DecisionTreeClassifier) FeatureImportances() []float64 {
	return dt.GetFeatureImportances()
}

// GetDepth returns the depth of the fitted tree. A single leaf has depth 0.
func (dt *DecisionTreeClassifier) GetDepth() int {
	return dt.depth_
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	return dt.nLeaves_
}

// GetParams returns the hyperparameters using scikit-learn names.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"criterion":             dt.criterion,
		"max_depth":             nil,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"max_features":          nil,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"random_state":          nil,
	}
	if dt.maxDepth > 0 {
		params["max_depth"] = dt.maxDepth
	}
	if dt.maxFeatures != MaxFeaturesAll {
		params["max_features"] = dt.maxFeatures
	}
	if dt.randomState != nil {
		params["random_state"] = *dt.randomState
	}
	return params
}

// SetParams updates hyperparameters by their scikit-learn names.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		switch key {
		case "criterion":
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be a string", value)
			}
			dt.criterion = s
		case "max_depth":
			if value == nil {
				dt.maxDepth = -1
				continue
			}
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int or nil", value)
			}
			WithMaxDepth(v)(dt)
		case "min_samples_split":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			dt.minSamplesSplit = v
		case "min_samples_leaf":
			v, ok := value.(int)
			if !ok {
				return errors.NewValidationError(key, "must be an int", value)
			}
			dt.minSamplesLeaf = v
		case "max_features":
			if value == nil {
				dt.maxFeatures = MaxFeaturesAll
				continue
			}
			s, ok := value.(string)
			if !ok {
				return errors.NewValidationError(key, "must be \"sqrt\", \"log2\" or nil", value)
			}
			dt.maxFeatures = s
		case "min_impurity_decrease":
			v, ok := value.(float64)
			if !ok {
				return errors.NewValidationError(key, "must be a float64", value)
			}
			dt.minImpurityDecrease = v
		case "random_state":
			switch v := value.(type) {
			case nil:
				dt.randomState = nil
			case int:
				WithRandomState(int64(v))(dt)
			case int64:
				WithRandomState(v)(dt)
			default:
				return errors.NewValidationError(key, "must be an int or nil", value)
			}
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
	}
	return dt.validateParams()
}

func (dt *DecisionTreeClassifier) validateParams() error {
	switch {
	case dt.criterion != "gini" && dt.criterion != "entropy":
		return errors.NewValidationError("criterion", "must be \"gini\" or \"entropy\"", dt.criterion)
	case dt.minSamplesSplit < 2:
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	case dt.minSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	case dt.minImpurityDecrease < 0:
		return errors.NewValidationError("min_impurity_decrease", "must be non-negative", dt.minImpurityDecrease)
	}
	switch dt.maxFeatures {
	case MaxFeaturesAll, MaxFeaturesSqrt, MaxFeaturesLog2:
	default:
		return errors.NewValidationError("max_features", "must be \"sqrt\", \"log2\" or empty", dt.maxFeatures)
	}
	return nil
}

func resolveMaxFeatures(mode string, nFeatures int) int {
	var k int
	switch mode {
	case MaxFeaturesSqrt:
		k = int(math.Sqrt(float64(nFeatures)))
	case MaxFeaturesLog2:
		k = int(math.Log2(float64(nFeatures)))
	default:
		k = nFeatures
	}
	if k < 1 {
		k = 1
	}
	return k
}

func normalize(v []float64) []float64 {
	total := 0.0
	for _, x := range v {
		total += x
	}
	out := make([]float64, len(v))
	if total <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}

// builder holds the per-Fit scratch state.
type builder struct {
	dt          *DecisionTreeClassifier
	cols        [][]float64
	labels      []int
	nClasses    int
	maxFeatures int
	rng         *rand.Rand
	importances []float64
	totalN      float64
	maxDepth    int
	nLeaves     int
}

func (b *builder) counts(samples []int) []float64 {
	c := make([]float64, b.nClasses)
	for _, i := range samples {
		c[b.labels[i]]++
	}
	return c
}

func (b *builder) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	if b.dt.criterion == "entropy" {
		h := 0.0
		for _, c := range counts {
			if c > 0 {
				p := c / n
				h -= p * math.Log2(p)
			}
		}
		return h
	}
	g := 1.0
	for _, c := range counts {
		p := c / n
		g -= p * p
	}
	return g
}

func (b *builder) build(samples []int, depth int) *node {
	counts := b.counts(samples)
	n := float64(len(samples))
	nd := &node{
		impurity: b.impurity(counts, n),
		nSamples: len(samples),
		proba:    make([]float64, b.nClasses),
	}
	for k, c := range counts {
		nd.proba[k] = c / n
	}
	if depth > b.maxDepth {
		b.maxDepth = depth
	}

	dt := b.dt
	if (dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		len(samples) < dt.minSamplesSplit ||
		len(samples) < 2*dt.minSamplesLeaf ||
		nd.impurity <= 1e-12 {
		b.nLeaves++
		return nd
	}

	s, ok := b.bestSplit(samples, counts, nd.impurity)
	if !ok || (n/b.totalN)*s.improvement+1e-12 < dt.minImpurityDecrease {
		b.nLeaves++
		return nd
	}

	left := make([]int, 0, s.nLeft)
	right := make([]int, 0, len(samples)-s.nLeft)
	col := b.cols[s.feature]
	for _, i := range samples {
		if col[i] <= s.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	b.importances[s.feature] += n*nd.impurity -
		float64(len(left))*s.leftImpurity - float64(len(right))*s.rightImpurity

	nd.feature = s.feature
	nd.threshold = s.threshold
	nd.left = b.build(left, depth+1)
	nd.right = b.build(right, depth+1)
	return nd
}

type split struct {
	feature       int
	threshold     float64
	improvement   float64
	nLeft         int
	leftImpurity  float64
	rightImpurity float64
}

// bestSplit scans a random subset of maxFeatures non-constant features and
// returns the split with the largest impurity decrease.
func (b *builder) bestSplit(samples []int, counts []float64, parentImpurity float64) (split, bool) {
	nFeatures := len(b.cols)
	features := b.rng.Perm(nFeatures)

	n := len(samples)
	minLeaf := b.dt.minSamplesLeaf
	sorted := make([]int, n)
	leftCounts := make([]float64, b.nClasses)
	rightCounts := make([]float64, b.nClasses)

	var best split
	found := false
	visited := 0

	for _, f := range features {
		if visited >= b.maxFeatures {
			break
		}
		col := b.cols[f]

		copy(sorted, samples)
		sort.Slice(sorted, func(a, c int) bool { return col[sorted[a]] < col[sorted[c]] })
		if col[sorted[0]] == col[sorted[n-1]] {
			continue
		}
		visited++

		for k := range leftCounts {
			leftCounts[k] = 0
			rightCounts[k] = counts[k]
		}

		for i := 1; i < n; i++ {
			label := b.labels[sorted[i-1]]
			leftCounts[label]++
			rightCounts[label]--

			lo, hi := col[sorted[i-1]], col[sorted[i]]
			if lo == hi || i < minLeaf || n-i < minLeaf {
				continue
			}

			nl, nr := float64(i), float64(n-i)
			impL := b.impurity(leftCounts, nl)
			impR := b.impurity(rightCounts, nr)
			improvement := parentImpurity - (nl/float64(n))*impL - (nr/float64(n))*impR

			if !found || improvement > best.improvement {
				threshold := lo + (hi-lo)/2
				if threshold == hi {
					threshold = lo
				}
				best = split{
					feature:       f,
					threshold:     threshold,
					improvement:   improvement,
					nLeft:         i,
					leftImpurity:  impL,
					rightImpurity: impR,
				}
				found = true
			}
		}
	}
	return best, found
}
