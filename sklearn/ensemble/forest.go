// Package ensemble provides RandomForestClassifier, a bagged ensemble of
// sklearn/tree decision trees with scikit-learn's default hyperparameters.
package ensemble

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/titanic/core/model"
	"github.com/YuminosukeSato/titanic/core/parallel"
	"github.com/YuminosukeSato/titanic/metrics"
	"github.com/YuminosukeSato/titanic/pkg/errors"
	"github.com/YuminosukeSato/titanic/sklearn/tree"
)

const modelName = "RandomForestClassifier"

// predictThreshold is the row count above which prediction is split across CPUs.
const predictThreshold = 512

var (
	_ model.Classifier      = (*RandomForestClassifier)(nil)
	_ model.FeatureImporter = (*RandomForestClassifier)(nil)
	_ model.ParameterGetter = (*RandomForestClassifier)(nil)
)

// RandomForestClassifier averages the class probabilities of decision trees
// fitted on bootstrap samples with random feature subsets at each split.
type RandomForestClassifier struct {
	state *model.StateManager

	nEstimators     int
	criterion       string
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	bootstrap       bool
	randomState     *int64
	nJobs           int

	estimators_ []*tree.DecisionTreeClassifier
	classes_    []int
	nFeatures_  int
}

// Option configures a RandomForestClassifier.
type Option func(*RandomForestClassifier)

// WithNEstimators sets the number of trees.
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithCriterion sets the split criterion of every tree: "gini" or "entropy".
func WithCriterion(criterion string) Option {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithMaxDepth limits the depth of every tree. A value <= 0 means unlimited.
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithMinSamplesSplit sets min_samples_split for every tree.
func WithMinSamplesSplit(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets min_samples_leaf for every tree.
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures sets the per-split feature subset: tree.MaxFeaturesSqrt (default),
// tree.MaxFeaturesLog2 or tree.MaxFeaturesAll.
func WithMaxFeatures(maxFeatures string) Option {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = maxFeatures }
}

// WithBootstrap toggles bootstrap sampling. When off every tree sees all rows.
func WithBootstrap(bootstrap bool) Option {
	return func(rf *RandomForestClassifier) { rf.bootstrap = bootstrap }
}

// WithRandomState makes Fit deterministic. Per-tree seeds are drawn in order
// from a source seeded with seed before any tree is fitted, so the result does
// not depend on NJobs or goroutine scheduling.
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestClassifier) { rf.randomState = &seed }
}

// WithNJobs sets the number of trees fitted concurrently. <= 0 uses every CPU.
func WithNJobs(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// NewRandomForestClassifier returns a forest with scikit-learn defaults:
// 100 trees, gini, unlimited depth, min_samples_split=2, min_samples_leaf=1,
// max_features="sqrt", bootstrap on, unseeded.
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		maxDepth:        -1,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     tree.MaxFeaturesSqrt,
		bootstrap:       true,
		nJobs:           -1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	return rf
}

// Fit trains nEstimators trees on X (n_samples × n_features) and y (n_samples × 1).
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) error {
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be at least 1", rf.nEstimators)
	}
	_, classes, err := tree.EncodeLabels("Fit", X, y)
	if err != nil {
		return err
	}

	Xd := mat.DenseCopyOf(X)
	yd := mat.DenseCopyOf(y)
	n, nFeatures := Xd.Dims()

	seed := time.Now().UnixNano()
	if rf.randomState != nil {
		seed = *rf.randomState
	}
	master := rand.New(rand.NewSource(seed))
	seeds := make([]int64, rf.nEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	estimators := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	errs := make([]error, rf.nEstimators)

	parallel.ParallelizeN(rf.nEstimators, rf.nJobs, func(start, end int) {
		for i := start; i < end; i++ {
			i := i
			errs[i] = errors.SafeExecute(fmt.Sprintf("%s.Fit[tree=%d]", modelName, i), func() error {
				dt := rf.newTree(seeds[i])
				if err := dt.FitSample(Xd, yd, rf.sampleIndices(n, seeds[i])); err != nil {
					return err
				}
				estimators[i] = dt
				return nil
			})
		}
	})
	for i, err := range errs {
		if err != nil {
			return errors.Wrapf(err, "fit tree %d", i)
		}
	}

	rf.state.Reset()
	rf.estimators_ = estimators
	rf.classes_ = classes
	rf.nFeatures_ = nFeatures
	rf.state.SetDimensions(nFeatures, n)
	rf.state.SetFitted()
	return nil
}

func (rf *RandomForestClassifier) newTree(seed int64) *tree.DecisionTreeClassifier {
	return tree.NewDecisionTreeClassifier(
		tree.WithCriterion(rf.criterion),
		tree.WithMaxDepth(rf.maxDepth),
		tree.WithMinSamplesSplit(rf.minSamplesSplit),
		tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
		tree.WithMaxFeatures(rf.maxFeatures),
		tree.WithRandomState(seed),
	)
}

// sampleIndices draws n rows with replacement, or returns every row when bootstrap is off.
func (rf *RandomForestClassifier) sampleIndices(n int, seed int64) []int {
	idx := make([]int, n)
	if !rf.bootstrap {
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	// offset so the bootstrap draw and the tree's feature sampling use different streams
	rng := rand.New(rand.NewSource(seed ^ 0x5deece66d))
	for i := range idx {
		idx[i] = rng.Intn(n)
	}
	return idx
}

// PredictProba returns the mean class probabilities over all trees.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequireFitted(modelName, "PredictProba"); err != nil {
		return nil, err
	}
	if err := rf.state.CheckFeatures("PredictProba", X); err != nil {
		return nil, err
	}

	n, c := X.Dims()
	k := len(rf.classes_)
	out := mat.NewDense(n, k, nil)
	if n == 0 {
		return out, nil
	}
	Xd := mat.DenseCopyOf(X)

	var (
		mu       sync.Mutex
		firstErr error
	)
	parallel.ParallelizeWithThreshold(n, predictThreshold, func(start, end int) {
		rows := Xd.Slice(start, end, 0, c)
		sum := mat.NewDense(end-start, k, nil)
		for _, dt := range rf.estimators_ {
			p, err := dt.PredictProba(rows)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			sum.Add(sum, p)
		}
		sum.Scale(1/float64(len(rf.estimators_)), sum)
		out.Slice(start, end, 0, k).(*mat.Dense).Copy(sum)
	})
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Predict returns the class with the highest mean probability for each row of X.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return tree.ArgmaxLabels(proba, rf.classes_), nil
}

// Score returns the mean accuracy on X and y.
func (rf *RandomForestClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := rf.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyScoreMatrix(y, pred)
}

// Classes returns the sorted class labels seen during fitting.
func (rf *RandomForestClassifier) Classes() []int {
	out := make([]int, len(rf.classes_))
	copy(out, rf.classes_)
	return out
}

// NFeatures returns the number of features seen during fitting.
func (rf *RandomForestClassifier) NFeatures() int {
	return rf.nFeatures_
}

// NEstimators returns the number of fitted trees.
func (rf *RandomForestClassifier) NEstimators() int {
	return len(rf.estimators_)
}

// Estimators returns the fitted trees in fit order. Each tree reports its own
// seed as random_state in GetParams.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	out := make([]*tree.DecisionTreeClassifier, len(rf.estimators_))
	copy(out, rf.estimators_)
	return out
}

// FeatureImportances returns the mean impurity-based importance over trees with
// at least one split, normalized to sum to 1.
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	out := make([]float64, rf.nFeatures_)
	used := 0
	for _, dt := range rf.estimators_ {
		if dt.GetNLeaves() <= 1 {
			continue
		}
		for j, v := range dt.GetFeatureImportances() {
			out[j] += v
		}
		used++
	}
	if used == 0 {
		return out
	}
	total := 0.0
	for j := range out {
		out[j] /= float64(used)
		total += out[j]
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}

// GetParams returns the hyperparameters using scikit-learn names.
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	params := map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         nil,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      nil,
		"bootstrap":         rf.bootstrap,
		"random_state":      nil,
		"n_jobs":            rf.nJobs,
	}
	if rf.maxDepth > 0 {
		params["max_depth"] = rf.maxDepth
	}
	if rf.maxFeatures != tree.MaxFeaturesAll {
		params["max_features"] = rf.maxFeatures
	}
	if rf.randomState != nil {
		params["random_state"] = *rf.randomState
	}
	return params
}
