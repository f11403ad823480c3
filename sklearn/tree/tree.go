// Package tree implements CART decision trees.
package tree

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"
)

const leafFeature = -1

// node is one entry of the flattened tree. Leaves have feature == leafFeature.
type node struct {
	feature   int
	threshold float64
	left      int
	right     int
	value     []float64 // class probabilities
	nSamples  int
	impurity  float64
}

// DecisionTreeClassifier is a CART classification tree.
// Compatible with scikit-learn's DecisionTreeClassifier
type DecisionTreeClassifier struct {
	state *model.StateManager

	// Hyperparameters
	criterion       string // "gini" or "entropy"
	splitter        string // "best" or "random"
	maxDepth        int    // 0 means unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string // "", "sqrt", "log2"; "" with maxFeaturesN == 0 means all
	maxFeaturesN    int
	randomState     *int64

	// Fitted attributes
	nodes              []node
	classes            []float64
	nClasses           int
	nFeatures          int
	featureImportances []float64
	depth              int
	nLeaves            int
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the impurity criterion ("gini" or "entropy").
func WithCriterion(c string) Option {
	return func(dt *DecisionTreeClassifier) { dt.criterion = c }
}

// WithSplitter sets the split strategy ("best" or "random").
func WithSplitter(s string) Option {
	return func(dt *DecisionTreeClassifier) { dt.splitter = s }
}

// WithMaxDepth limits the tree depth. 0 means unlimited.
func WithMaxDepth(d int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxDepth = d }
}

// WithMinSamplesSplit sets the minimum number of samples to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesSplit = n }
}

// WithMinSamplesLeaf sets the minimum number of samples in a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.minSamplesLeaf = n }
}

// WithMaxFeatures sets the features considered per split: "sqrt", "log2" or
// "" for all of them.
func WithMaxFeatures(s string) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = s; dt.maxFeaturesN = 0 }
}

// WithMaxFeaturesN considers exactly n features per split.
func WithMaxFeaturesN(n int) Option {
	return func(dt *DecisionTreeClassifier) { dt.maxFeatures = ""; dt.maxFeaturesN = n }
}

// WithRandomState fixes the seed for feature permutation and random splits.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) { dt.randomState = &seed }
}

// NewDecisionTreeClassifier creates a new DecisionTreeClassifier
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       "gini",
		splitter:        "best",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	return dt
}

// Name returns the estimator type name.
func (dt *DecisionTreeClassifier) Name() string { return "DecisionTreeClassifier" }

// SetRandomState implements model.Seeded.
func (dt *DecisionTreeClassifier) SetRandomState(seed int64) { dt.randomState = &seed }

func (dt *DecisionTreeClassifier) validate() error {
	if dt.criterion != "gini" && dt.criterion != "entropy" {
		return errors.NewValidationError("criterion", "must be 'gini' or 'entropy'", dt.criterion)
	}
	if dt.splitter != "best" && dt.splitter != "random" {
		return errors.NewValidationError("splitter", "must be 'best' or 'random'", dt.splitter)
	}
	if dt.minSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	}
	if dt.maxDepth < 0 {
		return errors.NewValidationError("max_depth", "must be non-negative", dt.maxDepth)
	}
	switch dt.maxFeatures {
	case "", "sqrt", "log2":
	default:
		return errors.NewValidationError("max_features", "must be 'sqrt', 'log2' or empty", dt.maxFeatures)
	}
	return nil
}

// Fit builds the tree from the training set (X, y).
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	if err := dt.validate(); err != nil {
		return err
	}
	n, _, err := model.CheckXy("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}

	classes := model.UniqueClasses(y)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return dt.FitIndices(model.AsDense(X), model.EncodeLabels(y, classes), classes, indices)
}

// FitIndices builds the tree from the rows of X listed in indices, which may
// repeat (bootstrap samples). yEnc holds class indices into classes for every
// row of X. Ensembles call it to share one encoded copy of the data.
func (dt *DecisionTreeClassifier) FitIndices(X *mat.Dense, yEnc []int, classes []float64, indices []int) error {
	if err := dt.validate(); err != nil {
		return err
	}
	if len(indices) == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "no samples to fit")
	}
	_, nFeatures := X.Dims()

	dt.state.Reset()
	dt.classes = classes
	dt.nClasses = len(classes)
	dt.nFeatures = nFeatures
	dt.nodes = dt.nodes[:0]
	dt.depth = 0
	dt.nLeaves = 0
	dt.featureImportances = make([]float64, nFeatures)

	b := &builder{
		dt:      dt,
		raw:     X.RawMatrix(),
		yEnc:    yEnc,
		rng:     random.New(dt.randomState),
		k:       dt.resolveMaxFeatures(nFeatures),
		pairs:   make([]pair, len(indices)),
		counts:  make([]float64, dt.nClasses),
		leftCnt: make([]float64, dt.nClasses),
	}
	b.build(slices.Clone(indices), 0)

	var total float64
	for _, v := range dt.featureImportances {
		total += v
	}
	if total > 0 {
		for j := range dt.featureImportances {
			dt.featureImportances[j] /= total
		}
	}

	dt.state.SetDimensions(nFeatures, len(indices))
	dt.state.SetFitted()
	return nil
}

func (dt *DecisionTreeClassifier) resolveMaxFeatures(nFeatures int) int {
	k := nFeatures
	switch {
	case dt.maxFeaturesN > 0:
		k = dt.maxFeaturesN
	case dt.maxFeatures == "sqrt":
		k = int(math.Sqrt(float64(nFeatures)))
	case dt.maxFeatures == "log2":
		k = int(math.Log2(float64(nFeatures)))
	}
	return max(1, min(k, nFeatures))
}

type pair struct {
	v float64
	i int
}

// builder holds the scratch buffers of one Fit call.
type builder struct {
	dt      *DecisionTreeClassifier
	raw     blas64.General
	yEnc    []int
	rng     *rand.Rand
	k       int
	pairs   []pair
	counts  []float64
	leftCnt []float64
}

type split struct {
	feature   int
	threshold float64
	pos       int // rows [0,pos) go left once indices are partitioned
	score     float64
}

func (b *builder) x(i, j int) float64 {
	return b.raw.Data[i*b.raw.Stride+j]
}

// build appends the subtree for indices and returns its node id.
func (b *builder) build(indices []int, depth int) int {
	dt := b.dt
	n := len(indices)

	counts := make([]float64, dt.nClasses)
	for _, i := range indices {
		counts[b.yEnc[i]]++
	}
	impurity := dt.impurity(counts, float64(n))

	id := len(dt.nodes)
	dt.nodes = append(dt.nodes, node{feature: leafFeature, nSamples: n, impurity: impurity})
	if depth > dt.depth {
		dt.depth = depth
	}

	isLeaf := (dt.maxDepth > 0 && depth >= dt.maxDepth) ||
		n < dt.minSamplesSplit ||
		n < 2*dt.minSamplesLeaf ||
		impurity <= 1e-12

	var best split
	found := false
	if !isLeaf {
		best, found = b.findSplit(indices)
	}

	if !found {
		value := make([]float64, dt.nClasses)
		for k, c := range counts {
			value[k] = c / float64(n)
		}
		dt.nodes[id].value = value
		dt.nLeaves++
		return id
	}

	// partition indices around the chosen threshold
	lo, hi := 0, n-1
	for lo <= hi {
		if b.x(indices[lo], best.feature) <= best.threshold {
			lo++
		} else {
			indices[lo], indices[hi] = indices[hi], indices[lo]
			hi--
		}
	}
	left, right := indices[:lo], indices[lo:]

	leftImp := dt.impurity(b.countOf(left), float64(len(left)))
	rightImp := dt.impurity(b.countOf(right), float64(len(right)))
	dt.featureImportances[best.feature] += float64(n)*impurity -
		float64(len(left))*leftImp - float64(len(right))*rightImp

	l := b.build(left, depth+1)
	r := b.build(right, depth+1)
	dt.nodes[id].feature = best.feature
	dt.nodes[id].threshold = best.threshold
	dt.nodes[id].left = l
	dt.nodes[id].right = r
	return id
}

func (b *builder) countOf(indices []int) []float64 {
	c := make([]float64, b.dt.nClasses)
	for _, i := range indices {
		c[b.yEnc[i]]++
	}
	return c
}

// findSplit draws features in random order and evaluates them until k
// non-constant features have been seen, or longer while no valid split has
// been found. Returns the split with the lowest weighted child impurity.
func (b *builder) findSplit(indices []int) (split, bool) {
	best := split{score: math.Inf(1)}
	found := false

	visited := 0
	for _, f := range b.rng.Perm(b.dt.nFeatures) {
		var s split
		var ok, constant bool
		if b.dt.splitter == "random" {
			s, ok, constant = b.randomSplit(indices, f)
		} else {
			s, ok, constant = b.bestSplit(indices, f)
		}
		if constant {
			continue
		}
		visited++
		if ok && s.score < best.score {
			best = s
			found = true
		}
		if visited >= b.k && found {
			break
		}
	}
	return best, found
}

// bestSplit sorts the node rows by feature f and scans every threshold
// between distinct consecutive values.
func (b *builder) bestSplit(indices []int, f int) (split, bool, bool) {
	dt := b.dt
	n := len(indices)
	pairs := b.pairs[:n]
	for p, i := range indices {
		pairs[p] = pair{v: b.x(i, f), i: i}
	}
	slices.SortFunc(pairs, func(a, c pair) int { return cmp.Compare(a.v, c.v) })
	if pairs[0].v == pairs[n-1].v {
		return split{}, false, true
	}

	total := b.counts
	clear(total)
	for _, p := range pairs {
		total[b.yEnc[p.i]]++
	}
	left := b.leftCnt
	clear(left)
	right := make([]float64, dt.nClasses)

	best := split{feature: f, score: math.Inf(1)}
	found := false
	minLeaf := dt.minSamplesLeaf
	for p := 0; p < n-1; p++ {
		left[b.yEnc[pairs[p].i]]++
		nl := p + 1
		if pairs[p].v == pairs[p+1].v || nl < minLeaf || n-nl < minLeaf {
			continue
		}
		for k := range right {
			right[k] = total[k] - left[k]
		}
		score := float64(nl)*dt.impurity(left, float64(nl)) +
			float64(n-nl)*dt.impurity(right, float64(n-nl))
		if score < best.score {
			best.score = score
			best.pos = nl
			best.threshold = pairs[p].v/2 + pairs[p+1].v/2
			if best.threshold == pairs[p+1].v {
				best.threshold = pairs[p].v
			}
			found = true
		}
	}
	return best, found, false
}

// randomSplit draws one threshold uniformly between the node's min and max
// of feature f.
func (b *builder) randomSplit(indices []int, f int) (split, bool, bool) {
	dt := b.dt
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range indices {
		v := b.x(i, f)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return split{}, false, true
	}
	threshold := lo + b.rng.Float64()*(hi-lo)
	if threshold == hi {
		threshold = lo
	}

	left := b.leftCnt
	clear(left)
	right := b.counts
	clear(right)
	nl := 0
	for _, i := range indices {
		if b.x(i, f) <= threshold {
			left[b.yEnc[i]]++
			nl++
		} else {
			right[b.yEnc[i]]++
		}
	}
	n := len(indices)
	if nl < dt.minSamplesLeaf || n-nl < dt.minSamplesLeaf {
		return split{}, false, false
	}
	score := float64(nl)*dt.impurity(left, float64(nl)) +
		float64(n-nl)*dt.impurity(right, float64(n-nl))
	return split{feature: f, threshold: threshold, pos: nl, score: score}, true, false
}

func (dt *DecisionTreeClassifier) impurity(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	var s float64
	if dt.criterion == "entropy" {
		for _, c := range counts {
			if c > 0 {
				p := c / n
				s -= p * math.Log2(p)
			}
		}
		return s
	}
	for _, c := range counts {
		p := c / n
		s += p * p
	}
	return 1 - s
}

// leaf returns the leaf reached by row.
func (dt *DecisionTreeClassifier) leaf(row []float64) *node {
	nd := &dt.nodes[0]
	for nd.feature != leafFeature {
		if row[nd.feature] <= nd.threshold {
			nd = &dt.nodes[nd.left]
		} else {
			nd = &dt.nodes[nd.right]
		}
	}
	return nd
}

func (dt *DecisionTreeClassifier) checkPredict(method string, X mat.Matrix) error {
	if err := dt.state.RequireFitted("DecisionTreeClassifier", method); err != nil {
		return err
	}
	_, f := X.Dims()
	if f != dt.nFeatures {
		return errors.NewDimensionError("DecisionTreeClassifier."+method, dt.nFeatures, f, 1)
	}
	return nil
}

// PredictProba returns the class probabilities of the leaf each row falls in.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("PredictProba", X); err != nil {
		return nil, err
	}
	Xd := model.AsDense(X)
	n, _ := Xd.Dims()
	proba := mat.NewDense(n, dt.nClasses, nil)
	dt.AddProba(Xd, proba, 0, n)
	return proba, nil
}

// AddProba adds the leaf probabilities of rows [start, end) of X into acc.
// Ensembles accumulate all their trees into one matrix this way.
func (dt *DecisionTreeClassifier) AddProba(X *mat.Dense, acc *mat.Dense, start, end int) {
	for i := start; i < end; i++ {
		value := dt.leaf(X.RawRowView(i)).value
		row := acc.RawRowView(i)
		for k, v := range value {
			row[k] += v
		}
	}
}

// Predict returns the most probable class of every row.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("Predict", X); err != nil {
		return nil, err
	}
	Xd := model.AsDense(X)
	n, _ := Xd.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = dt.classes[argmax(dt.leaf(Xd.RawRowView(i)).value)]
	}
	return model.ColumnOf(out), nil
}

// Score returns the mean accuracy on the given test data and labels
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	predictions, err := dt.Predict(X)
	if err != nil {
		return 0.0
	}
	nSamples, _ := X.Dims()
	correct := 0
	for i := 0; i < nSamples; i++ {
		if predictions.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(nSamples)
}

// Classes returns the labels seen during Fit.
func (dt *DecisionTreeClassifier) Classes() []float64 { return dt.classes }

// GetFeatureImportances returns the normalized total impurity decrease per feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return dt.featureImportances
}

// GetDepth returns the depth of the fitted tree (a single leaf has depth 0).
func (dt *DecisionTreeClassifier) GetDepth() int { return dt.depth }

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int { return dt.nLeaves }

// GetParams returns the model hyperparameters
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	var maxFeatures interface{} = dt.maxFeatures
	if dt.maxFeaturesN > 0 {
		maxFeatures = dt.maxFeaturesN
	} else if dt.maxFeatures == "" {
		maxFeatures = nil
	}
	return map[string]interface{}{
		"criterion":         dt.criterion,
		"splitter":          dt.splitter,
		"max_depth":         dt.maxDepth,
		"min_samples_split": dt.minSamplesSplit,
		"min_samples_leaf":  dt.minSamplesLeaf,
		"max_features":      maxFeatures,
		"random_state":      random.Param(dt.randomState),
	}
}

// SetParams sets the model hyperparameters
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var ok bool
		switch key {
		case "criterion":
			dt.criterion, ok = value.(string)
		case "splitter":
			dt.splitter, ok = value.(string)
		case "max_depth":
			dt.maxDepth, ok = value.(int)
		case "min_samples_split":
			dt.minSamplesSplit, ok = value.(int)
		case "min_samples_leaf":
			dt.minSamplesLeaf, ok = value.(int)
		case "max_features":
			switch v := value.(type) {
			case string:
				dt.maxFeatures, dt.maxFeaturesN, ok = v, 0, true
			case int:
				dt.maxFeatures, dt.maxFeaturesN, ok = "", v, true
			case nil:
				dt.maxFeatures, dt.maxFeaturesN, ok = "", 0, true
			}
		case "random_state":
			var seed int64
			seed, ok = value.(int64)
			dt.randomState = &seed
		default:
			return errors.NewValidationError(key, "unknown parameter", value)
		}
		if !ok {
			return errors.NewValidationError(key, "wrong type", value)
		}
	}
	return dt.validate()
}

func argmax(v []float64) int {
	best := 0
	for k := 1; k < len(v); k++ {
		if v[k] > v[best] {
			best = k
		}
	}
	return best
}
