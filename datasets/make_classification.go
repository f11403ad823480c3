package datasets

import (
	"github.com/YuminosukeSato/scibench/core/random"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ClassificationConfig configures MakeClassification.
type ClassificationConfig struct {
	NSamples          int
	NFeatures         int
	NInformative      int
	NRedundant        int
	NClasses          int
	NClustersPerClass int
	FlipY             float64
	ClassSep          float64
	Shuffle           bool
	RandomState       *int64
}

// ClassificationOption configures MakeClassification.
type ClassificationOption func(*ClassificationConfig)

func WithNSamples(n int) ClassificationOption {
	return func(c *ClassificationConfig) { c.NSamples = n }
}

func WithNFeatures(n int) ClassificationOption {
	return func(c *ClassificationConfig) { c.NFeatures = n }
}

func WithNInformative(n int) ClassificationOption {
	return func(c *ClassificationConfig) { c.NInformative = n }
}

func WithNRedundant(n int) ClassificationOption {
	return func(c *ClassificationConfig) { c.NRedundant = n }
}

func WithNClasses(n int) ClassificationOption {
	return func(c *ClassificationConfig) { c.NClasses = n }
}

func WithNClustersPerClass(n int) ClassificationOption {
	return func(c *ClassificationConfig) { c.NClustersPerClass = n }
}

func WithFlipY(p float64) ClassificationOption {
	return func(c *ClassificationConfig) { c.FlipY = p }
}

func WithClassSep(s float64) ClassificationOption {
	return func(c *ClassificationConfig) { c.ClassSep = s }
}

func WithShuffle(s bool) ClassificationOption {
	return func(c *ClassificationConfig) { c.Shuffle = s }
}

func WithRandomState(seed int64) ClassificationOption {
	return func(c *ClassificationConfig) { c.RandomState = &seed }
}

// MakeClassification generates a random n-class problem. Each class is made
// of Gaussian clusters centred on vertices of a hypercube in the informative
// subspace; redundant features are random linear combinations of the
// informative ones and the remaining features are noise. A FlipY fraction
// of labels is reassigned at random.
//
// Defaults: 100 samples, 20 features, 2 informative, 2 redundant, 2 classes,
// 2 clusters per class, flip_y 0.01, class_sep 1, shuffled.
func MakeClassification(opts ...ClassificationOption) (*mat.Dense, *mat.VecDense, error) {
	c := ClassificationConfig{
		NSamples:          100,
		NFeatures:         20,
		NInformative:      2,
		NRedundant:        2,
		NClasses:          2,
		NClustersPerClass: 2,
		FlipY:             0.01,
		ClassSep:          1.0,
		Shuffle:           true,
	}
	for _, opt := range opts {
		opt(&c)
	}

	if c.NInformative+c.NRedundant > c.NFeatures {
		return nil, nil, errors.NewValidationError("n_features",
			"must be at least n_informative + n_redundant", c.NFeatures)
	}
	nClusters := c.NClasses * c.NClustersPerClass
	if c.NInformative < 62 && nClusters > 1<<c.NInformative {
		return nil, nil, errors.NewValidationError("n_classes * n_clusters_per_class",
			"must be smaller or equal 2**n_informative", nClusters)
	}
	if c.NSamples < 1 || c.NClasses < 2 {
		return nil, nil, errors.NewValidationError("n_samples", "need at least one sample and two classes", c.NSamples)
	}

	rng := random.New(c.RandomState)
	norm := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}

	// samples per cluster, remainder spread over the first clusters
	perCluster := make([]int, nClusters)
	for k := range perCluster {
		perCluster[k] = c.NSamples / nClusters
	}
	for k := 0; k < c.NSamples-(c.NSamples/nClusters)*nClusters; k++ {
		perCluster[k%nClusters]++
	}

	// distinct hypercube vertices scaled to ±class_sep
	space := uint64(1) << min(c.NInformative, 62)
	vertices := make([]uint64, 0, nClusters)
	seen := make(map[uint64]bool, nClusters)
	for len(vertices) < nClusters {
		v := rng.Uint64N(space)
		if !seen[v] {
			seen[v] = true
			vertices = append(vertices, v)
		}
	}
	centroids := mat.NewDense(nClusters, c.NInformative, nil)
	for k, v := range vertices {
		for j := 0; j < c.NInformative; j++ {
			bit := float64((v >> j) & 1)
			centroids.Set(k, j, (2*bit-1)*c.ClassSep)
		}
	}

	X := mat.NewDense(c.NSamples, c.NFeatures, nil)
	y := mat.NewVecDense(c.NSamples, nil)

	start := 0
	for k := 0; k < nClusters; k++ {
		n := perCluster[k]
		if n == 0 {
			continue
		}
		class := float64(k % c.NClasses)

		// covariance mixing
		A := mat.NewDense(c.NInformative, c.NInformative, nil)
		for i := 0; i < c.NInformative; i++ {
			for j := 0; j < c.NInformative; j++ {
				A.Set(i, j, 2*rng.Float64()-1)
			}
		}
		Z := mat.NewDense(n, c.NInformative, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < c.NInformative; j++ {
				Z.Set(i, j, norm.Rand())
			}
		}
		var ZA mat.Dense
		ZA.Mul(Z, A)
		for i := 0; i < n; i++ {
			for j := 0; j < c.NInformative; j++ {
				X.Set(start+i, j, ZA.At(i, j)+centroids.At(k, j))
			}
			y.SetVec(start+i, class)
		}
		start += n
	}

	if c.NRedundant > 0 {
		B := mat.NewDense(c.NInformative, c.NRedundant, nil)
		for i := 0; i < c.NInformative; i++ {
			for j := 0; j < c.NRedundant; j++ {
				B.Set(i, j, 2*rng.Float64()-1)
			}
		}
		var red mat.Dense
		red.Mul(X.Slice(0, c.NSamples, 0, c.NInformative), B)
		for i := 0; i < c.NSamples; i++ {
			for j := 0; j < c.NRedundant; j++ {
				X.Set(i, c.NInformative+j, red.At(i, j))
			}
		}
	}

	for i := 0; i < c.NSamples; i++ {
		for j := c.NInformative + c.NRedundant; j < c.NFeatures; j++ {
			X.Set(i, j, norm.Rand())
		}
	}

	if c.FlipY > 0 {
		for i := 0; i < c.NSamples; i++ {
			if rng.Float64() < c.FlipY {
				y.SetVec(i, float64(rng.IntN(c.NClasses)))
			}
		}
	}

	if !c.Shuffle {
		return X, y, nil
	}

	rows := rng.Perm(c.NSamples)
	cols := rng.Perm(c.NFeatures)
	Xs := mat.NewDense(c.NSamples, c.NFeatures, nil)
	ys := mat.NewVecDense(c.NSamples, nil)
	for i, ri := range rows {
		for j, cj := range cols {
			Xs.Set(i, j, X.At(ri, cj))
		}
		ys.SetVec(i, y.AtVec(ri))
	}
	return Xs, ys, nil
}
