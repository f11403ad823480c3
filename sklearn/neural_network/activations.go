package neural_network

import (
	"math"

	"github.com/YuminosukeSato/scibench/pkg/errors"
)

// activation applies a hidden-layer nonlinearity in place and computes its
// derivative from the activated output.
type activation struct {
	forward    func(z []float64)
	derivative func(a, delta []float64) // delta *= f'(a)
}

func relu(z []float64) {
	for i, v := range z {
		if v < 0 {
			z[i] = 0
		}
	}
}

func logistic(z []float64) {
	for i, v := range z {
		z[i] = 1 / (1 + math.Exp(-v))
	}
}

func tanh(z []float64) {
	for i, v := range z {
		z[i] = math.Tanh(v)
	}
}

var activations = map[string]activation{
	"relu": {
		forward: relu,
		derivative: func(a, delta []float64) {
			for i := range a {
				if a[i] == 0 {
					delta[i] = 0
				}
			}
		},
	},
	"logistic": {
		forward: logistic,
		derivative: func(a, delta []float64) {
			for i := range a {
				delta[i] *= a[i] * (1 - a[i])
			}
		},
	},
	"tanh": {
		forward: tanh,
		derivative: func(a, delta []float64) {
			for i := range a {
				delta[i] *= 1 - a[i]*a[i]
			}
		},
	},
	"identity": {
		forward:    func([]float64) {},
		derivative: func(a, delta []float64) {},
	},
}

func lookupActivation(name string) (activation, error) {
	a, ok := activations[name]
	if !ok {
		return activation{}, errors.NewValidationError("activation", "must be one of relu, logistic, tanh, identity", name)
	}
	return a, nil
}

// softmax normalizes each row of a row-major block in place.
func softmax(z []float64, cols int) {
	for off := 0; off < len(z); off += cols {
		row := z[off : off+cols]
		m := row[0]
		for _, v := range row[1:] {
			m = math.Max(m, v)
		}
		var s float64
		for i, v := range row {
			row[i] = math.Exp(v - m)
			s += row[i]
		}
		for i := range row {
			row[i] /= s
		}
	}
}
