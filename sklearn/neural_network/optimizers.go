package neural_network

import "math"

// optimizer updates every parameter slice in place from its gradient.
type optimizer interface {
	update(params, grads [][]float64)
}

// sgdOptimizer is SGD with a constant learning rate and (Nesterov) momentum.
type sgdOptimizer struct {
	lr       float64
	momentum float64
	nesterov bool
	velocity [][]float64
}

func newSGD(params [][]float64, lr, momentum float64, nesterov bool) *sgdOptimizer {
	return &sgdOptimizer{lr: lr, momentum: momentum, nesterov: nesterov, velocity: zerosLike(params)}
}

func (o *sgdOptimizer) update(params, grads [][]float64) {
	for k, p := range params {
		v, g := o.velocity[k], grads[k]
		for i := range p {
			v[i] = o.momentum*v[i] - o.lr*g[i]
			if o.nesterov {
				p[i] += o.momentum*v[i] - o.lr*g[i]
			} else {
				p[i] += v[i]
			}
		}
	}
}

// adamOptimizer implements Adam with bias-corrected step size.
type adamOptimizer struct {
	lr, beta1, beta2, epsilon float64
	t                         int
	m, v                      [][]float64
}

func newAdam(params [][]float64, lr, beta1, beta2, epsilon float64) *adamOptimizer {
	return &adamOptimizer{
		lr: lr, beta1: beta1, beta2: beta2, epsilon: epsilon,
		m: zerosLike(params), v: zerosLike(params),
	}
}

func (o *adamOptimizer) update(params, grads [][]float64) {
	o.t++
	t := float64(o.t)
	lr := o.lr * math.Sqrt(1-math.Pow(o.beta2, t)) / (1 - math.Pow(o.beta1, t))
	for k, p := range params {
		m, v, g := o.m[k], o.v[k], grads[k]
		for i := range p {
			m[i] = o.beta1*m[i] + (1-o.beta1)*g[i]
			v[i] = o.beta2*v[i] + (1-o.beta2)*g[i]*g[i]
			p[i] -= lr * m[i] / (math.Sqrt(v[i]) + o.epsilon)
		}
	}
}

func zerosLike(params [][]float64) [][]float64 {
	out := make([][]float64, len(params))
	for i, p := range params {
		out[i] = make([]float64, len(p))
	}
	return out
}
