// Package pipeline chains transformers and a final classifier into a
// single estimator.
package pipeline

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/scibench/core/model"
	"github.com/YuminosukeSato/scibench/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Step is a named pipeline stage.
type Step struct {
	Name      string
	Estimator interface{}
}

// Pipeline fits every transformer on the output of the previous one and
// the final classifier on the fully transformed data.
type Pipeline struct {
	steps      []Step
	transforms []model.Transformer
	final      model.Classifier
	err        error
}

// MakePipeline builds a pipeline from transformers followed by one
// classifier. Step names are the lower-cased type names, with "-1", "-2"
// suffixes when a type repeats. A malformed step list is reported by Fit.
func MakePipeline(steps ...interface{}) *Pipeline {
	p := &Pipeline{steps: nameSteps(steps)}
	if len(steps) == 0 {
		p.err = errors.NewValueError("MakePipeline", "needs at least one step")
		return p
	}
	for i, s := range steps[:len(steps)-1] {
		tr, ok := s.(model.Transformer)
		if !ok {
			p.err = errors.NewValueError("MakePipeline",
				fmt.Sprintf("step %d (%s) is not a transformer", i, p.steps[i].Name))
			return p
		}
		p.transforms = append(p.transforms, tr)
	}
	final, ok := steps[len(steps)-1].(model.Classifier)
	if !ok {
		p.err = errors.NewValueError("MakePipeline",
			fmt.Sprintf("last step (%s) is not a classifier", p.steps[len(steps)-1].Name))
		return p
	}
	p.final = final
	return p
}

func nameSteps(steps []interface{}) []Step {
	out := make([]Step, len(steps))
	count := make(map[string]int)
	for i, s := range steps {
		out[i] = Step{Name: stepName(s), Estimator: s}
		count[out[i].Name]++
	}
	seen := make(map[string]int)
	for i := range out {
		n := out[i].Name
		if count[n] > 1 {
			seen[n]++
			out[i].Name = fmt.Sprintf("%s-%d", n, seen[n])
		}
	}
	return out
}

func stepName(s interface{}) string {
	if n, ok := s.(model.Named); ok {
		return strings.ToLower(n.Name())
	}
	t := fmt.Sprintf("%T", s)
	if i := strings.LastIndex(t, "."); i >= 0 {
		t = t[i+1:]
	}
	return strings.ToLower(t)
}

// Name returns the estimator type name.
func (p *Pipeline) Name() string { return "Pipeline" }

// Steps returns the named steps in order.
func (p *Pipeline) Steps() []Step { return p.steps }

// Step returns the estimator registered under name.
func (p *Pipeline) Step(name string) (interface{}, bool) {
	for _, s := range p.steps {
		if s.Name == name {
			return s.Estimator, true
		}
	}
	return nil, false
}

// SetRandomState passes the seed to every step implementing model.Seeded.
func (p *Pipeline) SetRandomState(seed int64) {
	for _, s := range p.steps {
		if sd, ok := s.Estimator.(model.Seeded); ok {
			sd.SetRandomState(seed)
		}
	}
}

// SetNJobs passes the worker count to every step implementing
// model.Parallel.
func (p *Pipeline) SetNJobs(n int) {
	for _, s := range p.steps {
		if pr, ok := s.Estimator.(model.Parallel); ok {
			pr.SetNJobs(n)
		}
	}
}

// Fit runs FitTransform through the transformers, then fits the classifier.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	if p.err != nil {
		return p.err
	}
	Xt := X
	for i, tr := range p.transforms {
		out, err := tr.FitTransform(Xt)
		if err != nil {
			return errors.Wrapf(err, "pipeline step %q", p.steps[i].Name)
		}
		Xt = out
	}
	if err := p.final.Fit(Xt, y); err != nil {
		return errors.Wrapf(err, "pipeline step %q", p.steps[len(p.steps)-1].Name)
	}
	return nil
}

func (p *Pipeline) transform(X mat.Matrix) (mat.Matrix, error) {
	if p.err != nil {
		return nil, p.err
	}
	Xt := X
	for i, tr := range p.transforms {
		out, err := tr.Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "pipeline step %q", p.steps[i].Name)
		}
		Xt = out
	}
	return Xt, nil
}

// Predict transforms X and predicts with the final classifier.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return p.final.Predict(Xt)
}

// PredictProba is available when the final step is probabilistic.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	pc, ok := p.final.(model.ProbabilisticClassifier)
	if !ok {
		return nil, errors.NewValueError("Pipeline.PredictProba", "final step has no PredictProba")
	}
	Xt, err := p.transform(X)
	if err != nil {
		return nil, err
	}
	return pc.PredictProba(Xt)
}

// GetParams returns "steps" plus every step parameter as "step__param".
func (p *Pipeline) GetParams() map[string]interface{} {
	names := make([]string, len(p.steps))
	params := map[string]interface{}{}
	for i, s := range p.steps {
		names[i] = s.Name
		params[s.Name] = s.Estimator
		if pg, ok := s.Estimator.(model.ParameterGetter); ok {
			for k, v := range pg.GetParams() {
				params[s.Name+"__"+k] = v
			}
		}
	}
	params["steps"] = names
	return params
}
