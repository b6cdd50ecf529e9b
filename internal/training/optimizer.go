package training

import (
	"math"

	"github.com/toolgraph/shgat/internal/kernel"
	"github.com/toolgraph/shgat/internal/shgat"
)

// AdamWConfig holds the hyperparameters for the per-tensor AdamW update
// (spec.md §4.8 Training step): learning rate, moment decay, L2 weight
// decay, and an elementwise gradient-clip bound.
type AdamWConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	WeightDecay  float64
	ClipNorm     float64
}

// DefaultAdamWConfig matches the commonly-used defaults (lr=1e-3,
// beta1=0.9, beta2=0.999, eps=1e-8) plus a modest weight decay and a
// gradient clip loose enough to only bite on actual instability.
func DefaultAdamWConfig() AdamWConfig {
	return AdamWConfig{
		LearningRate: 1e-3,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  1e-4,
		ClipNorm:     5.0,
	}
}

// Optimizer applies AdamW updates to every tensor a Model exposes via
// Tensors()/Vectors(), keeping first/second moment estimates per tensor
// keyed the same way so it needs no knowledge of the model's structure.
type Optimizer struct {
	cfg AdamWConfig
	step int

	mMat map[string][]float32
	vMat map[string][]float32
	mVec map[string][]float32
	vVec map[string][]float32
}

// NewOptimizer builds an Optimizer with zeroed moment state for every
// tensor currently exposed by m.
func NewOptimizer(m *shgat.Model, cfg AdamWConfig) *Optimizer {
	o := &Optimizer{
		cfg:  cfg,
		mMat: map[string][]float32{},
		vMat: map[string][]float32{},
		mVec: map[string][]float32{},
		vVec: map[string][]float32{},
	}
	for name, t := range m.Tensors() {
		o.mMat[name] = make([]float32, len(t.Data))
		o.vMat[name] = make([]float32, len(t.Data))
	}
	for name, v := range m.Vectors() {
		o.mVec[name] = make([]float32, len(v))
		o.vVec[name] = make([]float32, len(v))
	}
	return o
}

// Step applies one AdamW update using the averaged gradients in g,
// clipping each raw gradient element to [-ClipNorm, ClipNorm] before the
// moment update.
func (o *Optimizer) Step(m *shgat.Model, g *Gradients) {
	if g.Count == 0 {
		return
	}
	o.step++
	scale := float32(1.0 / float64(g.Count))

	tensors := m.Tensors()
	for name, grad := range g.Matrices {
		t, ok := tensors[name]
		if !ok {
			continue
		}
		o.updateMatrix(name, t, grad, scale)
	}

	vectors := m.Vectors()
	for name, grad := range g.Vectors {
		v, ok := vectors[name]
		if !ok {
			continue
		}
		o.updateVector(name, v, grad, scale)
	}
}

func (o *Optimizer) updateMatrix(name string, t *kernel.Matrix, grad *kernel.Matrix, scale float32) {
	m := o.mMat[name]
	v := o.vMat[name]
	b1 := float32(o.cfg.Beta1)
	b2 := float32(o.cfg.Beta2)
	biasCorr1 := float32(1 - math.Pow(o.cfg.Beta1, float64(o.step)))
	biasCorr2 := float32(1 - math.Pow(o.cfg.Beta2, float64(o.step)))
	lr := float32(o.cfg.LearningRate)
	wd := float32(o.cfg.WeightDecay)
	clip := float32(o.cfg.ClipNorm)

	for i := range t.Data {
		gi := clipValue(grad.Data[i]*scale, clip)
		m[i] = b1*m[i] + (1-b1)*gi
		v[i] = b2*v[i] + (1-b2)*gi*gi
		mHat := m[i] / biasCorr1
		vHat := v[i] / biasCorr2
		update := lr * (mHat/(sqrtF(vHat)+float32(o.cfg.Epsilon)) + wd*t.Data[i])
		t.Data[i] -= update
	}
}

func (o *Optimizer) updateVector(name string, t []float32, grad []float32, scale float32) {
	m := o.mVec[name]
	v := o.vVec[name]
	b1 := float32(o.cfg.Beta1)
	b2 := float32(o.cfg.Beta2)
	biasCorr1 := float32(1 - math.Pow(o.cfg.Beta1, float64(o.step)))
	biasCorr2 := float32(1 - math.Pow(o.cfg.Beta2, float64(o.step)))
	lr := float32(o.cfg.LearningRate)
	clip := float32(o.cfg.ClipNorm)

	for i := range t {
		gi := clipValue(grad[i]*scale, clip)
		m[i] = b1*m[i] + (1-b1)*gi
		v[i] = b2*v[i] + (1-b2)*gi*gi
		mHat := m[i] / biasCorr1
		vHat := v[i] / biasCorr2
		t[i] -= lr * mHat / (sqrtF(vHat) + float32(o.cfg.Epsilon))
	}
}

func clipValue(x, bound float32) float32 {
	if x > bound {
		return bound
	}
	if x < -bound {
		return -bound
	}
	return x
}

func sqrtF(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
