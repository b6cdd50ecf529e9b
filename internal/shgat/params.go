package shgat

import (
	domerr "github.com/toolgraph/shgat/internal/domain/errors"
	"github.com/toolgraph/shgat/internal/kernel"
)

// MatrixShape is a serializable (rows, cols, data) snapshot of a
// kernel.Matrix, used by ExportParams/ImportParams.
type MatrixShape struct {
	Rows, Cols int
	Data       []float32
}

// Params is the full set of learnable weights, persisted directly to
// storage by the training worker (C8) to avoid stdout size limits
// (spec.md §4.8).
type Params struct {
	WProj MatrixShape
	BProj []float32

	WQK []MatrixShape
	WV  []MatrixShape

	FuseW1 MatrixShape
	FuseB1 []float32
	FuseW2 MatrixShape
	FuseB2 []float32
}

func toShape(m *kernel.Matrix) MatrixShape {
	return MatrixShape{Rows: m.Rows, Cols: m.Cols, Data: append([]float32(nil), m.Data...)}
}

// ExportParams snapshots every learnable weight.
func (m *Model) ExportParams() Params {
	wqk := make([]MatrixShape, len(m.WQK))
	wv := make([]MatrixShape, len(m.WV))
	for i := range m.WQK {
		wqk[i] = toShape(m.WQK[i])
		wv[i] = toShape(m.WV[i])
	}
	return Params{
		WProj:  toShape(m.WProj),
		BProj:  append([]float32(nil), m.BProj...),
		WQK:    wqk,
		WV:     wv,
		FuseW1: toShape(m.FuseW1),
		FuseB1: append([]float32(nil), m.FuseB1...),
		FuseW2: toShape(m.FuseW2),
		FuseB2: append([]float32(nil), m.FuseB2...),
	}
}

// ImportParams loads a previously exported Params blob, rejecting it with
// ErrParamShapeMismatch if any tensor shape doesn't match this model's
// configuration (spec.md §4.7 Failures).
func (m *Model) ImportParams(p Params) error {
	if p.WProj.Rows != m.WProj.Rows || p.WProj.Cols != m.WProj.Cols {
		return domerr.ErrParamShapeMismatch
	}
	if len(p.WQK) != len(m.WQK) || len(p.WV) != len(m.WV) {
		return domerr.ErrParamShapeMismatch
	}
	for i := range p.WQK {
		if p.WQK[i].Rows != m.WQK[i].Rows || p.WQK[i].Cols != m.WQK[i].Cols {
			return domerr.ErrParamShapeMismatch
		}
		if p.WV[i].Rows != m.WV[i].Rows || p.WV[i].Cols != m.WV[i].Cols {
			return domerr.ErrParamShapeMismatch
		}
	}
	if p.FuseW1.Rows != m.FuseW1.Rows || p.FuseW1.Cols != m.FuseW1.Cols {
		return domerr.ErrParamShapeMismatch
	}
	if p.FuseW2.Rows != m.FuseW2.Rows || p.FuseW2.Cols != m.FuseW2.Cols {
		return domerr.ErrParamShapeMismatch
	}

	m.WProj = fromShape(p.WProj)
	m.BProj = append([]float32(nil), p.BProj...)
	for i := range p.WQK {
		m.WQK[i] = fromShape(p.WQK[i])
		m.WV[i] = fromShape(p.WV[i])
	}
	m.FuseW1 = fromShape(p.FuseW1)
	m.FuseB1 = append([]float32(nil), p.FuseB1...)
	m.FuseW2 = fromShape(p.FuseW2)
	m.FuseB2 = append([]float32(nil), p.FuseB2...)
	return nil
}

func fromShape(s MatrixShape) *kernel.Matrix {
	return &kernel.Matrix{Rows: s.Rows, Cols: s.Cols, Data: append([]float32(nil), s.Data...)}
}
