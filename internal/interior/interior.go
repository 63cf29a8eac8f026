// Package interior trims the boundary margin of periodic grid fields.
//
// Periodic central differences mix opposite faces of the grid, so samples
// near a face carry wraparound artifacts. Extraction keeps index ranges
// [m, N−m) on every axis, flattened with x outermost and z innermost, and
// produces the squared distance of each retained node from the grid center
// in the same pass. The two sequences are positionally paired and are only
// ever produced together.
package interior

import (
	"fmt"

	"github.com/roach88/knotfield/internal/field"
)

// Interior is a trimmed, flattened vector field with its r² values.
type Interior struct {
	// Shape is the interior extent (N−2m per axis).
	Shape [3]int

	// Vectors holds the retained samples, x outermost and z innermost.
	Vectors []field.Vec3

	// R2 holds |p − center|² for the node behind each entry of Vectors.
	R2 []float64
}

// Len returns the number of retained nodes.
func (in *Interior) Len() int {
	return len(in.R2)
}

// Pair is two fields trimmed over the same nodes, sharing one R2.
type Pair struct {
	Shape [3]int
	V     []field.Vec3
	W     []field.Vec3
	R2    []float64
}

// Len returns the number of retained nodes.
func (p *Pair) Len() int {
	return len(p.R2)
}

// Scalars is a trimmed, flattened scalar field with its r² values.
type Scalars struct {
	Shape  [3]int
	Values []float64
	R2     []float64
}

// Extract trims margin m from every axis of f, a field sampled on g.
// Margin 0 returns every node in original order.
func Extract(f *field.VectorField, g field.Grid, m int) (*Interior, error) {
	shape, err := check("extract", f.Shape, len(f.Data), g, m)
	if err != nil {
		return nil, err
	}
	out := &Interior{
		Shape:   shape,
		Vectors: make([]field.Vec3, 0, volume(shape)),
		R2:      make([]float64, 0, volume(shape)),
	}
	walk(g, m, func(idx int, r2 float64) {
		out.Vectors = append(out.Vectors, f.Data[idx])
		out.R2 = append(out.R2, r2)
	})
	return out, nil
}

// ExtractPair trims v and w, both sampled on g, over the same nodes.
func ExtractPair(v, w *field.VectorField, g field.Grid, m int) (*Pair, error) {
	if v.Shape != w.Shape {
		return nil, field.NewShapeError("extract pair", fmt.Sprintf("field shapes differ: %v vs %v", v.Shape, w.Shape))
	}
	shape, err := check("extract pair", v.Shape, len(v.Data), g, m)
	if err != nil {
		return nil, err
	}
	if len(w.Data) != len(v.Data) {
		return nil, field.NewShapeError("extract pair", fmt.Sprintf("field lengths differ: %d vs %d", len(v.Data), len(w.Data)))
	}
	n := volume(shape)
	out := &Pair{
		Shape: shape,
		V:     make([]field.Vec3, 0, n),
		W:     make([]field.Vec3, 0, n),
		R2:    make([]float64, 0, n),
	}
	walk(g, m, func(idx int, r2 float64) {
		out.V = append(out.V, v.Data[idx])
		out.W = append(out.W, w.Data[idx])
		out.R2 = append(out.R2, r2)
	})
	return out, nil
}

// ExtractScalar trims a scalar field sampled on g.
func ExtractScalar(f *field.ScalarField, g field.Grid, m int) (*Scalars, error) {
	shape, err := check("extract scalar", f.Shape, len(f.Data), g, m)
	if err != nil {
		return nil, err
	}
	out := &Scalars{
		Shape:  shape,
		Values: make([]float64, 0, volume(shape)),
		R2:     make([]float64, 0, volume(shape)),
	}
	walk(g, m, func(idx int, r2 float64) {
		out.Values = append(out.Values, f.Data[idx])
		out.R2 = append(out.R2, r2)
	})
	return out, nil
}

// check validates the margin against the field and grid and returns the
// interior shape.
func check(op string, shape [3]int, n int, g field.Grid, m int) ([3]int, error) {
	var inner [3]int
	if shape != g.Size {
		return inner, field.NewShapeError(op, fmt.Sprintf("field shape %v does not match grid size %v", shape, g.Size))
	}
	if want := shape[0] * shape[1] * shape[2]; n != want {
		return inner, field.NewShapeError(op, fmt.Sprintf("shape %v needs %d samples, got %d", shape, want, n))
	}
	if m < 0 {
		return inner, field.NewShapeError(op, fmt.Sprintf("margin must be non-negative, got %d", m))
	}
	for axis, size := range shape {
		if 2*m >= size {
			return inner, field.NewShapeError(op, fmt.Sprintf("margin %d leaves nothing of axis %d (%d nodes)", m, axis, size))
		}
		inner[axis] = size - 2*m
	}
	return inner, nil
}

// walk visits interior nodes in x-outer order, passing each node's flat
// index in the full grid and its squared distance from the grid center.
func walk(g field.Grid, m int, visit func(idx int, r2 float64)) {
	nx, ny, nz := g.Size[0], g.Size[1], g.Size[2]
	for i := m; i < nx-m; i++ {
		for j := m; j < ny-m; j++ {
			for k := m; k < nz-m; k++ {
				d := g.Point(i, j, k).Sub(g.Center)
				visit((i*ny+j)*nz+k, d.Norm2())
			}
		}
	}
}

func volume(shape [3]int) int {
	return shape[0] * shape[1] * shape[2]
}
