package field

import "fmt"

// VectorField is a 3-vector sample on every node of a regular grid.
type VectorField struct {
	Shape [3]int
	Data  []Vec3
}

// NewVectorField allocates a zero field of the given shape.
func NewVectorField(shape [3]int) *VectorField {
	return &VectorField{Shape: shape, Data: make([]Vec3, shape[0]*shape[1]*shape[2])}
}

// VectorFieldFrom wraps existing flat data, which must hold exactly
// shape[0]*shape[1]*shape[2] vectors in x-outer order.
func VectorFieldFrom(shape [3]int, data []Vec3) (*VectorField, error) {
	if want := shape[0] * shape[1] * shape[2]; len(data) != want {
		return nil, NewShapeError("vector field", fmt.Sprintf("shape %v needs %d vectors, got %d", shape, want, len(data)))
	}
	return &VectorField{Shape: shape, Data: data}, nil
}

// Index returns the flat offset of node (i, j, k).
func (f *VectorField) Index(i, j, k int) int {
	return (i*f.Shape[1]+j)*f.Shape[2] + k
}

// At returns the vector at node (i, j, k).
func (f *VectorField) At(i, j, k int) Vec3 {
	return f.Data[f.Index(i, j, k)]
}

// Set stores v at node (i, j, k).
func (f *VectorField) Set(i, j, k int, v Vec3) {
	f.Data[f.Index(i, j, k)] = v
}

// Len returns the number of nodes.
func (f *VectorField) Len() int {
	return len(f.Data)
}

// Norm2 returns the scalar field |v|².
func (f *VectorField) Norm2() *ScalarField {
	out := NewScalarField(f.Shape)
	for i, v := range f.Data {
		out.Data[i] = v.Norm2()
	}
	return out
}

// Scale returns a new field with every vector multiplied by s.
func (f *VectorField) Scale(s float64) *VectorField {
	out := NewVectorField(f.Shape)
	for i, v := range f.Data {
		out.Data[i] = v.Scale(s)
	}
	return out
}

// ScalarField is a scalar sample on every node of a regular grid.
type ScalarField struct {
	Shape [3]int
	Data  []float64
}

// NewScalarField allocates a zero scalar field of the given shape.
func NewScalarField(shape [3]int) *ScalarField {
	return &ScalarField{Shape: shape, Data: make([]float64, shape[0]*shape[1]*shape[2])}
}

// Index returns the flat offset of node (i, j, k).
func (f *ScalarField) Index(i, j, k int) int {
	return (i*f.Shape[1]+j)*f.Shape[2] + k
}

// At returns the value at node (i, j, k).
func (f *ScalarField) At(i, j, k int) float64 {
	return f.Data[f.Index(i, j, k)]
}
