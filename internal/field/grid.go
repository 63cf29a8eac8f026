package field

import (
	"fmt"
	"math"
)

// Grid describes a regular, isotropic 3D sampling lattice.
type Grid struct {
	// Size is the node count per axis (Nx, Ny, Nz).
	Size [3]int `json:"size"`

	// Spacing is the uniform node distance h on every axis.
	Spacing float64 `json:"spacing"`

	// Center is the point that node Size/2 maps to on every axis.
	Center Vec3 `json:"center"`
}

// CubeGrid returns an n×n×n grid with spacing h centered at the origin.
func CubeGrid(n int, h float64) Grid {
	return Grid{Size: [3]int{n, n, n}, Spacing: h}
}

// Validate checks that every axis has at least one node and that the
// spacing is positive and finite.
func (g Grid) Validate() error {
	for axis, n := range g.Size {
		if n < 1 {
			return NewShapeError("grid", fmt.Sprintf("axis %d has %d nodes", axis, n))
		}
	}
	if !(g.Spacing > 0) || math.IsInf(g.Spacing, 0) {
		return NewDomainError("grid", fmt.Sprintf("spacing must be positive and finite, got %v", g.Spacing))
	}
	return nil
}

// Len returns the total number of nodes.
func (g Grid) Len() int {
	return g.Size[0] * g.Size[1] * g.Size[2]
}

// Coord returns the coordinate of node index i on the given axis.
func (g Grid) Coord(axis, i int) float64 {
	return g.Center[axis] + g.Spacing*float64(i-g.Size[axis]/2)
}

// Point returns the position of node (i, j, k).
func (g Grid) Point(i, j, k int) Vec3 {
	return Vec3{g.Coord(0, i), g.Coord(1, j), g.Coord(2, k)}
}

// Points enumerates every node, x outermost and z innermost.
func (g Grid) Points() []Vec3 {
	pts := make([]Vec3, 0, g.Len())
	for i := 0; i < g.Size[0]; i++ {
		for j := 0; j < g.Size[1]; j++ {
			for k := 0; k < g.Size[2]; k++ {
				pts = append(pts, g.Point(i, j, k))
			}
		}
	}
	return pts
}

// String renders the grid compactly, e.g. "32x32x32@0.1".
func (g Grid) String() string {
	return fmt.Sprintf("%dx%dx%d@%g", g.Size[0], g.Size[1], g.Size[2], g.Spacing)
}
