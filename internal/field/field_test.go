package field

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVec3Algebra(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{-4, 5, 0.5}

	assert.Equal(t, Vec3{-3, 7, 3.5}, a.Add(b))
	assert.Equal(t, Vec3{5, -3, 2.5}, a.Sub(b))
	assert.Equal(t, Vec3{2, 4, 6}, a.Scale(2))
	assert.Equal(t, 7.5, a.Dot(b))
	assert.Equal(t, 14.0, a.Norm2())
	assert.InDelta(t, math.Sqrt(14), a.Norm(), 1e-15)

	// Cross product is orthogonal to both operands.
	c := a.Cross(b)
	assert.InDelta(t, 0, c.Dot(a), 1e-12)
	assert.InDelta(t, 0, c.Dot(b), 1e-12)
	assert.Equal(t, Vec3{0, 0, 1}, Vec3{1, 0, 0}.Cross(Vec3{0, 1, 0}))
}

func TestVec3IsFinite(t *testing.T) {
	assert.True(t, Vec3{1, 2, 3}.IsFinite())
	assert.False(t, Vec3{math.NaN(), 0, 0}.IsFinite())
	assert.False(t, Vec3{0, math.Inf(-1), 0}.IsFinite())
}

func TestGridCoordinatesAreCentered(t *testing.T) {
	g := CubeGrid(32, 0.1)

	assert.InDelta(t, -1.6, g.Coord(0, 0), 1e-12)
	assert.Equal(t, 0.0, g.Coord(1, 16))
	assert.InDelta(t, 1.5, g.Coord(2, 31), 1e-12)

	shifted := Grid{Size: [3]int{4, 4, 4}, Spacing: 1, Center: Vec3{10, 20, 30}}
	assert.Equal(t, Vec3{10, 20, 30}, shifted.Point(2, 2, 2))
	assert.Equal(t, Vec3{8, 19, 31}, shifted.Point(0, 1, 3))
}

func TestGridPointsOrder(t *testing.T) {
	g := Grid{Size: [3]int{2, 3, 4}, Spacing: 1}
	pts := g.Points()
	require.Len(t, pts, 24)

	f := NewVectorField(g.Size)
	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 4; k++ {
				assert.Equal(t, g.Point(i, j, k), pts[f.Index(i, j, k)])
			}
		}
	}
	// z varies fastest.
	assert.Equal(t, pts[0][2]+1, pts[1][2])
}

func TestGridValidate(t *testing.T) {
	require.NoError(t, CubeGrid(3, 0.5).Validate())

	err := Grid{Size: [3]int{3, 0, 3}, Spacing: 1}.Validate()
	assert.True(t, IsShapeError(err))

	for _, h := range []float64{0, -1, math.Inf(1), math.NaN()} {
		err := CubeGrid(3, h).Validate()
		assert.True(t, IsDomainError(err), "spacing %v", h)
	}
}

func TestVectorFieldFrom(t *testing.T) {
	_, err := VectorFieldFrom([3]int{2, 2, 2}, make([]Vec3, 7))
	assert.True(t, IsShapeError(err))

	f, err := VectorFieldFrom([3]int{1, 2, 2}, []Vec3{{1}, {2}, {3}, {4}})
	require.NoError(t, err)
	assert.Equal(t, Vec3{4}, f.At(0, 1, 1))

	f.Set(0, 0, 1, Vec3{0, 3, 4})
	assert.Equal(t, 25.0, f.Norm2().At(0, 0, 1))
	assert.Equal(t, Vec3{0, -6, -8}, f.Scale(-2).At(0, 0, 1))
}

func TestErrorHelpersUnwrap(t *testing.T) {
	shape := NewShapeError("curl", "axis 0 has 2 nodes")
	wrapped := fmt.Errorf("pipeline: %w", shape)
	assert.True(t, IsShapeError(wrapped))
	assert.False(t, IsDomainError(wrapped))
	assert.Equal(t, "shape error: curl: axis 0 has 2 nodes", shape.Error())

	domain := NewDomainError("anomaly ratio", "H_mass is zero")
	assert.True(t, IsDomainError(fmt.Errorf("x: %w", domain)))
	assert.Contains(t, domain.Error(), "H_mass is zero")
}
