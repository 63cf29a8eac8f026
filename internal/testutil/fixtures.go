package testutil

import (
	"github.com/roach88/knotfield/internal/field"
	"github.com/roach88/knotfield/internal/fseries"
)

// TrefoilText is a two-block .fseries document. The second block has more
// harmonics and is the one a largest-block policy selects.
const TrefoilText = `% unknot
1 0 0 1 0 0

% 3_1 trefoil
0.41 0.00 0.00 0.31 0.00 0.00
0.00 -0.99 0.68 0.00 0.00 0.00
0.00 0.00 0.00 0.00 0.00 0.42
`

// LineBlock is the single-harmonic block with a_x[0] = 1 and every other
// coefficient zero. Its curve x = cos s runs back and forth along the x
// axis.
func LineBlock() fseries.Block {
	return fseries.NewBlock("line", fseries.Row{1, 0, 0, 0, 0, 0})
}

// CircleBlock is the unit circle in the z = 0 plane, r(s) = (cos s, sin s, 0).
func CircleBlock() fseries.Block {
	return fseries.NewBlock("circle", fseries.Row{1, 0, 0, 1, 0, 0})
}

// TrefoilBlock is the second block of TrefoilText.
func TrefoilBlock() fseries.Block {
	return fseries.NewBlock("3_1 trefoil",
		fseries.Row{0.41, 0.00, 0.00, 0.31, 0.00, 0.00},
		fseries.Row{0.00, -0.99, 0.68, 0.00, 0.00, 0.00},
		fseries.Row{0.00, 0.00, 0.00, 0.00, 0.00, 0.42},
	)
}

// RotationField samples the solid-body rotation v = ω × r on g. Its curl is
// 2ω everywhere.
func RotationField(g field.Grid, omega field.Vec3) *field.VectorField {
	v := field.NewVectorField(g.Size)
	for i := 0; i < g.Size[0]; i++ {
		for j := 0; j < g.Size[1]; j++ {
			for k := 0; k < g.Size[2]; k++ {
				v.Set(i, j, k, omega.Cross(g.Point(i, j, k)))
			}
		}
	}
	return v
}
