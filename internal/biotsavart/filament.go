package biotsavart

import (
	"fmt"

	"github.com/roach88/knotfield/internal/field"
)

// Filament is a closed polyline prepared for repeated Biot–Savart sums.
// Segment vectors and midpoints are stored as separate component slices so
// the inner loop walks contiguous memory.
type Filament struct {
	dlx, dly, dlz []float64
	mx, my, mz    []float64
}

// NewFilament precomputes the K closing segments of the polyline through
// points. Fewer than two vertices cannot enclose anything and fail with a
// DomainError.
func NewFilament(points []field.Vec3) (*Filament, error) {
	k := len(points)
	if k < 2 {
		return nil, field.NewDomainError("filament", fmt.Sprintf("need at least 2 vertices, got %d", k))
	}

	f := &Filament{
		dlx: make([]float64, k),
		dly: make([]float64, k),
		dlz: make([]float64, k),
		mx:  make([]float64, k),
		my:  make([]float64, k),
		mz:  make([]float64, k),
	}
	for i, r0 := range points {
		r1 := points[(i+1)%k]
		dl := r1.Sub(r0)
		mid := r0.Add(r1).Scale(0.5)
		f.dlx[i], f.dly[i], f.dlz[i] = dl[0], dl[1], dl[2]
		f.mx[i], f.my[i], f.mz[i] = mid[0], mid[1], mid[2]
	}
	return f, nil
}

// Segments returns K, the number of segments (equal to the vertex count).
func (f *Filament) Segments() int {
	return len(f.dlx)
}

// Segment returns the direction vector and midpoint of segment i.
func (f *Filament) Segment(i int) (dl, mid field.Vec3) {
	return field.Vec3{f.dlx[i], f.dly[i], f.dlz[i]}, field.Vec3{f.mx[i], f.my[i], f.mz[i]}
}
