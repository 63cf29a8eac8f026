package biotsavart

import (
	"context"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/knotfield/internal/field"
)

// DefaultEpsilon regularizes the Biot–Savart denominator.
const DefaultEpsilon = 1e-12

// DefaultChunkSize is the number of query points handed to one worker at a
// time.
const DefaultChunkSize = 256

// FieldSolver computes induced velocities for single points, point batches
// and whole grids.
type FieldSolver interface {
	VelocityAt(r field.Vec3) field.Vec3
	Velocities(ctx context.Context, points []field.Vec3) ([]field.Vec3, error)
	VelocityField(ctx context.Context, grid field.Grid) (*field.VectorField, error)
}

// Solver is the production FieldSolver.
type Solver struct {
	filament *Filament
	gamma    float64
	eps      float64
	workers  int
	chunk    int
}

var _ FieldSolver = (*Solver)(nil)

// Option configures a Solver.
type Option func(*Solver)

// WithCirculation sets Γ. Default: 1.
func WithCirculation(gamma float64) Option {
	return func(s *Solver) {
		s.gamma = gamma
	}
}

// WithEpsilon sets the denominator regularization ε. Values ≤ 0 keep
// DefaultEpsilon, since ε = 0 turns on-filament queries into 0/0.
func WithEpsilon(eps float64) Option {
	return func(s *Solver) {
		if eps > 0 {
			s.eps = eps
		}
	}
}

// WithWorkers bounds the number of concurrently evaluated chunks.
// Values ≤ 0 select runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(s *Solver) {
		s.workers = n
	}
}

// WithChunkSize sets how many query points one worker evaluates per task.
func WithChunkSize(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.chunk = n
		}
	}
}

// New creates a Solver for the filament.
func New(f *Filament, opts ...Option) *Solver {
	s := &Solver{
		filament: f,
		gamma:    1,
		eps:      DefaultEpsilon,
		chunk:    DefaultChunkSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.workers <= 0 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Circulation returns Γ.
func (s *Solver) Circulation() float64 {
	return s.gamma
}

// VelocityAt returns the induced velocity at r.
func (s *Solver) VelocityAt(r field.Vec3) field.Vec3 {
	f := s.filament
	var vx, vy, vz float64
	for i := range f.dlx {
		rx := r[0] - f.mx[i]
		ry := r[1] - f.my[i]
		rz := r[2] - f.mz[i]
		d := math.Sqrt(rx*rx + ry*ry + rz*rz)
		den := d*d*d + s.eps

		vx += (f.dly[i]*rz - f.dlz[i]*ry) / den
		vy += (f.dlz[i]*rx - f.dlx[i]*rz) / den
		vz += (f.dlx[i]*ry - f.dly[i]*rx) / den
	}
	c := s.gamma / (4 * math.Pi)
	return field.Vec3{c * vx, c * vy, c * vz}
}

// Velocities evaluates every point in points. The result has the same
// length and order. Cancellation returns ctx.Err() and no partial result.
func (s *Solver) Velocities(ctx context.Context, points []field.Vec3) ([]field.Vec3, error) {
	out := make([]field.Vec3, len(points))
	err := s.run(ctx, len(points), func(lo, hi int) {
		for q := lo; q < hi; q++ {
			out[q] = s.VelocityAt(points[q])
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// VelocityField evaluates the velocity on every node of grid. Node
// positions are generated per chunk rather than materialized up front.
func (s *Solver) VelocityField(ctx context.Context, grid field.Grid) (*field.VectorField, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	out := field.NewVectorField(grid.Size)
	ny, nz := grid.Size[1], grid.Size[2]
	err := s.run(ctx, out.Len(), func(lo, hi int) {
		for q := lo; q < hi; q++ {
			i, j, k := q/(ny*nz), (q/nz)%ny, q%nz
			out.Data[q] = s.VelocityAt(grid.Point(i, j, k))
		}
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// run splits [0, n) into chunks and evaluates them on up to s.workers
// goroutines.
func (s *Solver) run(ctx context.Context, n int, fn func(lo, hi int)) error {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for lo := 0; lo < n; lo += s.chunk {
		if gctx.Err() != nil {
			break
		}
		hi := min(lo+s.chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(lo, hi)
			return nil
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		solveCancelled.Inc()
		return err
	}

	pointsSolved.Add(float64(n))
	solveDuration.Observe(time.Since(start).Seconds())
	return nil
}
