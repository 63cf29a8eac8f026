// Package field provides the shared numerical data model for knotfield.
//
// This package contains value types only: 3-vectors, regular grids and
// flat volume fields, plus the ShapeError and DomainError types used by
// every numerical stage. All other internal packages import field; field
// imports nothing internal.
//
// Layout conventions:
//   - Volume fields are stored flat with x outermost and z innermost,
//     Index(i, j, k) = (i*Ny + j)*Nz + k.
//   - Grid axes are centered: coordinate(i) = Center + Spacing*(i - N/2),
//     using integer division, so the center lies exactly on node N/2.
//   - Edges wrap. Periodic topology is implicit in the layout, not stored.
package field
