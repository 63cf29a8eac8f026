// Package config loads knotfield run configuration.
//
// A configuration file is YAML:
//
//	catalog: ./knots
//	database: ./knotfield.db
//	knot: 3_1
//	samples: 1000
//	circulation: 1
//	epsilon: 1e-12
//	workers: 0
//	center_curve: false
//	grid:
//	  size: 32
//	  spacing: 0.1
//	  center: [0, 0, 0]
//	  margin: 8
//	cache:
//	  entries: 64
//
// Omitted keys keep their Default values; unknown keys are rejected.
// Decoded values are checked against an embedded CUE schema (types and
// ranges) and then against cross-field rules that CUE does not express
// conveniently, such as the margin fitting inside the grid.
package config
