// Package fseries parses .fseries Fourier knot coefficient files.
//
// # Format
//
// A file holds one or more blocks. A block boundary is a blank line or a
// line beginning with '%'; the text after '%' (trimmed) names the block that
// follows:
//
//	% 3_1 trefoil
//	 0.41  0.00  0.00  0.31  0.00  0.00
//	 0.00 -0.99  0.68  0.00  0.00  0.00
//	 0.00  0.00  0.00  0.00  0.00  0.42
//
// Coefficient rows hold exactly six whitespace-separated numbers in the
// fixed column order a_x b_x a_y b_y a_z b_z. Row n (1-based) is harmonic n,
// so the first row multiplies cos(s) and sin(s). Lines with any other token
// count (legacy 3-column coordinate dumps, stray notes) are ignored.
//
// Parse exposes every block in file order. Choosing a block (for example
// the one with the most harmonics) is left to callers; see the catalog
// package.
package fseries
