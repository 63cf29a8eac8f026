// Package testutil provides fixtures shared by package tests: small
// coefficient blocks, analytic fields and deterministic id generators.
package testutil
