// Package catalog maps knot identifiers to raw .fseries text.
//
// Identifiers are NFC-normalized so that visually identical names loaded
// from different filesystems resolve to the same entry. The catalog also
// owns the block selection policy: SelectLargest picks the block with the
// most harmonics, earliest block first on ties.
package catalog
