package mvccbt

import "bytes"

// Collator orders encoded keys. ROW tables may install a custom collator;
// COL_VAR/COL_FIX always use the default, since their keys are big-endian
// record numbers and byte order already gives numeric order. Page placement
// and slot search always use byte order (KeyCmp); the collator is applied
// when comparing a located key with the search key, in Cursor.Compare, in
// range bounds and when stepping backwards.
type Collator interface {
	Compare(a, b []byte) int
}

type byteCollator struct{}

func (byteCollator) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// DefaultCollator is the byte-lexicographic order used unless a Config
// supplies its own.
var DefaultCollator Collator = byteCollator{}
