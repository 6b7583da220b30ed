package interfaces

// Collator orders encoded keys; ROW tables may supply a custom order, while
// COL_VAR/COL_FIX always sort by big-endian record number.
type Collator interface {
	Compare(a, b []byte) int
}

// BlockManager is the external size-validation collaborator named in spec
// section 4.1/6: a proposed write is rejected before it ever reaches the
// page pool.
type BlockManager interface {
	WriteSize(size int) error
}

// TruncateLogger brackets a range-truncate with a recoverable logging scope,
// per spec section 4.10/6.
type TruncateLogger interface {
	TruncateLog(start, stop []byte) error
	TruncateEnd() error
}

// Iterator is a next/prev collaborator shape for stepping across physical
// slots and tombstoned versions, named analogously to a first/next/seek
// cursor convention. The mvccbt cursors do not use it; they call the tree's
// own next/prev helpers.
type Iterator interface {
	Next() (ok bool, key, value []byte, err error)
	Prev() (ok bool, key, value []byte, err error)
}
