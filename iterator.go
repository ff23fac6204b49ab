package lsmtable

// StorageIterator is the common contract of all sorted-run readers.
//
// Key and Value are only defined while IsValid returns true and the
// returned slices are only guaranteed until the next call to Next. Next
// must not be called on an invalid iterator.
type StorageIterator interface {
	// Key returns the key of the current entry.
	Key() KeySlice
	// Value returns the value of the current entry.
	Value() []byte
	// IsValid returns true while the iterator points at an entry.
	IsValid() bool
	// Next advances to the next entry.
	Next() error
	// NumActiveIterators returns the number of underlying iterators
	// still in use.
	NumActiveIterators() int
}

var (
	_ StorageIterator = (*BlockIterator)(nil)
	_ StorageIterator = (*SsTableIterator)(nil)
	_ StorageIterator = (*MergeIterator)(nil)
)
