package lsmtable

import (
	"bytes"
	"sort"
)

// BlockIterator is a forward cursor over a single block.
type BlockIterator struct {
	block *Block
	idx   int // current entry, == NumEntries when exhausted

	key []byte
	val []byte
}

// NewBlockIterator creates an iterator positioned at the first entry of b.
func NewBlockIterator(b *Block) *BlockIterator {
	it := &BlockIterator{block: b}
	it.SeekToFirst()
	return it
}

// NewBlockIteratorAt creates an iterator positioned at the first entry of
// b with a key >= key.
func NewBlockIteratorAt(b *Block, key KeySlice) *BlockIterator {
	it := &BlockIterator{block: b}
	it.SeekToKey(key)
	return it
}

// SeekToFirst positions the cursor at the first entry.
func (it *BlockIterator) SeekToFirst() { it.seekTo(0) }

// SeekToKey positions the cursor at the first entry with a key >= key, or
// invalidates the iterator if no such entry exists. It binary-searches the
// offsets, decoding only the keys it inspects.
func (it *BlockIterator) SeekToKey(key KeySlice) {
	n := it.block.NumEntries()
	idx := sort.Search(n, func(i int) bool {
		return bytes.Compare(it.block.keyAt(i), key) >= 0
	})
	it.seekTo(idx)
}

// Key returns the key of the current entry. It is only defined while
// IsValid returns true. The returned slice must not be modified.
func (it *BlockIterator) Key() KeySlice { return it.key }

// Value returns the value of the current entry. It is only defined while
// IsValid returns true. The returned slice must not be modified.
func (it *BlockIterator) Value() []byte { return it.val }

// IsValid returns true while the cursor points at an entry.
func (it *BlockIterator) IsValid() bool { return it.idx < it.block.NumEntries() }

// Next advances the cursor to the next entry.
func (it *BlockIterator) Next() error {
	if !it.IsValid() {
		return invalidIteratorError("block iterator")
	}
	it.seekTo(it.idx + 1)
	return nil
}

// NumActiveIterators implements StorageIterator.
func (it *BlockIterator) NumActiveIterators() int { return 1 }

func (it *BlockIterator) seekTo(idx int) {
	if n := it.block.NumEntries(); idx >= n {
		it.idx = n
		it.key, it.val = nil, nil
		return
	}
	it.idx = idx
	it.key, it.val = it.block.entryAt(idx)
}
