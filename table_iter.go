package lsmtable

// SsTableIterator iterates over the entries of a table in key order,
// moving across block boundaries as needed.
type SsTableIterator struct {
	table  *SsTable
	blk    *BlockIterator
	blkIdx int
}

// NewSsTableIterator creates an iterator positioned at the first entry.
func NewSsTableIterator(t *SsTable) (*SsTableIterator, error) {
	it := &SsTableIterator{table: t}
	if err := it.SeekToFirst(); err != nil {
		return nil, err
	}
	return it, nil
}

// NewSsTableIteratorAt creates an iterator positioned at the first entry
// with a key >= key.
func NewSsTableIteratorAt(t *SsTable, key KeySlice) (*SsTableIterator, error) {
	it := &SsTableIterator{table: t}
	if err := it.SeekToKey(key); err != nil {
		return nil, err
	}
	return it, nil
}

// SeekToFirst positions the iterator at the first entry of the table.
func (it *SsTableIterator) SeekToFirst() error {
	b, err := it.table.ReadBlockCached(0)
	if err != nil {
		return err
	}
	it.blk = NewBlockIterator(b)
	it.blkIdx = 0
	return nil
}

// SeekToKey positions the iterator at the first entry with a key >= key,
// or invalidates it if key sorts after the whole table.
func (it *SsTableIterator) SeekToKey(key KeySlice) error {
	idx := it.table.FindBlockIdx(key)
	b, err := it.table.ReadBlockCached(idx)
	if err != nil {
		return err
	}

	blk := NewBlockIteratorAt(b, key)
	if !blk.IsValid() {
		// key falls after the last entry of the candidate block
		if next := idx + 1; next < it.table.NumBlocks() {
			if b, err = it.table.ReadBlockCached(next); err != nil {
				return err
			}
			blk = NewBlockIterator(b)
		}
		idx++
	}

	it.blk, it.blkIdx = blk, idx
	return nil
}

// Key implements StorageIterator.
func (it *SsTableIterator) Key() KeySlice { return it.blk.Key() }

// Value implements StorageIterator.
func (it *SsTableIterator) Value() []byte { return it.blk.Value() }

// IsValid implements StorageIterator.
func (it *SsTableIterator) IsValid() bool { return it.blk != nil && it.blk.IsValid() }

// NumActiveIterators implements StorageIterator.
func (it *SsTableIterator) NumActiveIterators() int { return 1 }

// Next implements StorageIterator.
func (it *SsTableIterator) Next() error {
	if !it.IsValid() {
		return invalidIteratorError("table iterator")
	}
	if err := it.blk.Next(); err != nil {
		return err
	}
	if it.blk.IsValid() {
		return nil
	}

	// more blocks
	if next := it.blkIdx + 1; next < it.table.NumBlocks() {
		b, err := it.table.ReadBlockCached(next)
		if err != nil {
			return err
		}
		it.blk = NewBlockIterator(b)
		it.blkIdx = next
	}
	return nil
}
