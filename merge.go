package lsmtable

import "bytes"

type mergeItem struct {
	index int // source priority, lower wins on duplicate keys
	iter  StorageIterator
}

// less orders items by (key, index).
func (a *mergeItem) less(b *mergeItem) bool {
	if c := bytes.Compare(a.iter.Key(), b.iter.Key()); c != 0 {
		return c < 0
	}
	return a.index < b.index
}

// mergeHeap is a min-heap of valid iterators.
type mergeHeap struct {
	items []*mergeItem
}

func (h *mergeHeap) len() int { return len(h.items) }

func (h *mergeHeap) top() *mergeItem { return h.items[0] }

func (h *mergeHeap) init() {
	n := h.len()
	for i := n/2 - 1; i >= 0; i-- {
		h.down(i, n)
	}
}

// fixTop restores the heap property after the top item has moved.
func (h *mergeHeap) fixTop() { h.down(0, h.len()) }

// pop removes and returns the top item.
func (h *mergeHeap) pop() *mergeItem {
	n := h.len() - 1
	h.items[0], h.items[n] = h.items[n], h.items[0]
	h.down(0, n)
	item := h.items[n]
	h.items[n] = nil
	h.items = h.items[:n]
	return item
}

// replaceTop swaps item in as the new top and returns the old one.
func (h *mergeHeap) replaceTop(item *mergeItem) *mergeItem {
	old := h.items[0]
	h.items[0] = item
	h.fixTop()
	return old
}

func (h *mergeHeap) down(i, n int) {
	for {
		j := 2*i + 1
		if j >= n || j < 0 { // j < 0 after int overflow
			break
		}
		if j2 := j + 1; j2 < n && h.items[j2].less(h.items[j]) {
			j = j2
		}
		if !h.items[j].less(h.items[i]) {
			break
		}
		h.items[i], h.items[j] = h.items[j], h.items[i]
		i = j
	}
}

// --------------------------------------------------------------------

// MergeIterator combines multiple iterators into a single sorted stream.
// When the same key occurs in more than one source, only the entry of the
// source with the smallest index in the slice passed to NewMergeIterator
// is emitted.
type MergeIterator struct {
	heap    mergeHeap
	current *mergeItem // the global minimum, held outside the heap
}

// NewMergeIterator creates a merge iterator. Invalid iterators are dropped
// but the remaining ones keep the priority of their original position.
func NewMergeIterator(iters []StorageIterator) *MergeIterator {
	m := &MergeIterator{}
	for i, it := range iters {
		if it != nil && it.IsValid() {
			m.heap.items = append(m.heap.items, &mergeItem{index: i, iter: it})
		}
	}
	m.heap.init()
	if m.heap.len() != 0 {
		m.current = m.heap.pop()
	}
	return m
}

// Key implements StorageIterator.
func (m *MergeIterator) Key() KeySlice { return m.current.iter.Key() }

// Value implements StorageIterator.
func (m *MergeIterator) Value() []byte { return m.current.iter.Value() }

// IsValid implements StorageIterator.
func (m *MergeIterator) IsValid() bool {
	return m.current != nil && m.current.iter.IsValid()
}

// NumActiveIterators implements StorageIterator.
func (m *MergeIterator) NumActiveIterators() int {
	var n int
	for _, item := range m.heap.items {
		n += item.iter.NumActiveIterators()
	}
	if m.current != nil {
		n += m.current.iter.NumActiveIterators()
	}
	return n
}

// Next implements StorageIterator. A source that fails while advancing is
// removed from the merge before the error is returned.
func (m *MergeIterator) Next() error {
	if !m.IsValid() {
		return invalidIteratorError("merge iterator")
	}

	current := m.current
	currentKey := current.iter.Key()

	// skip the same key in lower-priority sources
	for m.heap.len() != 0 {
		top := m.heap.top()
		if !bytes.Equal(top.iter.Key(), currentKey) {
			break
		}
		if err := top.iter.Next(); err != nil {
			m.heap.pop()
			return err
		}
		if top.iter.IsValid() {
			m.heap.fixTop()
		} else {
			m.heap.pop()
		}
	}

	if err := current.iter.Next(); err != nil {
		m.promote()
		return err
	}

	if !current.iter.IsValid() {
		m.promote()
		return nil
	}

	if m.heap.len() != 0 && m.heap.top().less(current) {
		m.current = m.heap.replaceTop(current)
	}
	return nil
}

// promote replaces the current source with the heap top, if any.
func (m *MergeIterator) promote() {
	if m.heap.len() == 0 {
		m.current = nil
		return
	}
	m.current = m.heap.pop()
}
