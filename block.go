package lsmtable

import (
	"bytes"
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

const maxBlockSize = 1<<16 - 1

// Block is the smallest unit of disk I/O and caching. It is a sorted run
// of key/value pairs plus the offsets of each entry within the data
// region. Blocks are immutable once built or decoded and can be shared
// across readers.
type Block struct {
	data    []byte
	offsets []uint16
}

// NumEntries returns the number of entries in the block.
func (b *Block) NumEntries() int { return len(b.offsets) }

// Size returns the encoded size of the block in bytes.
func (b *Block) Size() int {
	return len(b.data) + len(b.offsets)*sizeofU16 + sizeofU16
}

// FirstKey returns the first key of the block, or nil if the block is
// empty.
func (b *Block) FirstKey() KeySlice {
	if len(b.offsets) == 0 {
		return nil
	}
	return b.keyAt(0)
}

// Encode encodes the block as:
//
//	entry* | offset:u16* | num_entries:u16
func (b *Block) Encode() []byte {
	return b.AppendEncoded(make([]byte, 0, b.Size()))
}

// AppendEncoded appends the block encoding to dst.
func (b *Block) AppendEncoded(dst []byte) []byte {
	dst = append(dst, b.data...)
	for _, off := range b.offsets {
		dst = binary.BigEndian.AppendUint16(dst, off)
	}
	return binary.BigEndian.AppendUint16(dst, uint16(len(b.offsets)))
}

// DecodeBlock decodes an encoded block. The returned block retains p,
// which must not be modified afterwards. Malformed input results in an
// error marked as ErrCorruption.
func DecodeBlock(p []byte) (*Block, error) {
	if len(p) < sizeofU16 {
		return nil, corruptionErrorf("lsmtable: block too short (%d bytes)", len(p))
	}

	num := int(binary.BigEndian.Uint16(p[len(p)-sizeofU16:]))
	if len(p) < sizeofU16+num*sizeofU16 {
		return nil, corruptionErrorf("lsmtable: block of %d bytes cannot hold %d offsets", len(p), num)
	}

	dataEnd := len(p) - sizeofU16 - num*sizeofU16
	offsets := make([]uint16, num)
	for i := range offsets {
		offsets[i] = binary.BigEndian.Uint16(p[dataEnd+i*sizeofU16:])
	}

	b := &Block{data: p[:dataEnd:dataEnd], offsets: offsets}
	if err := b.validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// validate checks that every entry lies within the data region and that
// keys are strictly increasing.
func (b *Block) validate() error {
	if len(b.offsets) == 0 {
		if len(b.data) != 0 {
			return corruptionErrorf("lsmtable: block has %d data bytes but no entries", len(b.data))
		}
		return nil
	}
	if b.offsets[0] != 0 {
		return corruptionErrorf("lsmtable: first block entry at offset %d", b.offsets[0])
	}

	var prev []byte
	for i := range b.offsets {
		start := int(b.offsets[i])
		end := len(b.data)
		if i+1 < len(b.offsets) {
			end = int(b.offsets[i+1])
		}
		if end <= start || end > len(b.data) {
			return corruptionErrorf("lsmtable: block entry %d has bad bounds [%d,%d)", i, start, end)
		}

		key, _, n, ok := decodeEntry(b.data[start:end])
		if !ok || n != end-start {
			return corruptionErrorf("lsmtable: block entry %d is malformed", i)
		}
		if len(key) == 0 {
			return corruptionErrorf("lsmtable: block entry %d has an empty key", i)
		}
		if prev != nil && bytes.Compare(prev, key) >= 0 {
			return corruptionErrorf("lsmtable: block entry %d is out of order", i)
		}
		prev = key
	}
	return nil
}

func (b *Block) entryAt(i int) (key, value []byte) {
	key, value, _, _ = decodeEntry(b.data[b.offsets[i]:])
	return key, value
}

func (b *Block) keyAt(i int) KeySlice {
	p := b.data[b.offsets[i]:]
	klen := int(binary.BigEndian.Uint16(p))
	return p[sizeofU16 : sizeofU16+klen : sizeofU16+klen]
}

// decodeEntry decodes a single key_len|key|value_len|value entry from the
// front of p and returns the number of bytes consumed.
func decodeEntry(p []byte) (key, value []byte, n int, ok bool) {
	if len(p) < sizeofU16 {
		return nil, nil, 0, false
	}
	klen := int(binary.BigEndian.Uint16(p))
	n = sizeofU16
	if len(p) < n+klen+sizeofU16 {
		return nil, nil, 0, false
	}
	key = p[n : n+klen : n+klen]
	n += klen

	vlen := int(binary.BigEndian.Uint16(p[n:]))
	n += sizeofU16
	if len(p) < n+vlen {
		return nil, nil, 0, false
	}
	value = p[n : n+vlen : n+vlen]
	n += vlen
	return key, value, n, true
}

// --------------------------------------------------------------------

// BlockBuilder accumulates sorted key/value pairs into a single block
// under a target size budget.
type BlockBuilder struct {
	data      []byte
	offsets   []uint16
	blockSize int
}

// NewBlockBuilder creates a builder with the given target size in bytes.
// Sizes above 65535 are capped.
func NewBlockBuilder(blockSize int) *BlockBuilder {
	if blockSize > maxBlockSize {
		blockSize = maxBlockSize
	}
	return &BlockBuilder{blockSize: blockSize}
}

// estimatedSize returns the encoded size of the block built so far.
func (b *BlockBuilder) estimatedSize() int {
	return len(b.data) + len(b.offsets)*sizeofU16 + sizeofU16
}

// Add adds a key/value pair to the block. It returns false, leaving the
// block unmodified, when the entry would push the block over its budget.
// An empty block accepts any single entry. Keys must be non-empty, at most
// 65535 bytes long and added in strictly increasing order.
func (b *BlockBuilder) Add(key KeySlice, value []byte) bool {
	if len(key) == 0 {
		panic(errors.AssertionFailedf("lsmtable: empty key added to block"))
	}
	if len(key) > maxKeyLen || len(value) > maxValueLen {
		panic(errors.AssertionFailedf("lsmtable: entry exceeds block limits (key=%d, value=%d bytes)", len(key), len(value)))
	}

	entrySize := sizeofU16 + len(key) + sizeofU16 + len(value) + sizeofU16
	if !b.IsEmpty() && b.estimatedSize()+entrySize > b.blockSize {
		return false
	}

	b.offsets = append(b.offsets, uint16(len(b.data)))
	b.data = binary.BigEndian.AppendUint16(b.data, uint16(len(key)))
	b.data = append(b.data, key...)
	b.data = binary.BigEndian.AppendUint16(b.data, uint16(len(value)))
	b.data = append(b.data, value...)
	return true
}

// IsEmpty returns true if no entries were added.
func (b *BlockBuilder) IsEmpty() bool { return len(b.offsets) == 0 }

// Build finalizes the block. The builder must not be used afterwards.
func (b *BlockBuilder) Build() *Block {
	blk := &Block{data: b.data, offsets: b.offsets}
	b.data, b.offsets = nil, nil
	return blk
}
