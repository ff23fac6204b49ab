package lsmtable

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
)

// SsTableBuilder accumulates sorted key/value pairs into blocks and
// persists them as an immutable table.
type SsTableBuilder struct {
	o *Options

	builder  *BlockBuilder // the current block
	firstKey KeyVec        // first key of the current block
	lastKey  KeyVec        // last key added

	data []byte      // finished, stored blocks
	meta []BlockMeta // one per finished block

	buf []byte // plain block buffer
	cmp []byte // compression buffer
}

// NewSsTableBuilder creates a new builder.
func NewSsTableBuilder(o *Options) *SsTableBuilder {
	o = o.norm()
	return &SsTableBuilder{
		o:       o,
		builder: NewBlockBuilder(o.BlockSize),
	}
}

// Add adds a key/value pair. Keys must be non-empty and strictly
// increasing.
func (w *SsTableBuilder) Add(key KeySlice, value []byte) error {
	if w.builder == nil {
		return errClosed
	}
	if len(key) == 0 {
		return errEmptyKey
	}
	if len(key) > maxKeyLen || len(value) > maxValueLen {
		return errors.Wrapf(ErrKeyTooLarge, "key=%d value=%d bytes", len(key), len(value))
	}
	if (!w.builder.IsEmpty() || len(w.meta) != 0) && w.lastKey.Compare(key) >= 0 {
		return errors.Newf("lsmtable: attempted an out-of-order add, %q must be > %q", key, w.lastKey.AsSlice())
	}

	if w.builder.IsEmpty() {
		w.firstKey.SetFromSlice(key)
	}
	if w.builder.Add(key, value) {
		w.lastKey.SetFromSlice(key)
		return nil
	}

	if err := w.finishBlock(); err != nil {
		return err
	}
	if !w.builder.Add(key, value) {
		panic(errors.AssertionFailedf("lsmtable: empty block rejected an entry"))
	}
	w.firstKey.SetFromSlice(key)
	w.lastKey.SetFromSlice(key)
	return nil
}

// EstimatedSize returns the size of the finished data blocks. The meta
// region is not included.
func (w *SsTableBuilder) EstimatedSize() int {
	return len(w.data)
}

// Build finishes any pending block, writes the table to path using the
// configured FS and returns the opened table. The builder must not be used
// afterwards.
func (w *SsTableBuilder) Build(id uint64, c Cache, path string) (*SsTable, error) {
	if w.builder == nil {
		return nil, errClosed
	}
	if !w.builder.IsEmpty() {
		if err := w.finishBlock(); err != nil {
			return nil, err
		}
	}
	if len(w.meta) == 0 {
		return nil, ErrEmptyTable
	}

	metaOffset := len(w.data)
	buf := appendBlockMetas(w.data, w.meta)
	if int64(len(buf))+sizeofU32 > math.MaxUint32 {
		return nil, errors.Newf("lsmtable: table of %d bytes exceeds the 4GiB limit", len(buf))
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(metaOffset))

	file, err := CreateFile(w.o.FS, path, buf)
	if err != nil {
		return nil, err
	}

	t := &SsTable{
		file:            file,
		id:              id,
		cache:           c,
		logger:          w.o.Logger,
		blockMeta:       w.meta,
		blockMetaOffset: uint32(metaOffset),
		firstKey:        w.meta[0].FirstKey,
		lastKey:         w.meta[len(w.meta)-1].LastKey,
	}
	w.o.Logger.Infof("lsmtable: built table %d at %s (%d blocks, %d bytes)", id, path, len(w.meta), len(buf))

	w.builder, w.data, w.meta = nil, nil, nil
	return t, nil
}

func (w *SsTableBuilder) finishBlock() error {
	block := w.builder.Build()
	w.builder = NewBlockBuilder(w.o.BlockSize)

	w.buf = block.AppendEncoded(w.buf[:0])
	stored, codec, err := compressBlock(w.o.Compression, w.cmp, w.buf)
	if err != nil {
		return err
	}
	if codec != NoCompression {
		w.cmp = stored
	}

	if int64(len(w.data))+int64(len(stored)) > math.MaxUint32 {
		return errors.Newf("lsmtable: data region exceeds the 4GiB limit")
	}

	w.meta = append(w.meta, BlockMeta{
		Offset:      uint32(len(w.data)),
		FirstKey:    w.firstKey.Freeze(),
		LastKey:     w.lastKey.Freeze(),
		Compression: codec,
		Checksum:    checksum(stored),
	})
	w.data = append(w.data, stored...)
	w.firstKey.Clear()
	return nil
}
