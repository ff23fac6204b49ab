package lsmtable

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
)

// SsTable is an immutable, persisted table. It is safe for concurrent use
// by multiple readers.
type SsTable struct {
	file   *FileObject
	id     uint64
	cache  Cache
	logger Logger

	blockMeta       []BlockMeta
	blockMetaOffset uint32

	firstKey KeyBytes
	lastKey  KeyBytes

	filter []byte // reserved, always empty
	maxTS  uint64 // reserved, always zero
}

// OpenTable opens a persisted table. The cache may be nil. Only the Logger
// of the options is used.
func OpenTable(id uint64, c Cache, file *FileObject, o *Options) (*SsTable, error) {
	o = o.norm()

	size := file.Size()
	if size < sizeofU32 {
		return nil, corruptionErrorf("lsmtable: %s is too short (%d bytes)", file.Name(), size)
	}

	// read footer
	footer, err := file.Read(size-sizeofU32, sizeofU32)
	if err != nil {
		return nil, err
	}
	metaOffset := int64(binary.BigEndian.Uint32(footer))
	if metaOffset > size-sizeofU32 {
		return nil, corruptionErrorf("lsmtable: %s has meta offset %d beyond end of file", file.Name(), metaOffset)
	}

	// read meta region
	raw, err := file.Read(metaOffset, int(size-sizeofU32-metaOffset))
	if err != nil {
		return nil, err
	}
	metas, err := decodeBlockMetas(raw)
	if err != nil {
		o.Logger.Errorf("lsmtable: open %s: %v", file.Name(), err)
		return nil, errors.Wrapf(err, "lsmtable: open %s", file.Name())
	}
	if last := metas[len(metas)-1]; int64(last.Offset) >= metaOffset {
		return nil, corruptionErrorf("lsmtable: %s has block %d beyond the data region", file.Name(), len(metas)-1)
	}

	o.Logger.Infof("lsmtable: opened table %d at %s (%d blocks, %d bytes)", id, file.Name(), len(metas), size)
	return &SsTable{
		file:            file,
		id:              id,
		cache:           c,
		logger:          o.Logger,
		blockMeta:       metas,
		blockMetaOffset: uint32(metaOffset),
		firstKey:        metas[0].FirstKey,
		lastKey:         metas[len(metas)-1].LastKey,
	}, nil
}

// ID returns the table id.
func (t *SsTable) ID() uint64 { return t.id }

// FirstKey returns the smallest key in the table.
func (t *SsTable) FirstKey() KeyBytes { return t.firstKey }

// LastKey returns the largest key in the table.
func (t *SsTable) LastKey() KeyBytes { return t.lastKey }

// NumBlocks returns the number of stored blocks.
func (t *SsTable) NumBlocks() int { return len(t.blockMeta) }

// BlockMeta returns the meta of the n-th block.
func (t *SsTable) BlockMeta(n int) BlockMeta { return t.blockMeta[n] }

// MetaOffset returns the offset of the meta region, which is also the size
// of the data region.
func (t *SsTable) MetaOffset() uint32 { return t.blockMetaOffset }

// TableSize returns the file size in bytes.
func (t *SsTable) TableSize() int64 { return t.file.Size() }

// MaxTS is reserved for versioned reads and is always zero.
func (t *SsTable) MaxTS() uint64 { return t.maxTS }

// Filter is reserved for a serialized key filter and is always empty.
func (t *SsTable) Filter() []byte { return t.filter }

// Close closes the underlying file. The table and its iterators must not
// be used afterwards.
func (t *SsTable) Close() error { return t.file.Close() }

// FindBlockIdx returns the index of the only block that may contain key:
// the last block whose first key is <= key, or 0 if key sorts before the
// whole table.
func (t *SsTable) FindBlockIdx(key KeySlice) int {
	n := sort.Search(len(t.blockMeta), func(i int) bool {
		return t.blockMeta[i].FirstKey.Compare(key) > 0
	})
	if n > 0 {
		n--
	}
	return n
}

// ReadBlockCached returns the n-th block, consulting the cache first and
// populating it on a miss. A miss blocks on disk I/O.
func (t *SsTable) ReadBlockCached(n int) (*Block, error) {
	if t.cache != nil {
		if b, ok := t.cache.Get(t.id, n); ok {
			return b, nil
		}
	}

	b, err := t.ReadBlock(n)
	if err != nil {
		return nil, err
	}
	if t.cache != nil {
		t.cache.Insert(t.id, n, b)
	}
	return b, nil
}

// ReadBlock reads, verifies and decodes the n-th block from disk.
func (t *SsTable) ReadBlock(n int) (*Block, error) {
	if n < 0 || n >= len(t.blockMeta) {
		return nil, errors.AssertionFailedf("lsmtable: block %d out of range [0,%d)", n, len(t.blockMeta))
	}

	meta := &t.blockMeta[n]
	min := int64(meta.Offset)
	max := int64(t.blockMetaOffset)
	if next := n + 1; next < len(t.blockMeta) {
		max = int64(t.blockMeta[next].Offset)
	}

	var raw []byte
	if meta.Compression == NoCompression {
		raw = make([]byte, int(max-min)) // retained by the block
	} else {
		raw = fetchBuffer(int(max - min))
		defer releaseBuffer(raw)
	}
	if err := t.file.ReadInto(raw, min); err != nil {
		return nil, err
	}

	if actual := checksum(raw); actual != meta.Checksum {
		t.logger.Errorf("lsmtable: table %d block %d checksum mismatch", t.id, n)
		return nil, corruptionErrorf("lsmtable: table %d block %d checksum mismatch %08x != %08x",
			t.id, n, actual, meta.Checksum)
	}

	plain, err := decompressBlock(meta.Compression, raw)
	if err != nil {
		return nil, err
	}
	return DecodeBlock(plain)
}

// Append retrieves a single value for a key and appends it to dst.
// It may return an ErrNotFound error.
func (t *SsTable) Append(dst []byte, key KeySlice) ([]byte, error) {
	if t.firstKey.Compare(key) > 0 || t.lastKey.Compare(key) < 0 {
		return dst, ErrNotFound
	}

	b, err := t.ReadBlockCached(t.FindBlockIdx(key))
	if err != nil {
		return dst, err
	}

	iter := NewBlockIteratorAt(b, key)
	if !iter.IsValid() || !iter.Key().Equal(key) {
		return dst, ErrNotFound
	}
	return append(dst, iter.Value()...), nil
}

// Get is a shortcut for Append(nil, key).
// It may return an ErrNotFound error.
func (t *SsTable) Get(key KeySlice) ([]byte, error) {
	return t.Append(nil, key)
}

// --------------------------------------------------------------------

var bufPool sync.Pool

func fetchBuffer(sz int) []byte {
	if v := bufPool.Get(); v != nil {
		if p := v.([]byte); sz <= cap(p) {
			return p[:sz]
		}
	}
	return make([]byte, sz)
}

func releaseBuffer(p []byte) {
	if cap(p) != 0 {
		bufPool.Put(p)
	}
}
