package lsmtable

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// BlockMeta describes a single block within a table.
type BlockMeta struct {
	// Offset is the position of the stored block within the data region.
	Offset uint32
	// FirstKey and LastKey are the inclusive key bounds of the block.
	FirstKey KeyBytes
	LastKey  KeyBytes
	// Compression is the codec the block is stored with.
	Compression Compression
	// Checksum covers the stored (possibly compressed) block bytes.
	Checksum uint32
}

func (m *BlockMeta) encodedLen() int {
	return sizeofU32 + sizeofU16 + m.FirstKey.Len() + sizeofU16 + m.LastKey.Len() + 1 + sizeofU32
}

func checksum(p []byte) uint32 {
	return uint32(xxhash.Sum64(p))
}

// appendBlockMetas encodes the meta region:
//
//	num_metas:u32 | meta* | checksum:u32
//	meta := offset:u32 | first_len:u16 | first | last_len:u16 | last | codec:u8 | checksum:u32
func appendBlockMetas(dst []byte, metas []BlockMeta) []byte {
	start := len(dst)
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(metas)))
	for i := range metas {
		m := &metas[i]
		dst = binary.BigEndian.AppendUint32(dst, m.Offset)
		dst = binary.BigEndian.AppendUint16(dst, uint16(m.FirstKey.Len()))
		dst = append(dst, m.FirstKey.AsSlice()...)
		dst = binary.BigEndian.AppendUint16(dst, uint16(m.LastKey.Len()))
		dst = append(dst, m.LastKey.AsSlice()...)
		dst = append(dst, byte(m.Compression))
		dst = binary.BigEndian.AppendUint32(dst, m.Checksum)
	}
	return binary.BigEndian.AppendUint32(dst, checksum(dst[start:]))
}

// decodeBlockMetas decodes a meta region as written by appendBlockMetas.
func decodeBlockMetas(p []byte) ([]BlockMeta, error) {
	if len(p) < 2*sizeofU32 {
		return nil, corruptionErrorf("lsmtable: meta region too short (%d bytes)", len(p))
	}

	body, sum := p[:len(p)-sizeofU32], binary.BigEndian.Uint32(p[len(p)-sizeofU32:])
	if actual := checksum(body); actual != sum {
		return nil, corruptionErrorf("lsmtable: meta checksum mismatch %08x != %08x", actual, sum)
	}

	num := int(binary.BigEndian.Uint32(body))
	pos := sizeofU32
	if num == 0 {
		return nil, corruptionErrorf("lsmtable: table has no blocks")
	}
	if minLen := sizeofU32 + 2*(sizeofU16+1) + 1 + sizeofU32; num > (len(body)-pos)/minLen {
		return nil, corruptionErrorf("lsmtable: meta region too short for %d blocks", num)
	}

	readKey := func() (KeyBytes, bool) {
		if len(body)-pos < sizeofU16 {
			return KeyBytes{}, false
		}
		n := int(binary.BigEndian.Uint16(body[pos:]))
		pos += sizeofU16
		if n == 0 || len(body)-pos < n {
			return KeyBytes{}, false
		}
		k := NewKeyBytes(body[pos : pos+n])
		pos += n
		return k, true
	}

	metas := make([]BlockMeta, 0, num)
	for i := 0; i < num; i++ {
		var m BlockMeta
		var ok bool

		if len(body)-pos < sizeofU32 {
			return nil, corruptionErrorf("lsmtable: truncated block meta %d", i)
		}
		m.Offset = binary.BigEndian.Uint32(body[pos:])
		pos += sizeofU32

		if m.FirstKey, ok = readKey(); !ok {
			return nil, corruptionErrorf("lsmtable: bad first key in block meta %d", i)
		}
		if m.LastKey, ok = readKey(); !ok {
			return nil, corruptionErrorf("lsmtable: bad last key in block meta %d", i)
		}

		if len(body)-pos < 1+sizeofU32 {
			return nil, corruptionErrorf("lsmtable: truncated block meta %d", i)
		}
		m.Compression = Compression(body[pos])
		pos++
		m.Checksum = binary.BigEndian.Uint32(body[pos:])
		pos += sizeofU32

		if !m.Compression.isValid() {
			return nil, corruptionErrorf("lsmtable: bad compression codec %d in block meta %d", m.Compression, i)
		}
		if m.FirstKey.Compare(m.LastKey.AsSlice()) > 0 {
			return nil, corruptionErrorf("lsmtable: block meta %d has first key > last key", i)
		}
		if i > 0 {
			prev := &metas[i-1]
			if m.Offset <= prev.Offset || prev.LastKey.Compare(m.FirstKey.AsSlice()) >= 0 {
				return nil, corruptionErrorf("lsmtable: block meta %d overlaps its predecessor", i)
			}
		} else if m.Offset != 0 {
			return nil, corruptionErrorf("lsmtable: first block at offset %d", m.Offset)
		}
		metas = append(metas, m)
	}

	if pos != len(body) {
		return nil, corruptionErrorf("lsmtable: %d trailing bytes in meta region", len(body)-pos)
	}
	return metas, nil
}
