package lsmtable

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/minio/minlz"
)

var zstdCodec struct {
	once sync.Once
	enc  *zstd.Encoder
	dec  *zstd.Decoder
	err  error
}

func zstdInit() error {
	zstdCodec.once.Do(func() {
		if zstdCodec.enc, zstdCodec.err = zstd.NewWriter(nil); zstdCodec.err != nil {
			return
		}
		zstdCodec.dec, zstdCodec.err = zstd.NewReader(nil)
	})
	return zstdCodec.err
}

// compressBlock compresses an encoded block into dst using c. The
// compressed form is only kept if it saves at least a quarter of the
// plain size, otherwise the plain block is returned with NoCompression.
func compressBlock(c Compression, dst, plain []byte) ([]byte, Compression, error) {
	var out []byte
	switch c {
	case NoCompression:
		return plain, NoCompression, nil
	case SnappyCompression:
		out = snappy.Encode(dst[:cap(dst)], plain)
	case ZstdCompression:
		if err := zstdInit(); err != nil {
			return nil, c, errors.Wrap(err, "lsmtable: init zstd")
		}
		out = zstdCodec.enc.EncodeAll(plain, dst[:0])
	case MinLZCompression:
		var err error
		if out, err = minlz.Encode(dst[:cap(dst)], plain, minlz.LevelBalanced); err != nil {
			return nil, c, errors.Wrap(err, "lsmtable: minlz compression")
		}
	default:
		return nil, c, errors.AssertionFailedf("lsmtable: unexpected compression %d", errors.Safe(c))
	}

	if len(out) < len(plain)-len(plain)/4 {
		return out, c, nil
	}
	return plain, NoCompression, nil
}

// decompressBlock returns the plain encoding of a stored block. The result
// never aliases stored unless c is NoCompression.
func decompressBlock(c Compression, stored []byte) ([]byte, error) {
	switch c {
	case NoCompression:
		return stored, nil
	case SnappyCompression:
		plain, err := snappy.Decode(nil, stored)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "lsmtable: snappy decode"), ErrCorruption)
		}
		return plain, nil
	case ZstdCompression:
		if err := zstdInit(); err != nil {
			return nil, errors.Wrap(err, "lsmtable: init zstd")
		}
		plain, err := zstdCodec.dec.DecodeAll(stored, nil)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "lsmtable: zstd decode"), ErrCorruption)
		}
		return plain, nil
	case MinLZCompression:
		plain, err := minlz.Decode(nil, stored)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "lsmtable: minlz decode"), ErrCorruption)
		}
		return plain, nil
	}
	return nil, corruptionErrorf("lsmtable: bad compression codec %d", c)
}
