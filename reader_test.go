package lsmtable_test

import (
	"io"

	"github.com/bsm/lsmtable"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble/vfs"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"golang.org/x/sync/errgroup"
)

var _ = Describe("SsTable", func() {
	var fs vfs.FS
	var subject *lsmtable.SsTable

	// The following will seed 100 keys into 25 blocks:
	//
	// B0:  key_000000..key_000006
	// B1:  key_000008..key_000014
	// ...
	// B24: key_000192..key_000198
	//
	BeforeEach(func() {
		var err error
		fs = vfs.NewMem()
		subject, err = seedTable(fs, nil, 100, seedOptions(fs))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		_ = subject.Close()
	})

	rewrite := func(name string, fn func([]byte) []byte) {
		f, err := fs.Open(name)
		Expect(err).NotTo(HaveOccurred())
		data, err := io.ReadAll(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(f.Close()).To(Succeed())

		data = fn(data)
		w, err := fs.Create(name)
		Expect(err).NotTo(HaveOccurred())
		_, err = w.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(w.Close()).To(Succeed())
	}

	open := func(name string, c lsmtable.Cache) (*lsmtable.SsTable, error) {
		file, err := lsmtable.OpenFile(fs, name)
		Expect(err).NotTo(HaveOccurred())
		return lsmtable.OpenTable(2, c, file, seedOptions(fs))
	}

	It("should init", func() {
		Expect(subject.NumBlocks()).To(Equal(25))
		Expect(subject.FirstKey().String()).To(Equal("key_000000"))
		Expect(subject.LastKey().String()).To(Equal("key_000198"))
		Expect(subject.TableSize()).To(BeNumerically(">", 25*114))
	})

	It("should find blocks", func() {
		Expect(subject.FindBlockIdx([]byte("a"))).To(Equal(0))
		Expect(subject.FindBlockIdx([]byte("key_000000"))).To(Equal(0))
		Expect(subject.FindBlockIdx([]byte("key_000007"))).To(Equal(0))
		Expect(subject.FindBlockIdx([]byte("key_000008"))).To(Equal(1))
		Expect(subject.FindBlockIdx([]byte("key_000100"))).To(Equal(12))
		Expect(subject.FindBlockIdx([]byte("key_000198"))).To(Equal(24))
		Expect(subject.FindBlockIdx([]byte("z"))).To(Equal(24))
	})

	It("should read blocks", func() {
		block, err := subject.ReadBlock(1)
		Expect(err).NotTo(HaveOccurred())
		Expect(block.NumEntries()).To(Equal(4))
		Expect(block.FirstKey()).To(Equal(lsmtable.KeySlice("key_000008")))

		meta := subject.BlockMeta(1)
		Expect(meta.FirstKey.String()).To(Equal("key_000008"))
		Expect(meta.LastKey.String()).To(Equal("key_000014"))
		Expect(meta.Offset).To(Equal(uint32(114)))

		_, err = subject.ReadBlock(25)
		Expect(err).To(HaveOccurred())
	})

	It("should Get/Append", func() {
		for i := 0; i < 100; i++ {
			Expect(subject.Get(seedKey(i))).To(Equal(seedValue(i)), "for %d", i)
		}

		Expect(subject.Append([]byte("prefix:"), seedKey(3))).To(Equal([]byte("prefix:value_000006")))

		for _, key := range []string{"a", "key_000001", "key_000007", "key_000199", "z"} {
			_, err := subject.Get([]byte(key))
			Expect(err).To(MatchError(lsmtable.ErrNotFound), "for %s", key)
		}
	})

	It("should re-open", func() {
		Expect(subject.Close()).To(Succeed())

		table, err := open("000001.sst", nil)
		Expect(err).NotTo(HaveOccurred())
		defer table.Close()

		Expect(table.ID()).To(Equal(uint64(2)))
		Expect(table.NumBlocks()).To(Equal(25))
		Expect(table.FirstKey().String()).To(Equal("key_000000"))
		Expect(table.LastKey().String()).To(Equal("key_000198"))
		for i := 0; i < table.NumBlocks(); i++ {
			Expect(table.BlockMeta(i)).To(Equal(subject.BlockMeta(i)))
		}

		iter, err := lsmtable.NewSsTableIterator(table)
		Expect(err).NotTo(HaveOccurred())
		res, err := drain(iter)
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(HaveLen(100))
	})

	It("should use the cache", func() {
		Expect(subject.Close()).To(Succeed())

		bc := lsmtable.NewBlockCache(1 << 20)
		table, err := open("000001.sst", bc)
		Expect(err).NotTo(HaveOccurred())
		defer table.Close()

		b1, err := table.ReadBlockCached(3)
		Expect(err).NotTo(HaveOccurred())
		b2, err := table.ReadBlockCached(3)
		Expect(err).NotTo(HaveOccurred())
		Expect(b2).To(BeIdenticalTo(b1))

		m := bc.Metrics()
		Expect(m.Hits).To(Equal(int64(1)))
		Expect(m.Misses).To(Equal(int64(1)))
		Expect(m.Count).To(Equal(1))

		bc.EvictTable(table.ID())
		Expect(bc.Metrics().Count).To(Equal(0))
	})

	It("should serve concurrent readers", func() {
		Expect(subject.Close()).To(Succeed())

		bc := lsmtable.NewBlockCache(4096)
		table, err := open("000001.sst", bc)
		Expect(err).NotTo(HaveOccurred())
		defer table.Close()

		var g errgroup.Group
		for n := 0; n < 8; n++ {
			n := n
			g.Go(func() error {
				for i := n; i < 100; i += 3 {
					val, err := table.Get(seedKey(i))
					if err != nil {
						return err
					}
					if string(val) != string(seedValue(i)) {
						return errors.Newf("bad value for %d: %q", i, val)
					}
				}

				iter, err := lsmtable.NewSsTableIterator(table)
				if err != nil {
					return err
				}
				res, err := drain(iter)
				if err != nil {
					return err
				}
				if len(res) != 100 {
					return errors.Newf("scanned %d entries", len(res))
				}
				return nil
			})
		}
		Expect(g.Wait()).To(Succeed())
	})

	It("should detect block corruption", func() {
		Expect(subject.Close()).To(Succeed())
		rewrite("000001.sst", func(p []byte) []byte {
			p[120] ^= 0xff // within block 1
			return p
		})

		table, err := open("000001.sst", nil)
		Expect(err).NotTo(HaveOccurred())
		defer table.Close()

		_, err = table.ReadBlock(0)
		Expect(err).NotTo(HaveOccurred())
		_, err = table.ReadBlock(1)
		Expect(errors.Is(err, lsmtable.ErrCorruption)).To(BeTrue())

		iter, err := lsmtable.NewSsTableIterator(table)
		Expect(err).NotTo(HaveOccurred())
		_, err = drain(iter)
		Expect(errors.Is(err, lsmtable.ErrCorruption)).To(BeTrue())
	})

	It("should detect meta corruption", func() {
		Expect(subject.Close()).To(Succeed())
		rewrite("000001.sst", func(p []byte) []byte {
			p[len(p)-6] ^= 0xff // within the meta checksum
			return p
		})

		_, err := open("000001.sst", nil)
		Expect(errors.Is(err, lsmtable.ErrCorruption)).To(BeTrue())
	})

	It("should detect truncation", func() {
		Expect(subject.Close()).To(Succeed())
		rewrite("000001.sst", func(p []byte) []byte { return p[:len(p)-10] })

		_, err := open("000001.sst", nil)
		Expect(errors.Is(err, lsmtable.ErrCorruption)).To(BeTrue())

		rewrite("000001.sst", func(p []byte) []byte { return p[:2] })
		_, err = open("000001.sst", nil)
		Expect(errors.Is(err, lsmtable.ErrCorruption)).To(BeTrue())
	})

	It("should propagate I/O errors", func() {
		_, err := lsmtable.OpenFile(fs, "missing.sst")
		Expect(err).To(HaveOccurred())
		Expect(errors.Is(err, lsmtable.ErrCorruption)).To(BeFalse())
	})
})
