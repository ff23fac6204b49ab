package lsmtable_test

import (
	"bytes"
	"encoding/binary"

	"github.com/bsm/lsmtable"
	"github.com/cockroachdb/errors"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("BlockBuilder", func() {
	var subject *lsmtable.BlockBuilder

	BeforeEach(func() {
		subject = lsmtable.NewBlockBuilder(32)
	})

	It("should start empty", func() {
		Expect(subject.IsEmpty()).To(BeTrue())
		Expect(subject.Add([]byte("a"), []byte("1"))).To(BeTrue())
		Expect(subject.IsEmpty()).To(BeFalse())
	})

	It("should respect the size budget", func() {
		// 2 bytes count + 3 * (6 bytes entry + 2 bytes offset) = 26
		Expect(subject.Add([]byte("a"), []byte("1"))).To(BeTrue())
		Expect(subject.Add([]byte("b"), []byte("2"))).To(BeTrue())
		Expect(subject.Add([]byte("c"), []byte("3"))).To(BeTrue())
		Expect(subject.Add([]byte("d"), []byte("4"))).To(BeFalse())

		block := subject.Build()
		Expect(block.NumEntries()).To(Equal(3))
		Expect(block.Size()).To(Equal(26))
		Expect(block.Size()).To(BeNumerically("<=", 32))
	})

	It("should leave the block unmodified on rejection", func() {
		Expect(subject.Add([]byte("a"), bytes.Repeat([]byte{'x'}, 20))).To(BeTrue())
		Expect(subject.Add([]byte("b"), bytes.Repeat([]byte{'y'}, 20))).To(BeFalse())

		block := subject.Build()
		Expect(block.NumEntries()).To(Equal(1))
		Expect(block.FirstKey()).To(Equal(lsmtable.KeySlice("a")))
	})

	It("should accept a single oversized entry", func() {
		Expect(subject.Add([]byte("big"), bytes.Repeat([]byte{'x'}, 100))).To(BeTrue())
		Expect(subject.Add([]byte("c"), []byte("3"))).To(BeFalse())

		block := subject.Build()
		Expect(block.NumEntries()).To(Equal(1))
		Expect(block.Size()).To(BeNumerically(">", 32))
	})

	It("should reject empty keys", func() {
		Expect(func() { subject.Add(nil, []byte("v")) }).To(Panic())
		Expect(subject.IsEmpty()).To(BeTrue())
	})
})

var _ = Describe("Block", func() {
	build := func(keys ...string) *lsmtable.Block {
		bb := lsmtable.NewBlockBuilder(4096)
		for _, k := range keys {
			Expect(bb.Add([]byte(k), []byte("v"+k))).To(BeTrue())
		}
		return bb.Build()
	}

	It("should encode", func() {
		block := build("a", "b")
		Expect(block.Encode()).To(Equal([]byte{
			0, 1, 'a', 0, 2, 'v', 'a', // entry 1
			0, 1, 'b', 0, 2, 'v', 'b', // entry 2
			0, 0, 0, 7, // offsets
			0, 2, // number of entries
		}))
	})

	It("should round-trip", func() {
		block := build("apple", "banana", "cherry", "date")
		enc := block.Encode()

		decoded, err := lsmtable.DecodeBlock(enc)
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.NumEntries()).To(Equal(4))
		Expect(decoded.FirstKey()).To(Equal(lsmtable.KeySlice("apple")))
		Expect(decoded.Encode()).To(Equal(enc))
		Expect(decoded.Size()).To(Equal(len(enc)))

		iter := lsmtable.NewBlockIterator(decoded)
		Expect(drain(iter)).To(Equal([]kv{
			{"apple", "vapple"},
			{"banana", "vbanana"},
			{"cherry", "vcherry"},
			{"date", "vdate"},
		}))
	})

	It("should round-trip empty blocks", func() {
		decoded, err := lsmtable.DecodeBlock(build().Encode())
		Expect(err).NotTo(HaveOccurred())
		Expect(decoded.NumEntries()).To(Equal(0))
		Expect(decoded.FirstKey()).To(BeNil())
	})

	DescribeTable("should detect corruption",
		func(p []byte) {
			_, err := lsmtable.DecodeBlock(p)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, lsmtable.ErrCorruption)).To(BeTrue(), "for %v", err)
		},
		Entry("empty", []byte{}),
		Entry("single byte", []byte{1}),
		Entry("too many offsets", []byte{0, 0, 0, 5}),
		Entry("data without entries", []byte{1, 2, 3, 0, 0}),
		Entry("bad first offset", []byte{0, 1, 'a', 0, 0, 0, 1, 0, 1}),
		Entry("truncated entry", []byte{0, 1, 'a', 0, 9, 'v', 0, 0, 0, 1}),
		Entry("offset out of range", []byte{0, 1, 'a', 0, 0, 0, 0, 0, 9, 0, 2}),
		Entry("empty key", []byte{0, 0, 0, 0, 0, 0, 0, 1}),
		Entry("out of order", []byte{0, 1, 'b', 0, 0, 0, 1, 'a', 0, 0, 0, 0, 0, 5, 0, 2}),
	)

	It("should detect duplicate keys", func() {
		enc := build("a").Encode()
		entry := enc[:len(enc)-4]
		raw := append(append([]byte{}, entry...), entry...)
		raw = binary.BigEndian.AppendUint16(raw, 0)
		raw = binary.BigEndian.AppendUint16(raw, uint16(len(entry)))
		raw = binary.BigEndian.AppendUint16(raw, 2)

		_, err := lsmtable.DecodeBlock(raw)
		Expect(errors.Is(err, lsmtable.ErrCorruption)).To(BeTrue())
	})
})
