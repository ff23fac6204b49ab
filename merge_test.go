package lsmtable_test

import (
	"sort"

	"github.com/bsm/lsmtable"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// sliceIterator iterates over in-memory pairs and optionally fails when
// advancing from the entry at failAt.
type sliceIterator struct {
	pairs  []kv
	pos    int
	failAt int
}

func newSliceIterator(pairs ...kv) *sliceIterator {
	return &sliceIterator{pairs: pairs, failAt: -1}
}

func (it *sliceIterator) Key() lsmtable.KeySlice  { return lsmtable.KeySlice(it.pairs[it.pos].Key) }
func (it *sliceIterator) Value() []byte           { return []byte(it.pairs[it.pos].Value) }
func (it *sliceIterator) IsValid() bool           { return it.pos < len(it.pairs) }
func (it *sliceIterator) NumActiveIterators() int { return 1 }
func (it *sliceIterator) Next() error {
	if it.pos == it.failAt {
		return errors.New("boom")
	}
	it.pos++
	return nil
}

var _ = Describe("MergeIterator", func() {
	It("should merge sorted sources", func() {
		subject := lsmtable.NewMergeIterator([]lsmtable.StorageIterator{
			newSliceIterator(kv{"a", "1"}, kv{"d", "4"}),
			newSliceIterator(kv{"b", "2"}, kv{"e", "5"}),
			newSliceIterator(kv{"c", "3"}, kv{"f", "6"}),
		})
		Expect(subject.NumActiveIterators()).To(Equal(3))
		Expect(drain(subject)).To(Equal([]kv{
			{"a", "1"}, {"b", "2"}, {"c", "3"}, {"d", "4"}, {"e", "5"}, {"f", "6"},
		}))
		Expect(subject.IsValid()).To(BeFalse())
		Expect(subject.NumActiveIterators()).To(Equal(0))
	})

	It("should prefer lower indices on duplicate keys", func() {
		subject := lsmtable.NewMergeIterator([]lsmtable.StorageIterator{
			newSliceIterator(kv{"a", "1.0"}, kv{"b", "2.0"}, kv{"c", "3.0"}),
			newSliceIterator(kv{"a", "1.1"}, kv{"b", "2.1"}, kv{"d", "4.1"}),
			newSliceIterator(kv{"b", "2.2"}, kv{"c", "3.2"}, kv{"d", "4.2"}, kv{"e", "5.2"}),
		})
		Expect(drain(subject)).To(Equal([]kv{
			{"a", "1.0"}, {"b", "2.0"}, {"c", "3.0"}, {"d", "4.1"}, {"e", "5.2"},
		}))
	})

	It("should keep priorities when dropping invalid sources", func() {
		subject := lsmtable.NewMergeIterator([]lsmtable.StorageIterator{
			newSliceIterator(),
			newSliceIterator(kv{"a", "new"}),
			nil,
			newSliceIterator(kv{"a", "old"}, kv{"b", "old"}),
		})
		Expect(subject.NumActiveIterators()).To(Equal(2))
		Expect(drain(subject)).To(Equal([]kv{{"a", "new"}, {"b", "old"}}))
	})

	It("should handle no sources", func() {
		subject := lsmtable.NewMergeIterator(nil)
		Expect(subject.IsValid()).To(BeFalse())
		Expect(errors.Is(subject.Next(), lsmtable.ErrInvalidIterator)).To(BeTrue())
	})

	It("should drop sources that fail", func() {
		failing := newSliceIterator(kv{"a", "x"}, kv{"c", "x"})
		failing.failAt = 0

		subject := lsmtable.NewMergeIterator([]lsmtable.StorageIterator{
			newSliceIterator(kv{"a", "1"}, kv{"b", "2"}),
			failing,
		})
		Expect(subject.Key()).To(Equal(lsmtable.KeySlice("a")))
		Expect(subject.Next()).To(MatchError("boom"))
		Expect(subject.NumActiveIterators()).To(Equal(1))

		Expect(drain(subject)).To(Equal([]kv{{"a", "1"}, {"b", "2"}}))
	})

	It("should drop the current source on failure", func() {
		failing := newSliceIterator(kv{"a", "x"}, kv{"c", "x"})
		failing.failAt = 0

		subject := lsmtable.NewMergeIterator([]lsmtable.StorageIterator{
			failing,
			newSliceIterator(kv{"b", "2"}),
		})
		Expect(subject.Next()).To(MatchError("boom"))
		Expect(drain(subject)).To(Equal([]kv{{"b", "2"}}))
	})

	It("should produce the sorted union of random sources", func() {
		var (
			sources []lsmtable.StorageIterator
			want    = make(map[string]string)
		)
		shared := make([]string, 50)
		for i := range shared {
			shared[i] = uuid.NewString()
		}

		for n := 0; n < 5; n++ {
			var pairs []kv
			for _, k := range shared[n*5:] {
				pairs = append(pairs, kv{k, string(rune('0' + n))})
			}
			for i := 0; i < 100; i++ {
				pairs = append(pairs, kv{uuid.NewString(), string(rune('0' + n))})
			}
			sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
			for _, p := range pairs {
				if _, ok := want[p.Key]; !ok {
					want[p.Key] = p.Value
				}
			}
			sources = append(sources, newSliceIterator(pairs...))
		}

		res, err := drain(lsmtable.NewMergeIterator(sources))
		Expect(err).NotTo(HaveOccurred())
		Expect(res).To(HaveLen(len(want)))
		for i := 1; i < len(res); i++ {
			Expect(res[i-1].Key < res[i].Key).To(BeTrue(), "at %d", i)
		}
		for _, p := range res {
			Expect(p.Value).To(Equal(want[p.Key]), "for %s", p.Key)
		}
	})
})
