package lsmtable

import "bytes"

// KeySlice is a borrowed, read-only view of a key. Views returned by
// iterators are only guaranteed until the next call that moves the
// iterator and must be copied (e.g. via KeyVec or NewKeyBytes) to be
// retained.
type KeySlice []byte

// Len returns the key length in bytes.
func (k KeySlice) Len() int { return len(k) }

// IsEmpty returns true for the empty key.
func (k KeySlice) IsEmpty() bool { return len(k) == 0 }

// Compare compares two keys as raw bytes.
func (k KeySlice) Compare(o KeySlice) int { return bytes.Compare(k, o) }

// Equal reports whether both keys contain the same bytes.
func (k KeySlice) Equal(o KeySlice) bool { return bytes.Equal(k, o) }

// ToKeyVec copies the view into an owned, growable key.
func (k KeySlice) ToKeyVec() KeyVec {
	var v KeyVec
	v.SetFromSlice(k)
	return v
}

// --------------------------------------------------------------------

// KeyVec is an owned, growable key buffer used while building.
type KeyVec struct {
	buf []byte
}

// Len returns the key length in bytes.
func (k *KeyVec) Len() int { return len(k.buf) }

// IsEmpty returns true for the empty key.
func (k *KeyVec) IsEmpty() bool { return len(k.buf) == 0 }

// Clear truncates the key, retaining the buffer.
func (k *KeyVec) Clear() { k.buf = k.buf[:0] }

// Append appends raw bytes to the key.
func (k *KeyVec) Append(p []byte) { k.buf = append(k.buf, p...) }

// SetFromSlice replaces the key contents with a copy of s.
func (k *KeyVec) SetFromSlice(s KeySlice) { k.buf = append(k.buf[:0], s...) }

// AsSlice returns a view valid until the next mutation of k.
func (k *KeyVec) AsSlice() KeySlice { return k.buf }

// Compare compares two keys as raw bytes.
func (k *KeyVec) Compare(o KeySlice) int { return bytes.Compare(k.buf, o) }

// Freeze returns an immutable copy.
func (k *KeyVec) Freeze() KeyBytes { return NewKeyBytes(k.buf) }

// --------------------------------------------------------------------

// KeyBytes is an owned, immutable key. It is never mutated after
// construction and can be shared freely.
type KeyBytes struct {
	b []byte
}

// NewKeyBytes copies p into a new immutable key.
func NewKeyBytes(p []byte) KeyBytes {
	if len(p) == 0 {
		return KeyBytes{}
	}
	return KeyBytes{b: append(make([]byte, 0, len(p)), p...)}
}

// Len returns the key length in bytes.
func (k KeyBytes) Len() int { return len(k.b) }

// IsEmpty returns true for the empty key.
func (k KeyBytes) IsEmpty() bool { return len(k.b) == 0 }

// AsSlice returns a read-only view. Callers must not modify it.
func (k KeyBytes) AsSlice() KeySlice { return k.b }

// Compare compares two keys as raw bytes.
func (k KeyBytes) Compare(o KeySlice) int { return bytes.Compare(k.b, o) }

// String implements fmt.Stringer.
func (k KeyBytes) String() string { return string(k.b) }
