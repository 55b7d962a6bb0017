package geospatial

// ValueIterator walks the documents that have a value in one slot, in
// increasing document id order. It starts positioned before the first
// document.
type ValueIterator interface {
	// Next advances to the next document. It returns false once the
	// iterator is exhausted.
	Next() bool

	// SkipTo advances to the first document whose id is at least docID. It
	// never moves backwards and returns false once the iterator is exhausted.
	SkipTo(docID uint32) bool

	// Check tests docID. It returns true when the iterator is positioned on
	// docID, or is exhausted. It returns false when docID has no value; the
	// iterator is then parked so that the following Next moves to the first
	// document after docID.
	Check(docID uint32) bool

	// AtEnd reports whether the iterator is exhausted.
	AtEnd() bool

	// DocID returns the current document id.
	DocID() uint32

	// Value returns the current document's value.
	Value() []byte
}

// ValueSource exposes the per-slot value streams of a document collection.
type ValueSource interface {
	// ValueIterator returns a fresh iterator over slot.
	ValueIterator(slot uint32) ValueIterator

	// ValueFreq returns the number of documents with a value in slot.
	ValueFreq(slot uint32) int
}

// Document is the view of a single document needed to build a sort key.
type Document interface {
	// Value returns the value stored in slot, or an empty slice when the
	// document has none.
	Value(slot uint32) []byte
}
