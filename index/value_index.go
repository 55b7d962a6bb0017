package index

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"sort"
	"sync"

	"github.com/gcbaptista/go-geo-search/geospatial"
)

// ValueEntry is the value one document holds in a slot.
type ValueEntry struct {
	DocID uint32
	Value []byte
}

// ValueList is a slot's entries, sorted by DocID.
// Lists are never modified in place once published: writers build a new list,
// so an iterator keeps working on the snapshot it was created from.
type ValueList []ValueEntry

func (l ValueList) search(docID uint32) (int, bool) {
	i := sort.Search(len(l), func(i int) bool { return l[i].DocID >= docID })
	return i, i < len(l) && l[i].DocID == docID
}

// ValueIndex stores per-document values by slot and streams them in document
// id order.
type ValueIndex struct {
	Mu    sync.RWMutex
	Slots map[uint32]ValueList
}

// NewValueIndex returns an empty index.
func NewValueIndex() *ValueIndex {
	return &ValueIndex{Slots: make(map[uint32]ValueList)}
}

// Set stores value for docID in slot. An empty value removes the document
// from the slot.
func (vi *ValueIndex) Set(docID uint32, slot uint32, value []byte) {
	vi.Mu.Lock()
	defer vi.Mu.Unlock()

	if len(value) == 0 {
		vi.removeLocked(docID, slot)
		return
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	list := vi.Slots[slot]
	i, found := list.search(docID)
	if found {
		next := make(ValueList, len(list))
		copy(next, list)
		next[i].Value = stored
		vi.Slots[slot] = next
		return
	}

	next := make(ValueList, 0, len(list)+1)
	next = append(next, list[:i]...)
	next = append(next, ValueEntry{DocID: docID, Value: stored})
	next = append(next, list[i:]...)
	vi.Slots[slot] = next
}

// Remove deletes every value held by docID.
func (vi *ValueIndex) Remove(docID uint32) {
	vi.Mu.Lock()
	defer vi.Mu.Unlock()

	for slot := range vi.Slots {
		vi.removeLocked(docID, slot)
	}
}

func (vi *ValueIndex) removeLocked(docID uint32, slot uint32) {
	list := vi.Slots[slot]
	i, found := list.search(docID)
	if !found {
		return
	}
	if len(list) == 1 {
		delete(vi.Slots, slot)
		return
	}
	next := make(ValueList, 0, len(list)-1)
	next = append(next, list[:i]...)
	next = append(next, list[i+1:]...)
	vi.Slots[slot] = next
}

// Value returns the value docID holds in slot, or nil.
func (vi *ValueIndex) Value(docID uint32, slot uint32) []byte {
	vi.Mu.RLock()
	defer vi.Mu.RUnlock()

	list := vi.Slots[slot]
	if i, found := list.search(docID); found {
		return list[i].Value
	}
	return nil
}

// ValueFreq returns the number of documents with a value in slot.
func (vi *ValueIndex) ValueFreq(slot uint32) int {
	vi.Mu.RLock()
	defer vi.Mu.RUnlock()
	return len(vi.Slots[slot])
}

// ValueIterator returns an iterator over a snapshot of slot.
func (vi *ValueIndex) ValueIterator(slot uint32) geospatial.ValueIterator {
	vi.Mu.RLock()
	defer vi.Mu.RUnlock()
	return &ValueIterator{entries: vi.Slots[slot], pos: -1}
}

// Document returns a view of docID's values.
func (vi *ValueIndex) Document(docID uint32) geospatial.Document {
	return documentValues{index: vi, docID: docID}
}

// Clear removes all values.
func (vi *ValueIndex) Clear() {
	vi.Mu.Lock()
	defer vi.Mu.Unlock()
	vi.Slots = make(map[uint32]ValueList)
}

type documentValues struct {
	index *ValueIndex
	docID uint32
}

func (d documentValues) Value(slot uint32) []byte {
	return d.index.Value(d.docID, slot)
}

// ValueIterator walks a ValueList. It starts before the first entry.
type ValueIterator struct {
	entries ValueList
	pos     int

	// parked is set by a failed Check: pos already rests on the first entry
	// after the checked id, which the next move must not step over.
	parked bool
	checked uint32
}

// Next advances to the next entry.
func (it *ValueIterator) Next() bool {
	if it.parked {
		it.parked = false
		return !it.AtEnd()
	}
	if it.pos < len(it.entries) {
		it.pos++
	}
	return !it.AtEnd()
}

// SkipTo advances to the first entry whose id is at least docID.
func (it *ValueIterator) SkipTo(docID uint32) bool {
	it.parked = false
	if it.pos < 0 {
		it.pos = 0
	}
	if it.AtEnd() {
		return false
	}
	if it.entries[it.pos].DocID >= docID {
		return true
	}
	rest := it.entries[it.pos:]
	it.pos += sort.Search(len(rest), func(i int) bool { return rest[i].DocID >= docID })
	return !it.AtEnd()
}

// Check tests docID.
func (it *ValueIterator) Check(docID uint32) bool {
	if !it.SkipTo(docID) {
		return true
	}
	if it.entries[it.pos].DocID == docID {
		return true
	}
	it.parked = true
	it.checked = docID
	return false
}

// AtEnd reports whether the iterator is exhausted.
func (it *ValueIterator) AtEnd() bool {
	return it.pos >= len(it.entries)
}

// DocID returns the current document id; after a failed Check, the checked id.
func (it *ValueIterator) DocID() uint32 {
	if it.parked {
		return it.checked
	}
	if it.pos < 0 || it.AtEnd() {
		return 0
	}
	return it.entries[it.pos].DocID
}

// Value returns the current entry's value.
func (it *ValueIterator) Value() []byte {
	if it.parked || it.pos < 0 || it.AtEnd() {
		return nil
	}
	return it.entries[it.pos].Value
}

// gobValueIndexData is a helper struct for Gob encoding/decoding ValueIndex data.
// It excludes the mutex.
type gobValueIndexData struct {
	Slots map[uint32]ValueList
}

// GobEncode implements the gob.GobEncoder interface for ValueIndex.
func (vi *ValueIndex) GobEncode() ([]byte, error) {
	vi.Mu.RLock()
	defer vi.Mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(gobValueIndexData{Slots: vi.Slots}); err != nil {
		return nil, fmt.Errorf("failed to gob encode value index: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface for ValueIndex.
func (vi *ValueIndex) GobDecode(data []byte) error {
	decoded := gobValueIndexData{}
	if err := gob.NewDecoder(bytes.NewBuffer(data)).Decode(&decoded); err != nil {
		return fmt.Errorf("failed to gob decode value index: %w", err)
	}

	vi.Mu.Lock()
	defer vi.Mu.Unlock()

	vi.Slots = decoded.Slots
	if vi.Slots == nil {
		vi.Slots = make(map[uint32]ValueList)
	}
	for slot, list := range vi.Slots {
		if !sort.SliceIsSorted(list, func(i, j int) bool { return list[i].DocID < list[j].DocID }) {
			return fmt.Errorf("value index slot %d is not sorted by document id", slot)
		}
	}
	return nil
}
