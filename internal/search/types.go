package search

// candidateHit represents a document candidate during search processing
type candidateHit struct {
	docID    uint32
	weight   float64
	distance float64 // -1 when the document has no usable location
	key      []byte  // distance sort key; only set when sorting by distance
}

// better reports whether a ranks above b by weight. Equal weights favour the
// lower document id.
func (a candidateHit) better(b candidateHit) bool {
	if a.weight != b.weight {
		return a.weight > b.weight
	}
	return a.docID < b.docID
}

// hitHeap is a min-heap keeping the worst retained candidate on top.
type hitHeap []candidateHit

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool  { return h[j].better(h[i]) }
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(candidateHit)) }
func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// matchCounts are the bounds on the number of matching documents.
type matchCounts struct {
	lower     int
	estimated int
	upper     int
}
