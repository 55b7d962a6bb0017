package geospatial

import (
	"math"
	"strconv"
	"strings"

	"github.com/gcbaptista/go-geo-search/sortable"
)

// Default weighting constants. With these a document at the centre weighs
// 1.0, one 1km away weighs 0.5 and one 3km away weighs 0.25.
const (
	DefaultK1 = 1000.0
	DefaultK2 = 1.0
)

const distancePostingSourceName = "geospatial.DistancePostingSource"

// invalidDistance marks that no distance has been computed for the current position.
const invalidDistance = -1.0

type sourceState int

const (
	stateUnstarted sourceState = iota
	statePositioned
	// stateParked follows a Check that rejected its target: the source sits
	// on that document id without a weight, and the next move resumes after it.
	stateParked
	stateExhausted
)

func (s sourceState) String() string {
	switch s {
	case stateUnstarted:
		return "unstarted"
	case statePositioned:
		return "positioned"
	case stateParked:
		return "parked"
	default:
		return "exhausted"
	}
}

// PostingSourceStats counts what a DistancePostingSource did with the
// documents it looked at.
type PostingSourceStats struct {
	Evaluated          int // documents whose value was decoded
	SkippedMalformed   int // absent, empty or undecodable coordinate values
	SkippedOutOfRange  int // further than the maximum range
	SkippedBelowWeight int // weight below the caller's minimum
}

// PostingSourceOption configures a DistancePostingSource.
type PostingSourceOption func(*DistancePostingSource)

// WithMaxRange excludes documents further than metres from the centre.
// Zero means no limit.
func WithMaxRange(metres float64) PostingSourceOption {
	return func(ps *DistancePostingSource) { ps.maxRange = metres }
}

// WithK1 sets the k1 weighting constant.
func WithK1(k1 float64) PostingSourceOption {
	return func(ps *DistancePostingSource) { ps.k1 = k1 }
}

// WithK2 sets the k2 weighting constant.
func WithK2(k2 float64) PostingSourceOption {
	return func(ps *DistancePostingSource) { ps.k2 = k2 }
}

// DistancePostingSource enumerates the documents holding a serialised
// CoordinateSet in a value slot, in increasing document id order, weighting
// each by its distance from a centre:
//
//	weight = k1 * (distance + k1) ^ -k2
//
// where distance is the smallest distance between any centre point and any
// of the document's points. Documents with no usable location, or beyond the
// maximum range, are not returned.
//
// A source is a forward-only cursor: bind it with Init, then drive it with
// Next, SkipTo and Check. It is not safe for concurrent use; use Clone to get
// an independent source for another goroutine.
type DistancePostingSource struct {
	slot     uint32
	centre   *CoordinateSet
	metric   DistanceMetric
	maxRange float64
	k1       float64
	k2       float64

	maxWeight float64

	values ValueIterator
	state  sourceState
	docID  uint32
	dist   float64

	termFreqMin int
	termFreqEst int
	termFreqMax int

	stats PostingSourceStats
}

// NewDistancePostingSource returns a source reading coordinates from slot and
// measuring them against centre with metric. The centre and metric are copied.
//
// The centre must be non-empty, k1 and k2 must be positive and finite, and
// the maximum range must not be negative.
func NewDistancePostingSource(slot uint32, centre *CoordinateSet, metric DistanceMetric, opts ...PostingSourceOption) (*DistancePostingSource, error) {
	if centre == nil || centre.Empty() {
		return nil, NewInvalidArgumentError("centre coordinate set is empty")
	}
	if metric == nil {
		return nil, NewInvalidArgumentError("metric is nil")
	}

	ps := &DistancePostingSource{
		slot:   slot,
		centre: centre.Clone(),
		metric: metric.Clone(),
		k1:     DefaultK1,
		k2:     DefaultK2,
		state:  stateUnstarted,
		dist:   invalidDistance,
	}
	for _, opt := range opts {
		opt(ps)
	}

	if !isPositiveFinite(ps.k1) {
		return nil, NewInvalidArgumentError("k1 must be positive and finite, got %v", ps.k1)
	}
	if !isPositiveFinite(ps.k2) {
		return nil, NewInvalidArgumentError("k2 must be positive and finite, got %v", ps.k2)
	}
	if math.IsNaN(ps.maxRange) || ps.maxRange < 0 {
		return nil, NewInvalidArgumentError("max range must not be negative, got %v", ps.maxRange)
	}

	ps.maxWeight = ps.weightFor(0)
	return ps, nil
}

func isPositiveFinite(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

func (ps *DistancePostingSource) weightFor(distance float64) float64 {
	if ps.k2 == 1 {
		return ps.k1 / (distance + ps.k1)
	}
	return ps.k1 * math.Pow(distance+ps.k1, -ps.k2)
}

// Init binds the source to src and resets it to the unstarted state. Calling
// Init again with the same source starts a new traversal.
func (ps *DistancePostingSource) Init(src ValueSource) error {
	if src == nil {
		return NewInvalidArgumentError("value source is nil")
	}

	ps.values = src.ValueIterator(ps.slot)
	ps.state = stateUnstarted
	ps.docID = 0
	ps.dist = invalidDistance
	ps.stats = PostingSourceStats{}

	// Any document can be excluded by a malformed value, so no lower bound
	// is known.
	freq := src.ValueFreq(ps.slot)
	ps.termFreqMin = 0
	ps.termFreqEst = freq
	ps.termFreqMax = freq
	return nil
}

// Next advances to the next document whose weight is at least minWeight.
func (ps *DistancePostingSource) Next(minWeight float64) {
	if !ps.prepareMove(minWeight) {
		return
	}
	ps.values.Next()
	ps.settle(minWeight)
}

// SkipTo advances to the first document with id at least docID whose weight
// is at least minWeight. It does nothing when the source is already
// positioned at or beyond docID.
func (ps *DistancePostingSource) SkipTo(docID uint32, minWeight float64) {
	if ps.state == statePositioned && docID <= ps.docID {
		return
	}
	if ps.state == stateParked && docID <= ps.docID {
		ps.Next(minWeight)
		return
	}
	if !ps.prepareMove(minWeight) {
		return
	}
	ps.values.SkipTo(docID)
	ps.settle(minWeight)
}

// Check is a cheap membership test for docID. It returns false only when docID certainly
// does not match; the source is then parked at docID and the next Next or
// SkipTo resumes after it. It returns true when the source is positioned on a
// matching docID, or when the stream is exhausted. Targets behind the current
// position never move the source.
func (ps *DistancePostingSource) Check(docID uint32, minWeight float64) bool {
	if ps.state == statePositioned && docID <= ps.docID {
		return true
	}
	if ps.state == stateParked && docID <= ps.docID {
		return docID < ps.docID
	}
	if !ps.prepareMove(minWeight) {
		return true
	}

	if !ps.values.Check(docID) {
		ps.park(docID)
		return false
	}
	if ps.values.AtEnd() {
		ps.exhaust()
		return true
	}
	if ps.evaluate(minWeight) {
		ps.state = statePositioned
		ps.docID = docID
		return true
	}
	ps.park(docID)
	return false
}

// prepareMove clears the current position before the source moves. It
// returns false when the source is, or has just become, exhausted.
func (ps *DistancePostingSource) prepareMove(minWeight float64) bool {
	if ps.state == stateExhausted {
		return false
	}
	if ps.values == nil || minWeight > ps.maxWeight {
		ps.exhaust()
		return false
	}
	ps.dist = invalidDistance
	return true
}

// settle moves the value iterator forward until it rests on an acceptable
// document, or runs out.
func (ps *DistancePostingSource) settle(minWeight float64) {
	for !ps.values.AtEnd() {
		if ps.evaluate(minWeight) {
			ps.state = statePositioned
			ps.docID = ps.values.DocID()
			return
		}
		ps.values.Next()
	}
	ps.exhaust()
}

// evaluate computes the distance for the value iterator's current document
// and reports whether that document is acceptable.
func (ps *DistancePostingSource) evaluate(minWeight float64) bool {
	ps.stats.Evaluated++

	coords, err := UnserialiseCoordinateSet(ps.values.Value())
	if err != nil || coords.Empty() {
		ps.stats.SkippedMalformed++
		return false
	}

	// Neither set is empty, so SetDistance cannot fail.
	dist, _ := SetDistance(ps.metric, ps.centre, coords)
	if ps.maxRange > 0 && dist > ps.maxRange {
		ps.stats.SkippedOutOfRange++
		return false
	}
	if minWeight > 0 && ps.weightFor(dist) < minWeight {
		ps.stats.SkippedBelowWeight++
		return false
	}

	ps.dist = dist
	return true
}

func (ps *DistancePostingSource) park(docID uint32) {
	ps.state = stateParked
	ps.docID = docID
	ps.dist = invalidDistance
}

func (ps *DistancePostingSource) exhaust() {
	ps.state = stateExhausted
	ps.dist = invalidDistance
}

// AtEnd reports whether the source is exhausted.
func (ps *DistancePostingSource) AtEnd() bool { return ps.state == stateExhausted }

// DocID returns the current document id. After a Check that returned false
// it is the checked id.
func (ps *DistancePostingSource) DocID() uint32 { return ps.docID }

// Weight returns the weight of the current document. It is only meaningful
// while the source is positioned on a document; otherwise it returns 0.
func (ps *DistancePostingSource) Weight() float64 {
	if ps.state != statePositioned {
		return 0
	}
	return ps.weightFor(ps.dist)
}

// Distance returns the distance in metres of the current document, or -1
// when the source is not positioned on a document.
func (ps *DistancePostingSource) Distance() float64 {
	if ps.state != statePositioned {
		return invalidDistance
	}
	return ps.dist
}

// MaxWeight returns an upper bound on Weight: the weight at distance zero.
func (ps *DistancePostingSource) MaxWeight() float64 { return ps.maxWeight }

// TermFreqMin returns a lower bound on the number of matching documents.
func (ps *DistancePostingSource) TermFreqMin() int { return ps.termFreqMin }

// TermFreqEst returns an estimate of the number of matching documents.
func (ps *DistancePostingSource) TermFreqEst() int { return ps.termFreqEst }

// TermFreqMax returns an upper bound on the number of matching documents.
func (ps *DistancePostingSource) TermFreqMax() int { return ps.termFreqMax }

// Stats returns the counters for the current traversal.
func (ps *DistancePostingSource) Stats() PostingSourceStats { return ps.stats }

// Slot returns the value slot the source reads.
func (ps *DistancePostingSource) Slot() uint32 { return ps.slot }

// Centre returns a copy of the centre.
func (ps *DistancePostingSource) Centre() *CoordinateSet { return ps.centre.Clone() }

// MaxRange returns the maximum range in metres; zero means unlimited.
func (ps *DistancePostingSource) MaxRange() float64 { return ps.maxRange }

// K1 returns the k1 weighting constant.
func (ps *DistancePostingSource) K1() float64 { return ps.k1 }

// K2 returns the k2 weighting constant.
func (ps *DistancePostingSource) K2() float64 { return ps.k2 }

// Clone returns an unbound, unstarted source with the same configuration and
// its own copy of the metric.
func (ps *DistancePostingSource) Clone() *DistancePostingSource {
	return &DistancePostingSource{
		slot:      ps.slot,
		centre:    ps.centre.Clone(),
		metric:    ps.metric.Clone(),
		maxRange:  ps.maxRange,
		k1:        ps.k1,
		k2:        ps.k2,
		maxWeight: ps.maxWeight,
		state:     stateUnstarted,
		dist:      invalidDistance,
	}
}

// Name returns "geospatial.DistancePostingSource".
func (ps *DistancePostingSource) Name() string { return distancePostingSourceName }

// Serialise encodes the configuration of the source: slot, centre, metric
// name and parameters, maximum range, k1 and k2.
func (ps *DistancePostingSource) Serialise() []byte {
	buf := appendUvarint(nil, uint64(ps.slot))
	buf = appendBytes(buf, ps.centre.Serialise())
	buf = appendBytes(buf, []byte(ps.metric.Name()))
	buf = appendBytes(buf, ps.metric.Serialise())
	buf = sortable.Append(buf, ps.maxRange)
	buf = sortable.Append(buf, ps.k1)
	buf = sortable.Append(buf, ps.k2)
	return buf
}

// UnserialiseDistancePostingSource rebuilds a source from the output of
// Serialise, looking its metric up in registry. The returned source is
// unbound.
func UnserialiseDistancePostingSource(data []byte, registry *Registry) (*DistancePostingSource, error) {
	if registry == nil {
		return nil, NewInvalidArgumentError("registry is nil")
	}

	r := &wireReader{what: "distance posting source", buf: data}
	slot := r.uvarint("slot")
	centreData := r.bytes("centre")
	metricName := r.bytes("metric name")
	metricParams := r.bytes("metric parameters")
	maxRange := r.float("max range")
	k1 := r.float("k1")
	k2 := r.float("k2")
	if err := r.finish(); err != nil {
		return nil, err
	}
	if slot > math.MaxUint32 {
		return nil, NewSerialisationError(r.what, "slot "+strconv.FormatUint(slot, 10)+" out of range", nil)
	}

	centre, err := UnserialiseCoordinateSet(centreData)
	if err != nil {
		return nil, err
	}
	metric, err := registry.UnserialiseMetric(string(metricName), metricParams)
	if err != nil {
		return nil, err
	}

	ps, err := NewDistancePostingSource(uint32(slot), centre, metric,
		WithMaxRange(maxRange), WithK1(k1), WithK2(k2))
	if err != nil {
		return nil, NewSerialisationError(r.what, "invalid configuration", err)
	}
	return ps, nil
}

// String describes the configuration of the source.
func (ps *DistancePostingSource) String() string {
	var b strings.Builder
	b.WriteString("DistancePostingSource(slot=")
	b.WriteString(strconv.FormatUint(uint64(ps.slot), 10))
	b.WriteString(", centre=")
	b.WriteString(ps.centre.String())
	b.WriteString(", metric=")
	b.WriteString(ps.metric.Name())
	b.WriteString(", max_range=")
	b.WriteString(formatFloat(ps.maxRange))
	b.WriteString(", k1=")
	b.WriteString(formatFloat(ps.k1))
	b.WriteString(", k2=")
	b.WriteString(formatFloat(ps.k2))
	b.WriteString(")")
	return b.String()
}
