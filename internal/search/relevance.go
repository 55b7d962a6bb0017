package search

import (
	"container/heap"
	"context"
	"sort"

	"github.com/gcbaptista/go-geo-search/geospatial"
)

// ctxCheckInterval is how many accepted documents pass between context checks.
const ctxCheckInterval = 64

// collectByWeight keeps the best limit documents by weight, best first.
//
// Once limit candidates are held, the weakest retained weight becomes the
// source's minimum weight: documents that could not enter the heap are
// rejected inside the source, and the traversal stops as soon as that bound
// exceeds the source's maximum weight.
func (s *Service) collectByWeight(ctx context.Context, source *geospatial.DistancePostingSource, minWeight float64, restrict []uint32, limit int) ([]candidateHit, matchCounts, error) {
	if err := source.Init(s.values); err != nil {
		return nil, matchCounts{}, err
	}

	h := make(hitHeap, 0, min(limit, source.TermFreqMax()))
	threshold := minWeight
	pruned := false
	accepted := 0

	accept := func() error {
		accepted++
		if accepted%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		c := candidateHit{docID: source.DocID(), weight: source.Weight(), distance: source.Distance()}
		if len(h) < limit {
			heap.Push(&h, c)
		} else if c.better(h[0]) {
			h[0] = c
			heap.Fix(&h, 0)
		}
		if len(h) == limit && h[0].weight > threshold {
			threshold = h[0].weight
			pruned = true
		}
		return nil
	}

	var err error
	if restrict == nil {
		err = walkAll(source, &threshold, accept)
	} else {
		err = walkRestricted(source, restrict, &threshold, accept)
	}
	if err != nil {
		return nil, matchCounts{}, err
	}

	hits := make([]candidateHit, len(h))
	for i := len(hits) - 1; i >= 0; i-- {
		hits[i] = heap.Pop(&h).(candidateHit)
	}
	return hits, weightCounts(source, accepted, pruned, restrict), nil
}

func walkAll(source *geospatial.DistancePostingSource, threshold *float64, accept func() error) error {
	for source.Next(*threshold); !source.AtEnd(); source.Next(*threshold) {
		if err := accept(); err != nil {
			return err
		}
	}
	return nil
}

// walkRestricted visits only the documents in restrict, which must be sorted.
// A short list relative to the slot is tested with Check; a long one is
// intersected by leapfrogging with SkipTo.
func walkRestricted(source *geospatial.DistancePostingSource, restrict []uint32, threshold *float64, accept func() error) error {
	useCheck := len(restrict)*4 < source.TermFreqEst()

	for i := 0; i < len(restrict); {
		target := restrict[i]
		if useCheck {
			if !source.Check(target, *threshold) {
				i++
				continue
			}
		} else {
			source.SkipTo(target, *threshold)
		}
		if source.AtEnd() {
			return nil
		}

		current := source.DocID()
		if current == target {
			if err := accept(); err != nil {
				return err
			}
			i++
			continue
		}
		// The source is past target; resume at the first id it can still reach.
		i += sort.Search(len(restrict)-i, func(j int) bool { return restrict[i+j] >= current })
	}
	return nil
}

// weightCounts bounds the number of matching documents after a traversal.
// Without pruning every rejection was final, so the count is exact.
func weightCounts(source *geospatial.DistancePostingSource, accepted int, pruned bool, restrict []uint32) matchCounts {
	if !pruned {
		return matchCounts{lower: accepted, estimated: accepted, upper: accepted}
	}

	stats := source.Stats()
	unvisited := source.TermFreqMax() - stats.Evaluated
	if unvisited < 0 {
		unvisited = 0
	}
	upper := accepted + stats.SkippedBelowWeight + unvisited
	if restrict != nil && upper > len(restrict) {
		upper = len(restrict)
	}
	if upper < accepted {
		upper = accepted
	}

	estimated := upper
	if stats.Evaluated > 0 {
		// Documents rejected for range or bad data are never matches; scale
		// the undecided ones by the rate at which evaluated documents
		// were in range.
		inRange := float64(stats.Evaluated-stats.SkippedMalformed-stats.SkippedOutOfRange) / float64(stats.Evaluated)
		estimated = accepted + int(float64(upper-accepted)*inRange+0.5)
	}
	return matchCounts{lower: accepted, estimated: estimated, upper: upper}
}
