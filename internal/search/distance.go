package search

import (
	"bytes"
	"context"
	"sort"

	"github.com/sourcegraph/conc/iter"

	"github.com/gcbaptista/go-geo-search/geospatial"
	"github.com/gcbaptista/go-geo-search/services"
)

// collectByDistance returns every matching document ordered by distance key,
// nearest first, with ties broken on document id.
func (s *Service) collectByDistance(ctx context.Context, source *geospatial.DistancePostingSource, query services.GeoQuery, restrict []uint32) ([]candidateHit, matchCounts, error) {
	if err := source.Init(s.values); err != nil {
		return nil, matchCounts{}, err
	}

	var candidates []candidateHit
	threshold := query.MinWeight
	accept := func() error {
		candidates = append(candidates, candidateHit{docID: source.DocID(), weight: source.Weight(), distance: source.Distance()})
		if len(candidates)%ctxCheckInterval == 0 {
			return ctx.Err()
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

	if query.IncludeUnlocated {
		candidates = append(candidates, s.unlocated(restrict)...)
	}
	if err := ctx.Err(); err != nil {
		return nil, matchCounts{}, err
	}

	metric, err := s.settings.Metric()
	if err != nil {
		return nil, matchCounts{}, err
	}
	keyMaker, err := geospatial.NewDistanceKeyMaker(source.Slot(), source.Centre(), metric,
		geospatial.WithDefaultDistance(s.settings.DefaultSortDistance))
	if err != nil {
		return nil, matchCounts{}, err
	}

	keys := iter.Map(candidates, func(c *candidateHit) []byte {
		return keyMaker.Key(s.values.Document(c.docID))
	})
	for i := range candidates {
		candidates[i].key = keys[i]
	}

	sort.Slice(candidates, func(i, j int) bool {
		if c := bytes.Compare(candidates[i].key, candidates[j].key); c != 0 {
			return c < 0
		}
		return candidates[i].docID < candidates[j].docID
	})

	n := len(candidates)
	return candidates, matchCounts{lower: n, estimated: n, upper: n}, nil
}

// unlocated returns the stored documents, limited to restrict when set, that
// have no decodable coordinates in the index's value slot.
func (s *Service) unlocated(restrict []uint32) []candidateHit {
	isUnlocated := func(id uint32) bool {
		set, err := geospatial.UnserialiseCoordinateSet(s.values.Value(id, s.settings.ValueSlot))
		return err != nil || set.Empty()
	}

	s.documentStore.Mu.RLock()
	defer s.documentStore.Mu.RUnlock()

	var out []candidateHit
	if restrict != nil {
		for _, id := range restrict {
			if _, ok := s.documentStore.Docs[id]; ok && isUnlocated(id) {
				out = append(out, candidateHit{docID: id, distance: -1})
			}
		}
		return out
	}
	for id := range s.documentStore.Docs {
		if isUnlocated(id) {
			out = append(out, candidateHit{docID: id, distance: -1})
		}
	}
	return out
}
