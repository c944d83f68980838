package search

import (
	"context"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// splice resolves the unique chunk URIs in one batch and annotates the answer
// text with citation markers.
func (e *Executor) splice(ctx context.Context, text string, chunks []GroundingChunk, supports []GroundingSupport) *Result {
	seen := make(map[string]bool)
	var uris []string
	for _, c := range chunks {
		if c.Web == nil || c.Web.URI == "" {
			continue
		}
		if !seen[c.Web.URI] {
			seen[c.Web.URI] = true
			uris = append(uris, c.Web.URI)
		}
	}

	resolved := e.resolver.ResolveAll(ctx, uris)
	return spliceCitations(text, chunks, supports, resolved)
}

// spliceCitations builds the deduplicated source list and inserts citation
// markers at support end offsets.
//
// Source identity is the resolved URL: chunks whose raw URIs resolve to the
// same destination share one id. Offsets are byte positions in the UTF-8
// text, so all insertion happens on the byte slice; working on runes would
// misplace markers whenever non-ASCII text precedes a citation point.
func spliceCitations(text string, chunks []GroundingChunk, supports []GroundingSupport, resolved map[string]string) *Result {
	var sources []Source
	urlToID := make(map[string]int)
	rawToID := make(map[string]int)
	nextID := 1

	for _, c := range chunks {
		if c.Web == nil || c.Web.URI == "" {
			continue
		}
		raw := c.Web.URI
		final, ok := resolved[raw]
		if !ok || final == "" {
			final = raw
		}
		id, ok := urlToID[final]
		if !ok {
			id = nextID
			nextID++
			urlToID[final] = id
			sources = append(sources, Source{ID: id, Title: c.Web.Title, URL: final})
		}
		rawToID[raw] = id
	}

	type insertion struct {
		offset int
		marker string
	}
	var insertions []insertion
	for _, s := range supports {
		idSeen := make(map[int]bool)
		var ids []int
		for _, idx := range s.GroundingChunkIndices {
			if idx < 0 || idx >= len(chunks) {
				continue
			}
			c := chunks[idx]
			if c.Web == nil || c.Web.URI == "" {
				continue
			}
			id, ok := rawToID[c.Web.URI]
			if !ok || idSeen[id] {
				continue
			}
			idSeen[id] = true
			ids = append(ids, id)
		}
		if len(ids) == 0 {
			continue
		}
		sort.Ints(ids)

		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.Itoa(id)
		}
		insertions = append(insertions, insertion{
			offset: s.Segment.EndIndex,
			marker: " [" + strings.Join(parts, ", ") + "]",
		})
	}

	// Insert right-to-left so earlier offsets are never shifted by a later
	// insertion.
	sort.SliceStable(insertions, func(i, j int) bool {
		return insertions[i].offset > insertions[j].offset
	})

	buf := []byte(text)
	for _, ins := range insertions {
		if ins.offset < 0 || ins.offset > len(buf) {
			continue
		}
		buf = slices.Insert(buf, ins.offset, []byte(ins.marker)...)
	}

	return &Result{Text: string(buf), Sources: sources}
}
