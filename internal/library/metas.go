package library

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/mrlokans/storyshelf/internal/entities"
)

// MetaResultList is a snapshot of a library listing with grouping and
// filtering helpers. It never talks to the backend again.
type MetaResultList struct {
	metas []*entities.MetaData
}

// NewMetaResultList sorts metas by LUID and wraps them.
func NewMetaResultList(metas []*entities.MetaData) *MetaResultList {
	sorted := make([]*entities.MetaData, 0, len(metas))
	for _, meta := range metas {
		if meta != nil {
			sorted = append(sorted, meta)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LUID < sorted[j].LUID
	})
	return &MetaResultList{metas: sorted}
}

// Metas returns every entry of the list.
func (l *MetaResultList) Metas() []*entities.MetaData {
	return l.metas
}

// Len returns the number of entries.
func (l *MetaResultList) Len() int {
	return len(l.metas)
}

// Sources returns the distinct sources, sorted.
func (l *MetaResultList) Sources() []string {
	return l.distinct(func(m *entities.MetaData) []string { return []string{m.Source} })
}

// SourceRoots returns the distinct top-level source segments, sorted.
func (l *MetaResultList) SourceRoots() []string {
	return l.distinct(func(m *entities.MetaData) []string { return []string{m.SourceRoot()} })
}

// Authors returns the distinct authors, sorted.
func (l *MetaResultList) Authors() []string {
	return l.distinct(func(m *entities.MetaData) []string { return []string{m.Author} })
}

// Tags returns the distinct tags, sorted.
func (l *MetaResultList) Tags() []string {
	return l.distinct(func(m *entities.MetaData) []string { return m.Tags })
}

// FilterBySource keeps stories whose source is source or one of its
// subsections ("site" matches "site" and "site/anything").
func (l *MetaResultList) FilterBySource(source string) []*entities.MetaData {
	return l.filter(func(m *entities.MetaData) bool {
		return m.Source == source || strings.HasPrefix(m.Source, source+"/")
	})
}

// FilterByAuthor keeps stories by author (case-insensitive).
func (l *MetaResultList) FilterByAuthor(author string) []*entities.MetaData {
	return l.filter(func(m *entities.MetaData) bool {
		return strings.EqualFold(m.Author, author)
	})
}

// FilterByTag keeps stories carrying tag (case-insensitive).
func (l *MetaResultList) FilterByTag(tag string) []*entities.MetaData {
	return l.filter(func(m *entities.MetaData) bool {
		for _, t := range m.Tags {
			if strings.EqualFold(t, tag) {
				return true
			}
		}
		return false
	})
}

// Search performs a fuzzy match of query against titles and authors.
// Results are ranked by match distance, best first.
func (l *MetaResultList) Search(query string) []*entities.MetaData {
	if query == "" {
		return l.metas
	}

	type ranked struct {
		meta     *entities.MetaData
		distance int
	}

	var hits []ranked
	for _, m := range l.metas {
		best := -1
		for _, target := range []string{m.Title, m.Author} {
			if d := fuzzy.RankMatchFold(query, target); d >= 0 && (best < 0 || d < best) {
				best = d
			}
		}
		if best >= 0 {
			hits = append(hits, ranked{meta: m, distance: best})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].distance < hits[j].distance
	})

	out := make([]*entities.MetaData, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.meta)
	}
	return out
}

func (l *MetaResultList) filter(keep func(*entities.MetaData) bool) []*entities.MetaData {
	var out []*entities.MetaData
	for _, m := range l.metas {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (l *MetaResultList) distinct(values func(*entities.MetaData) []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range l.metas {
		for _, v := range values(m) {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
