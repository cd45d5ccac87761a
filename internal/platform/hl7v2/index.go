package hl7v2

type indexEntry struct {
	loc  Location
	elem Element
}

func (e indexEntry) matches(q Location) bool {
	if e.elem.IsLeaf() {
		return e.loc.MatchesLeaf(q)
	}
	return e.loc.Matches(q)
}

// index is a flat, pre-order list of every addressable element keyed by
// its fully qualified location. Every field is entered at field level,
// the components of composite fields at component level, and the
// subcomponents of composite components at subcomponent level.
type index struct {
	entries []indexEntry
	byKey   map[string]int
}

func buildIndex(m *Message) *index {
	ix := &index{byKey: make(map[string]int)}
	seen := make(map[string]int)
	for _, seg := range m.segments {
		name := seg.Name()
		occ := seen[name]
		seen[name] = occ + 1

		for slot, rf := range seg.fields {
			for rep, f := range rf.fields {
				fl := slotLocation(name, occ, slot, rep)
				ix.add(fl, f)
				if f.leaf {
					continue
				}
				for ci, c := range f.components {
					cl := fl.WithComponent(ci + 1)
					ix.add(cl, c)
					if c.leaf {
						continue
					}
					for si, s := range c.subs {
						ix.add(cl.WithSubcomponent(si+1), s)
					}
				}
			}
			if slot == 0 && name == HeaderSegment {
				sep := &detachedElement{value: string(seg.delims.Field())}
				ix.add(slotLocation(name, occ, separatorSlot, 0), sep)
			}
		}
	}
	return ix
}

func (ix *index) add(loc Location, e Element) {
	ix.byKey[loc.FullyQualified()] = len(ix.entries)
	ix.entries = append(ix.entries, indexEntry{loc: loc, elem: e})
}

func (ix *index) first(q Location) (indexEntry, bool) {
	if q.IsFullyQualified() {
		return ix.exact(q)
	}
	for _, e := range ix.entries {
		if e.matches(q) {
			return e, true
		}
	}
	return indexEntry{}, false
}

// exact resolves a fully qualified query by key, falling back to the leaf
// that rolls up to it.
func (ix *index) exact(q Location) (indexEntry, bool) {
	if i, ok := ix.byKey[q.FullyQualified()]; ok {
		return ix.entries[i], true
	}
	candidates := make([]Location, 0, 2)
	if q.hasSubcomponent {
		c := q
		c.hasSubcomponent, c.subcomponent = false, 0
		candidates = append(candidates, c)
	}
	if q.hasComponent {
		f := q
		f.hasComponent, f.component = false, 0
		f.hasSubcomponent, f.subcomponent = false, 0
		candidates = append(candidates, f)
	}
	for _, c := range candidates {
		i, ok := ix.byKey[c.FullyQualified()]
		if ok && ix.entries[i].elem.IsLeaf() && ix.entries[i].loc.MatchesLeaf(q) {
			return ix.entries[i], true
		}
	}
	return indexEntry{}, false
}

func (ix *index) all(q Location) []indexEntry {
	if q.IsFullyQualified() {
		if e, ok := ix.exact(q); ok {
			return []indexEntry{e}
		}
		return nil
	}
	var out []indexEntry
	for _, e := range ix.entries {
		if e.matches(q) {
			out = append(out, e)
		}
	}
	return out
}
