package sfnt

import (
	"fmt"
	"sort"
)

// Subset collects the runes and glyphs a document uses from one font and
// encodes a reduced font holding only those glyphs. Usage is cumulative;
// every Encode rebuilds from the complete set.
type Subset struct {
	font *Font

	runes  []rune
	runeID map[rune]uint16
	direct map[uint16]bool
}

// NewSubset starts an empty subset of f.
func NewSubset(f *Font) *Subset {
	return &Subset{
		font:   f,
		runeID: make(map[rune]uint16),
		direct: make(map[uint16]bool),
	}
}

// Font returns the source font.
func (s *Subset) Font() *Font { return s.font }

// UseRune records r and returns its original glyph id. Runes missing from
// the cmap are not recorded and map to .notdef.
func (s *Subset) UseRune(r rune) (uint16, bool) {
	if gid, ok := s.runeID[r]; ok {
		return gid, true
	}
	gid, ok := s.font.GlyphIndex(r)
	if !ok {
		return 0, false
	}
	s.runes = append(s.runes, r)
	s.runeID[r] = gid
	return gid, true
}

// UseGlyph records a glyph used without a code point.
func (s *Subset) UseGlyph(gid uint16) error {
	if int(gid) >= s.font.NumGlyphs() {
		return fmt.Errorf("%w: glyph %d out of range", ErrMalformed, gid)
	}
	s.direct[gid] = true
	return nil
}

// Runes returns the recorded runes in first-use order.
func (s *Subset) Runes() []rune { return append([]rune(nil), s.runes...) }

// GlyphFor returns the original glyph id recorded for r.
func (s *Subset) GlyphFor(r rune) (uint16, bool) {
	gid, ok := s.runeID[r]
	return gid, ok
}

// Used returns every original glyph id referenced by content, ascending.
func (s *Subset) Used() []uint16 {
	seen := map[uint16]bool{0: true}
	for _, gid := range s.runeID {
		seen[gid] = true
	}
	for gid := range s.direct {
		seen[gid] = true
	}
	return sortedIDs(seen)
}

// SubsetResult is an encoded subset font and its glyph id mapping.
type SubsetResult struct {
	Data     []byte
	OldToNew map[uint16]uint16
	NewToOld []uint16
}

// NumGlyphs returns the glyph count of the subset.
func (r *SubsetResult) NumGlyphs() int { return len(r.NewToOld) }

// CIDToGID returns the big-endian CIDToGIDMap stream body: entry i holds the
// new glyph id for original glyph i.
func (r *SubsetResult) CIDToGID() []byte {
	var maxOld uint16
	for _, old := range r.NewToOld {
		if old > maxOld {
			maxOld = old
		}
	}
	out := make([]byte, 2*(int(maxOld)+1))
	for old, nid := range r.OldToNew {
		out[2*int(old)] = byte(nid >> 8)
		out[2*int(old)+1] = byte(nid)
	}
	return out
}

// Encode builds the subset font from everything recorded so far.
func (s *Subset) Encode() (*SubsetResult, error) {
	f := s.font
	res := &SubsetResult{OldToNew: map[uint16]uint16{0: 0}, NewToOld: []uint16{0}}
	assign := func(old uint16) {
		if _, ok := res.OldToNew[old]; ok {
			return
		}
		res.OldToNew[old] = uint16(len(res.NewToOld))
		res.NewToOld = append(res.NewToOld, old)
	}

	// 1. cmap-derived glyphs in first-use order
	for _, r := range s.runes {
		assign(s.runeID[r])
	}

	// 2. compound closure plus directly used glyphs, ascending
	extra := make(map[uint16]bool)
	for gid := range s.direct {
		if _, ok := res.OldToNew[gid]; !ok {
			extra[gid] = true
		}
	}
	queue := append([]uint16(nil), res.NewToOld...)
	queue = append(queue, sortedIDs(extra)...)
	visited := make(map[uint16]bool)
	for len(queue) > 0 {
		gid := queue[0]
		queue = queue[1:]
		if visited[gid] {
			continue
		}
		visited[gid] = true
		g, err := f.Glyf.Glyph(gid)
		if err != nil {
			return nil, err
		}
		for _, comp := range g.Components() {
			if int(comp) >= f.NumGlyphs() {
				return nil, fmt.Errorf("%w: glyph %d references missing glyph %d", ErrMalformed, gid, comp)
			}
			if _, ok := res.OldToNew[comp]; !ok {
				extra[comp] = true
			}
			queue = append(queue, comp)
		}
	}
	for _, gid := range sortedIDs(extra) {
		assign(gid)
	}
	if len(res.NewToOld) > 0xFFFF {
		return nil, fmt.Errorf("%w: subset exceeds 65535 glyphs", ErrMalformed)
	}
	n := len(res.NewToOld)

	// 3. glyf and long loca in new id order
	var glyf []byte
	loca := &Loca{Format: 1, NumGlyphs: n, Offsets: make([]uint32, 0, n+1)}
	hmtx := &Hmtx{NumberOfHMetrics: n, NumGlyphs: n, Metrics: make([]Metric, n)}
	for nid, old := range res.NewToOld {
		loca.Offsets = append(loca.Offsets, uint32(len(glyf)))
		g, err := f.Glyf.Glyph(old)
		if err != nil {
			return nil, err
		}
		if cg, ok := g.(*CompoundGlyph); ok {
			glyf = append(glyf, cg.Remap(res.OldToNew)...)
		} else {
			glyf = append(glyf, g.Bytes()...)
		}
		hmtx.Metrics[nid] = f.Hmtx.Metrics[old]
	}
	loca.Offsets = append(loca.Offsets, uint32(len(glyf)))

	// 4. patched header tables
	head := *f.Head
	head.IndexToLocFormat = 1
	head.CheckSumAdjustment = 0
	hhea := *f.Hhea
	hhea.NumberOfHMetrics = uint16(n)
	var maxAdvance uint16
	for _, m := range hmtx.Metrics {
		if m.AdvanceWidth > maxAdvance {
			maxAdvance = m.AdvanceWidth
		}
	}
	hhea.AdvanceWidthMax = maxAdvance
	maxp := *f.Maxp
	maxp.NumGlyphs = uint16(n)

	// 5. cmap over the used runes
	cmap := make(map[rune]uint16, len(s.runes))
	for _, r := range s.runes {
		cmap[r] = res.OldToNew[s.runeID[r]]
	}

	tables := []TableData{}
	if raw := f.RawTable("OS/2"); raw != nil {
		tables = append(tables, TableData{"OS/2", raw})
	}
	tables = append(tables, TableData{"cmap", EncodeCmap(cmap)})
	for _, tag := range []string{"cvt ", "fpgm"} {
		if raw := f.RawTable(tag); raw != nil {
			tables = append(tables, TableData{tag, raw})
		}
	}
	tables = append(tables,
		TableData{"glyf", glyf},
		TableData{"head", head.Encode()},
		TableData{"hhea", hhea.Encode()},
		TableData{"hmtx", hmtx.Encode()},
		TableData{"loca", loca.Encode()},
		TableData{"maxp", maxp.Encode()},
	)
	if raw := f.RawTable("name"); raw != nil {
		tables = append(tables, TableData{"name", raw})
	}
	if f.Post != nil {
		tables = append(tables, TableData{"post", f.Post.Encode()})
	}
	if raw := f.RawTable("prep"); raw != nil {
		tables = append(tables, TableData{"prep", raw})
	}

	res.Data = EncodeDirectory(tables)
	return res, nil
}

func sortedIDs(set map[uint16]bool) []uint16 {
	ids := make([]uint16, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
