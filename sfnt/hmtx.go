package sfnt

import "fmt"

// Metric is one horizontal metric record.
type Metric struct {
	AdvanceWidth uint16
	LSB          int16
}

// Hmtx holds horizontal metrics. NumberOfHMetrics and NumGlyphs come from
// hhea and maxp and must be set before Parse.
type Hmtx struct {
	NumberOfHMetrics int
	NumGlyphs        int

	Metrics []Metric // one per glyph, trailing widths already expanded
}

func (*Hmtx) Tag() string { return "hmtx" }

func (h *Hmtx) Parse(d *Data) error {
	if h.NumberOfHMetrics <= 0 || h.NumberOfHMetrics > h.NumGlyphs {
		return fmt.Errorf("%w: numberOfHMetrics %d for %d glyphs", ErrMalformed, h.NumberOfHMetrics, h.NumGlyphs)
	}
	h.Metrics = make([]Metric, h.NumGlyphs)
	for i := 0; i < h.NumberOfHMetrics; i++ {
		h.Metrics[i] = Metric{AdvanceWidth: d.ReadUint16(), LSB: d.ReadInt16()}
	}
	last := h.Metrics[h.NumberOfHMetrics-1].AdvanceWidth
	for i := h.NumberOfHMetrics; i < h.NumGlyphs; i++ {
		h.Metrics[i] = Metric{AdvanceWidth: last, LSB: d.ReadInt16()}
	}
	return d.Err()
}

// Advance returns the advance width of gid. Out of range ids use the last
// stored width, matching the monospace tail rule.
func (h *Hmtx) Advance(gid uint16) uint16 {
	if len(h.Metrics) == 0 {
		return 0
	}
	if int(gid) >= len(h.Metrics) {
		return h.Metrics[len(h.Metrics)-1].AdvanceWidth
	}
	return h.Metrics[gid].AdvanceWidth
}

// Encode writes every glyph as a full metric record, so numberOfHMetrics
// equals the glyph count in the encoded table.
func (h *Hmtx) Encode() []byte {
	d := NewData(make([]byte, 0, 4*len(h.Metrics)))
	for _, m := range h.Metrics {
		d.WriteUint16(m.AdvanceWidth)
		d.WriteInt16(m.LSB)
	}
	return d.Bytes()
}
