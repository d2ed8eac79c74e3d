package builder

import (
	"fmt"
	"math"
	"strings"
)

var lineCaps = map[string]int{"butt": 0, "round": 1, "square": 2, "projecting": 2}

var lineJoins = map[string]int{"miter": 0, "round": 1, "bevel": 2}

// SetLineWidth sets the stroke width in user units.
func (d *Document) SetLineWidth(w float64) error {
	if err := validNumbers(w); err != nil {
		return err
	}
	if w < 0 {
		return fmt.Errorf("%w: line width %v", ErrInvalidArgument, w)
	}
	d.lineWidth = w
	d.out(d.hpf(w*d.k) + " w")
	return nil
}

// SetLineCap accepts butt, round, square or projecting.
func (d *Document) SetLineCap(style string) error {
	id, ok := lineCaps[strings.ToLower(style)]
	if !ok {
		return fmt.Errorf("%w: line cap %q", ErrInvalidArgument, style)
	}
	d.lineCap = id
	d.out(fmt.Sprintf("%d J", id))
	return nil
}

// SetLineJoin accepts miter, round or bevel.
func (d *Document) SetLineJoin(style string) error {
	id, ok := lineJoins[strings.ToLower(style)]
	if !ok {
		return fmt.Errorf("%w: line join %q", ErrInvalidArgument, style)
	}
	d.lineJoin = id
	d.out(fmt.Sprintf("%d j", id))
	return nil
}

// SetLineDash sets the dash pattern in user units. An empty pattern
// restores solid lines.
func (d *Document) SetLineDash(pattern []float64, phase float64) error {
	if err := validNumbers(append([]float64{phase}, pattern...)...); err != nil {
		return err
	}
	parts := make([]string, len(pattern))
	for i, v := range pattern {
		if v < 0 {
			return fmt.Errorf("%w: negative dash length %v", ErrInvalidArgument, v)
		}
		parts[i] = d.hpf(v * d.k)
	}
	d.out("[" + strings.Join(parts, " ") + "] " + d.hpf(phase*d.k) + " d")
	return nil
}

// paintOperator maps a paint style onto the path painting operator. An
// empty style strokes.
func paintOperator(style string) (string, error) {
	switch style {
	case "", "S", "D":
		return "S", nil
	case "F":
		return "f", nil
	case "DF", "FD":
		return "B", nil
	}
	return "", fmt.Errorf("%w: paint style %q", ErrInvalidArgument, style)
}

// Line strokes a straight line.
func (d *Document) Line(x1, y1, x2, y2 float64, style string) error {
	return d.Lines([][]float64{{x2 - x1, y2 - y1}}, x1, y1, [2]float64{1, 1}, style, false)
}

// Lines draws a path starting at (x, y). Each segment is relative to the
// end of the previous one: two values for a straight line or six for a
// cubic Bezier curve (control points then end point). scale multiplies
// segment coordinates.
func (d *Document) Lines(segments [][]float64, x, y float64, scale [2]float64, style string, closed bool) error {
	op, err := paintOperator(style)
	if err != nil {
		return err
	}
	if err := validNumbers(x, y, scale[0], scale[1]); err != nil {
		return err
	}
	for _, seg := range segments {
		if len(seg) != 2 && len(seg) != 6 {
			return fmt.Errorf("%w: segment with %d values", ErrInvalidArgument, len(seg))
		}
		if err := validNumbers(seg...); err != nil {
			return err
		}
	}

	ops := []string{d.x(x) + " " + d.y(y) + " m"}
	cx, cy := x, y
	for _, seg := range segments {
		if len(seg) == 2 {
			cx += seg[0] * scale[0]
			cy += seg[1] * scale[1]
			ops = append(ops, d.x(cx)+" "+d.y(cy)+" l")
			continue
		}
		pts := make([]string, 0, 7)
		for i := 0; i < 6; i += 2 {
			px, py := cx+seg[i]*scale[0], cy+seg[i+1]*scale[1]
			pts = append(pts, d.x(px), d.y(py))
		}
		cx += seg[4] * scale[0]
		cy += seg[5] * scale[1]
		ops = append(ops, strings.Join(append(pts, "c"), " "))
	}
	if closed {
		ops = append(ops, "h")
	}
	for _, s := range ops {
		d.out(s)
	}
	d.out(op)
	return nil
}

// Rect draws a rectangle with its top left corner at (x, y).
func (d *Document) Rect(x, y, w, h float64, style string) error {
	op, err := paintOperator(style)
	if err != nil {
		return err
	}
	if err := validNumbers(x, y, w, h); err != nil {
		return err
	}
	d.out(d.x(x) + " " + d.y(y) + " " + d.x(w) + " " + d.x(-h) + " re")
	d.out(op)
	return nil
}

// RoundedRect draws a rectangle whose corners are elliptic arcs with radii
// rx and ry.
func (d *Document) RoundedRect(x, y, w, h, rx, ry float64, style string) error {
	if _, err := paintOperator(style); err != nil {
		return err
	}
	if err := validNumbers(x, y, w, h, rx, ry); err != nil {
		return err
	}
	rx = math.Min(math.Abs(rx), math.Abs(w)/2)
	ry = math.Min(math.Abs(ry), math.Abs(h)/2)
	mx, my := bezierArc*rx, bezierArc*ry
	segments := [][]float64{
		{w - 2*rx, 0},
		{mx, 0, rx, ry - my, rx, ry},
		{0, h - 2*ry},
		{0, my, -(rx - mx), ry, -rx, ry},
		{-w + 2*rx, 0},
		{-mx, 0, -rx, -(ry - my), -rx, -ry},
		{0, -h + 2*ry},
		{0, -my, rx - mx, -ry, rx, -ry},
	}
	return d.Lines(segments, x+rx, y, [2]float64{1, 1}, style, true)
}

// bezierArc is the control point distance for a quarter circle of radius 1.
var bezierArc = 4.0 / 3 * (math.Sqrt2 - 1)

// Ellipse draws an ellipse centered on (x, y).
func (d *Document) Ellipse(x, y, rx, ry float64, style string) error {
	op, err := paintOperator(style)
	if err != nil {
		return err
	}
	if err := validNumbers(x, y, rx, ry); err != nil {
		return err
	}
	lx, ly := bezierArc*rx, bezierArc*ry
	pt := func(px, py float64) string { return d.x(px) + " " + d.y(py) }
	d.out(pt(x+rx, y) + " m")
	d.out(pt(x+rx, y-ly) + " " + pt(x+lx, y-ry) + " " + pt(x, y-ry) + " c")
	d.out(pt(x-lx, y-ry) + " " + pt(x-rx, y-ly) + " " + pt(x-rx, y) + " c")
	d.out(pt(x-rx, y+ly) + " " + pt(x-lx, y+ry) + " " + pt(x, y+ry) + " c")
	d.out(pt(x+lx, y+ry) + " " + pt(x+rx, y+ly) + " " + pt(x+rx, y) + " c")
	d.out(op)
	return nil
}

// Circle draws a circle centered on (x, y).
func (d *Document) Circle(x, y, r float64, style string) error {
	return d.Ellipse(x, y, r, r, style)
}

// Triangle draws the closed triangle through three points.
func (d *Document) Triangle(x1, y1, x2, y2, x3, y3 float64, style string) error {
	if err := validNumbers(x1, y1, x2, y2, x3, y3); err != nil {
		return err
	}
	return d.Lines([][]float64{{x2 - x1, y2 - y1}, {x3 - x2, y3 - y2}, {x1 - x3, y1 - y3}},
		x1, y1, [2]float64{1, 1}, style, true)
}
