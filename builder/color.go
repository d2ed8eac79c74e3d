package builder

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/wudi/pdfgen/writer"
)

// ParseColor converts a color string into channel values accepted by the
// Set*Color methods: "#rgb", "#rrggbb", "rgb(r, g, b)", a CSS color name,
// or a single gray level 0-255.
func ParseColor(s string) ([]float64, error) {
	c := strings.ToLower(strings.TrimSpace(s))
	switch {
	case c == "":
	case strings.HasPrefix(c, "#"):
		return parseHexColor(c[1:], s)
	case strings.HasPrefix(c, "rgb(") && strings.HasSuffix(c, ")"):
		parts := strings.Split(c[4:len(c)-1], ",")
		if len(parts) != 3 {
			break
		}
		out := make([]float64, 3)
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil || v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: color %q", ErrInvalidArgument, s)
			}
			out[i] = v
		}
		return out, nil
	default:
		if rgba, ok := colornames.Map[c]; ok {
			return []float64{float64(rgba.R), float64(rgba.G), float64(rgba.B)}, nil
		}
		if v, err := strconv.ParseFloat(c, 64); err == nil && v >= 0 && v <= 255 {
			return []float64{v}, nil
		}
	}
	return nil, fmt.Errorf("%w: color %q", ErrInvalidArgument, s)
}

func parseHexColor(h, orig string) ([]float64, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return nil, fmt.Errorf("%w: color %q", ErrInvalidArgument, orig)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: color %q", ErrInvalidArgument, orig)
	}
	return []float64{float64(v >> 16 & 0xFF), float64(v >> 8 & 0xFF), float64(v & 0xFF)}, nil
}

// encodeColor renders a color operator. Gray and RGB channels are 0-255,
// CMYK channels 0-1. stroke selects the uppercase operator.
func encodeColor(ch []float64, stroke bool) (string, error) {
	if err := validNumbers(ch...); err != nil {
		return "", err
	}
	var max float64
	var op string
	switch len(ch) {
	case 1:
		max, op = 255, "g"
	case 3:
		max, op = 255, "rg"
	case 4:
		max, op = 1, "k"
	default:
		return "", fmt.Errorf("%w: %d color channels", ErrInvalidArgument, len(ch))
	}
	parts := make([]string, 0, len(ch)+1)
	for _, v := range ch {
		if v < 0 || v > max {
			return "", fmt.Errorf("%w: color channel %v outside 0-%v", ErrInvalidArgument, v, max)
		}
		parts = append(parts, writer.F2(v/max))
	}
	if stroke {
		op = strings.ToUpper(op)
	}
	return strings.Join(append(parts, op), " "), nil
}

// SetDrawColor sets the stroke color from 1, 3 or 4 channels.
func (d *Document) SetDrawColor(ch ...float64) error {
	c, err := encodeColor(ch, true)
	if err != nil {
		return err
	}
	d.drawColor = c
	d.out(c)
	return nil
}

// SetFillColor sets the fill color from 1, 3 or 4 channels.
func (d *Document) SetFillColor(ch ...float64) error {
	c, err := encodeColor(ch, false)
	if err != nil {
		return err
	}
	d.fillColor = c
	d.out(c)
	return nil
}

// SetTextColor sets the color used by Text. It is emitted inside each
// text object.
func (d *Document) SetTextColor(ch ...float64) error {
	c, err := encodeColor(ch, false)
	if err != nil {
		return err
	}
	d.textColor = c
	return nil
}

func (d *Document) SetDrawColorString(s string) error {
	ch, err := ParseColor(s)
	if err != nil {
		return err
	}
	return d.SetDrawColor(ch...)
}

func (d *Document) SetFillColorString(s string) error {
	ch, err := ParseColor(s)
	if err != nil {
		return err
	}
	return d.SetFillColor(ch...)
}

func (d *Document) SetTextColorString(s string) error {
	ch, err := ParseColor(s)
	if err != nil {
		return err
	}
	return d.SetTextColor(ch...)
}
