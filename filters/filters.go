// Package filters implements the stream filters the writer applies and
// their inverses.
package filters

import (
	"bytes"
	"compress/zlib"
	"context"
	stdascii85 "encoding/ascii85"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrUnknownFilter = errors.New("filters: unknown filter")
	ErrLimit         = errors.New("filters: decoded size exceeds limit")
)

// Filter encodes stream data and decodes it back.
type Filter interface {
	Name() string
	Encode(ctx context.Context, input []byte) ([]byte, error)
	Decode(ctx context.Context, input []byte) ([]byte, error)
}

// Limits bounds decoding.
type Limits struct {
	MaxDecodedSize int64
}

// Pipeline applies a chain of filters. Filters are listed in decode order,
// the order of a /Filter array.
type Pipeline struct {
	filters []Filter
	limits  Limits
}

// NewPipeline constructs a pipeline with provided filters and limits.
func NewPipeline(filters []Filter, limits Limits) *Pipeline {
	return &Pipeline{filters: filters, limits: limits}
}

// Names returns the /Filter operand for the pipeline: a single name, an
// array for several, or "" for none.
func (p *Pipeline) Names() string {
	switch len(p.filters) {
	case 0:
		return ""
	case 1:
		return "/" + p.filters[0].Name()
	}
	names := make([]string, len(p.filters))
	for i, f := range p.filters {
		names[i] = "/" + f.Name()
	}
	return "[" + strings.Join(names, " ") + "]"
}

// Encode runs the filters last to first so that a reader decoding in
// /Filter order recovers input.
func (p *Pipeline) Encode(ctx context.Context, input []byte) ([]byte, error) {
	data := input
	for i := len(p.filters) - 1; i >= 0; i-- {
		out, err := p.filters[i].Encode(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.filters[i].Name(), err)
		}
		data = out
	}
	return data, nil
}

// Decode inverts Encode.
func (p *Pipeline) Decode(ctx context.Context, input []byte) ([]byte, error) {
	data := input
	for _, f := range p.filters {
		out, err := f.Decode(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name(), err)
		}
		if p.limits.MaxDecodedSize > 0 && int64(len(out)) > p.limits.MaxDecodedSize {
			return nil, ErrLimit
		}
		data = out
	}
	return data, nil
}

// ByName returns the filter for a /Filter name, with or without the
// leading slash.
func ByName(name string) (Filter, error) {
	switch strings.TrimPrefix(name, "/") {
	case "FlateDecode":
		return Flate(zlib.DefaultCompression), nil
	case "ASCIIHexDecode":
		return ASCIIHex(), nil
	case "ASCII85Decode":
		return ASCII85(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
}

type flateFilter struct{ level int }

// Flate returns the FlateDecode filter compressing at level, one of the
// compress/zlib levels.
func Flate(level int) Filter { return flateFilter{level: level} }

func (flateFilter) Name() string { return "FlateDecode" }

func (f flateFilter) Encode(ctx context.Context, in []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, f.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(in); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (flateFilter) Decode(ctx context.Context, in []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, err := zlib.NewReader(bytes.NewReader(in))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out bytes.Buffer
	if _, err := io.Copy(&out, r); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

type asciiHexFilter struct{}

// ASCIIHex returns the ASCIIHexDecode filter.
func ASCIIHex() Filter { return asciiHexFilter{} }

func (asciiHexFilter) Name() string { return "ASCIIHexDecode" }

func (asciiHexFilter) Encode(_ context.Context, in []byte) ([]byte, error) {
	out := make([]byte, hex.EncodedLen(len(in))+1)
	hex.Encode(out, in)
	out[len(out)-1] = '>'
	return bytes.ToUpper(out), nil
}

func (asciiHexFilter) Decode(_ context.Context, in []byte) ([]byte, error) {
	var digits []byte
	for _, c := range in {
		if c == '>' {
			break
		}
		switch c {
		case ' ', '\t', '\r', '\n', '\f', 0:
			continue
		}
		digits = append(digits, c)
	}
	// an odd final digit is followed by an implied 0
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	result := make([]byte, hex.DecodedLen(len(digits)))
	n, err := hex.Decode(result, digits)
	if err != nil {
		return nil, err
	}
	return result[:n], nil
}

type ascii85Filter struct{}

// ASCII85 returns the ASCII85Decode filter.
func ASCII85() Filter { return ascii85Filter{} }

func (ascii85Filter) Name() string { return "ASCII85Decode" }

func (ascii85Filter) Encode(_ context.Context, in []byte) ([]byte, error) {
	out := make([]byte, stdascii85.MaxEncodedLen(len(in)))
	n := stdascii85.Encode(out, in)
	return append(out[:n], '~', '>'), nil
}

func (ascii85Filter) Decode(_ context.Context, in []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(in)
	trimmed = bytes.TrimPrefix(trimmed, []byte("<~"))
	trimmed = bytes.TrimSuffix(trimmed, []byte("~>"))
	out := make([]byte, 4*len(trimmed)+4)
	n, _, err := stdascii85.Decode(out, trimmed, true)
	if err != nil {
		return nil, err
	}
	return out[:n], nil
}
