package writer

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wudi/pdfgen/filters"
)

// ErrMissingOffset reports an allocated object number that was never written.
var ErrMissingOffset = errors.New("writer: object has no recorded offset")

// Version is a PDF header version.
type Version string

const (
	PDF13 Version = "1.3"
	PDF17 Version = "1.7"
	PDF20 Version = "2.0"
)

// Config holds serialization settings.
type Config struct {
	Version  Version
	Compress bool
}

// Encryptor encrypts string and stream data of one object.
type Encryptor interface {
	Encrypt(objNum, gen int, data []byte) []byte
}

// Writer serializes PDF objects into a single offset-tracked buffer.
// Object numbers start at 1 and are handed out sequentially; the byte
// offset of an object is recorded when its "N 0 obj" header is written.
type Writer struct {
	cfg Config
	buf bytes.Buffer

	offsets    []int // index is the object number, -1 until written
	current    int
	additional []*AdditionalObject
	enc        Encryptor
	flate      *filters.Pipeline
	xrefOffset int
}

// AdditionalObject is a reserved object whose body is collected separately
// and written by PutAdditionalObjects.
type AdditionalObject struct {
	Num     int
	Content []string
}

// Out appends one line to the object body.
func (a *AdditionalObject) Out(s string) { a.Content = append(a.Content, s) }

// New returns an empty writer.
func New(cfg Config) *Writer {
	if cfg.Version == "" {
		cfg.Version = PDF13
	}
	w := &Writer{
		cfg:   cfg,
		flate: filters.NewPipeline([]filters.Filter{filters.Flate(zlib.BestCompression)}, filters.Limits{}),
	}
	w.Reset()
	return w
}

// Reset discards all output and object numbers.
func (w *Writer) Reset() {
	w.buf.Reset()
	w.offsets = []int{0}
	w.current = 0
	w.additional = nil
	w.xrefOffset = 0
}

// SetEncryptor routes string and stream data through e. Nil disables encryption.
func (w *Writer) SetEncryptor(e Encryptor) { w.enc = e }

// Config returns the writer configuration.
func (w *Writer) Config() Config { return w.cfg }

// Out appends s followed by a newline.
func (w *Writer) Out(s string) {
	w.buf.WriteString(s)
	w.buf.WriteByte('\n')
}

// Outf formats and appends one line.
func (w *Writer) Outf(format string, args ...any) {
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteByte('\n')
}

// Write appends raw bytes.
func (w *Writer) Write(p []byte) (int, error) { return w.buf.Write(p) }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the serialized output.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

// ObjectCount returns the number of allocated objects.
func (w *Writer) ObjectCount() int { return len(w.offsets) - 1 }

// Current returns the number of the object being written, or 0.
func (w *Writer) Current() int { return w.current }

// Header writes the file header with a binary marker comment.
func (w *Writer) Header() {
	w.Out("%PDF-" + string(w.cfg.Version))
	w.Out("%\xBA\xDF\xAC\xE0")
}

// NewObject allocates the next object number and opens it.
func (w *Writer) NewObject() int {
	n := w.NewObjectDeferred()
	w.begin(n)
	return n
}

// NewObjectDeferred reserves an object number without writing anything.
func (w *Writer) NewObjectDeferred() int {
	w.offsets = append(w.offsets, -1)
	return len(w.offsets) - 1
}

// BeginDeferred opens a previously reserved object.
func (w *Writer) BeginDeferred(n int) error {
	if n <= 0 || n >= len(w.offsets) {
		return fmt.Errorf("writer: object %d was never allocated", n)
	}
	if w.offsets[n] >= 0 {
		return fmt.Errorf("writer: object %d written twice", n)
	}
	w.begin(n)
	return nil
}

func (w *Writer) begin(n int) {
	w.offsets[n] = w.buf.Len()
	w.current = n
	w.Outf("%d 0 obj", n)
}

// EndObject closes the current object.
func (w *Writer) EndObject() {
	w.Out("endobj")
	w.current = 0
}

// NewAdditionalObject reserves an object number plus a body buffer.
func (w *Writer) NewAdditionalObject() *AdditionalObject {
	a := &AdditionalObject{Num: w.NewObjectDeferred()}
	w.additional = append(w.additional, a)
	return a
}

// PutAdditionalObjects writes every additional object in allocation order.
func (w *Writer) PutAdditionalObjects() error {
	for _, a := range w.additional {
		if err := w.BeginDeferred(a.Num); err != nil {
			return err
		}
		for _, line := range a.Content {
			w.Out(line)
		}
		w.EndObject()
	}
	return nil
}

// Stream describes a stream object body.
type Stream struct {
	Entries  []string // extra dictionary entries, e.g. "/Type /XObject"
	Data     []byte
	Filter   string // pre-applied filter, e.g. "/DCTDecode"
	NoFilter bool   // never compress
	Compress bool   // compress even when the writer is configured not to
}

// PutStream writes a stream dictionary and body into the current object.
// Data is Flate compressed when compression is enabled and no filter was
// already applied, then encrypted when an encryptor is set.
func (w *Writer) PutStream(s Stream) error {
	data := s.Data
	filter := s.Filter
	if filter == "" && (w.cfg.Compress || s.Compress) && !s.NoFilter {
		z, err := w.flate.Encode(context.Background(), data)
		if err != nil {
			return fmt.Errorf("compress stream: %w", err)
		}
		data = z
		filter = w.flate.Names()
	}
	if w.enc != nil && w.current > 0 {
		data = w.enc.Encrypt(w.current, 0, data)
	}

	var dict strings.Builder
	dict.WriteString("<<")
	for _, e := range s.Entries {
		dict.WriteString(e)
		dict.WriteByte('\n')
	}
	if filter != "" {
		dict.WriteString("/Filter " + filter + "\n")
	}
	fmt.Fprintf(&dict, "/Length %d\n>>", len(data))
	w.Out(dict.String())
	w.Out("stream")
	w.buf.Write(data)
	w.buf.WriteByte('\n')
	w.Out("endstream")
	return nil
}

// String returns s as a PDF string operand for the current object,
// encrypted when an encryptor is set.
func (w *Writer) String(s string) string {
	return w.StringFor(w.current, s)
}

// StringFor returns s as a string operand of object objNum. Bodies of
// additional objects are built while another object is open and need it.
func (w *Writer) StringFor(objNum int, s string) string {
	if w.enc != nil && objNum > 0 {
		return HexString(w.enc.Encrypt(objNum, 0, []byte(s)))
	}
	return "(" + EscapeString(s) + ")"
}

// TextString is String for human-readable text: UTF-16BE with a byte
// order mark when s leaves the Latin-1 range.
func (w *Writer) TextString(s string) string {
	return w.String(TextString(s))
}

// PutXRef writes the cross-reference table. Every allocated object must
// have been written.
func (w *Writer) PutXRef() error {
	for n := 1; n < len(w.offsets); n++ {
		if w.offsets[n] < 0 {
			return fmt.Errorf("%w: object %d", ErrMissingOffset, n)
		}
	}
	w.xrefOffset = w.buf.Len()
	w.Out("xref")
	w.Outf("0 %d", len(w.offsets))
	w.Out("0000000000 65535 f ")
	for n := 1; n < len(w.offsets); n++ {
		w.Outf("%010d 00000 n ", w.offsets[n])
	}
	return nil
}

// Trailer holds the trailer references.
type Trailer struct {
	Root    int
	Info    int
	Encrypt int
	ID      [2]string // hex encoded
}

// PutTrailer writes the trailer dictionary, startxref and the EOF marker.
// PutXRef must be called first.
func (w *Writer) PutTrailer(t Trailer) {
	w.Out("trailer")
	w.Out("<<")
	w.Outf("/Size %d", len(w.offsets))
	w.Outf("/Root %d 0 R", t.Root)
	if t.Info > 0 {
		w.Outf("/Info %d 0 R", t.Info)
	}
	if t.Encrypt > 0 {
		w.Outf("/Encrypt %d 0 R", t.Encrypt)
	}
	if t.ID[0] != "" {
		w.Outf("/ID [ <%s> <%s> ]", t.ID[0], t.ID[1])
	}
	w.Out(">>")
	w.Out("startxref")
	w.Outf("%d", w.xrefOffset)
	w.buf.WriteString("%%EOF")
}

// Offset returns the recorded offset of object n, or -1.
func (w *Writer) Offset(n int) int {
	if n <= 0 || n >= len(w.offsets) {
		return -1
	}
	return w.offsets[n]
}
