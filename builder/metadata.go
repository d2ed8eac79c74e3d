package builder

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"seehuhn.de/go/xmp"

	"github.com/wudi/pdfgen/writer"
)

// Properties are the document information entries.
type Properties struct {
	Title    string
	Subject  string
	Author   string
	Keywords string
	Creator  string
}

// Producer is written to /Producer.
const Producer = "pdfgen"

// SetProperties replaces the document information.
func (d *Document) SetProperties(p Properties) { d.props = p }

func (d *Document) Properties() Properties { return d.props }

func (d *Document) SetCreationDate(t time.Time) { d.creationDate = t }

func (d *Document) CreationDate() time.Time { return d.creationDate }

// SetFileID sets both halves of the trailer /ID from 32 hex digits.
func (d *Document) SetFileID(id string) error {
	v, err := validFileID(id)
	if err != nil {
		return err
	}
	d.fileID = v
	return nil
}

func (d *Document) FileID() string { return d.fileID }

func validFileID(id string) (string, error) {
	if len(id) != 32 {
		return "", fmt.Errorf("%w: file id must be 32 hex digits", ErrInvalidArgument)
	}
	if _, err := hex.DecodeString(id); err != nil {
		return "", fmt.Errorf("%w: file id: %v", ErrInvalidArgument, err)
	}
	return strings.ToUpper(id), nil
}

// SetDisplayMode controls how viewers open the document. zoom is
// fullheight, fullwidth, fullpage, original, a percentage such as "150%"
// or a factor such as "1.5". layout is continuous, single, two, twoleft or
// tworight; pageMode is UseOutlines, UseThumbs, FullScreen or UseNone.
// Empty values keep the viewer defaults.
func (d *Document) SetDisplayMode(zoom, layout, pageMode string) error {
	z, err := openAction(zoom)
	if err != nil {
		return err
	}
	var l string
	switch layout {
	case "":
	case "continuous":
		l = "/OneColumn"
	case "single":
		l = "/SinglePage"
	case "two", "twoleft":
		l = "/TwoColumnLeft"
	case "tworight":
		l = "/TwoColumnRight"
	default:
		return fmt.Errorf("%w: layout %q", ErrInvalidDisplayMode, layout)
	}
	switch pageMode {
	case "", "UseOutlines", "UseThumbs", "FullScreen", "UseNone":
	default:
		return fmt.Errorf("%w: page mode %q", ErrInvalidDisplayMode, pageMode)
	}
	d.zoom, d.layout, d.pageMode = z, l, pageMode
	return nil
}

// openAction returns the destination tail following the first page reference.
func openAction(zoom string) (string, error) {
	switch zoom {
	case "":
		return "", nil
	case "fullheight":
		return "/FitV null", nil
	case "fullwidth":
		return "/FitH null", nil
	case "fullpage":
		return "/Fit", nil
	case "original":
		return "/XYZ null null 1", nil
	}
	s, scale := zoom, 1.0
	if strings.HasSuffix(zoom, "%") {
		s, scale = strings.TrimSuffix(zoom, "%"), 0.01
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !(v > 0) || !writer.ValidNumber(v) {
		return "", fmt.Errorf("%w: zoom %q", ErrInvalidDisplayMode, zoom)
	}
	return "/XYZ null null " + writer.F2(v*scale), nil
}

// SetLanguage sets the catalog /Lang entry from a BCP 47 tag.
func (d *Document) SetLanguage(tag string) error {
	t, err := language.Parse(tag)
	if err != nil {
		return fmt.Errorf("%w: language %q: %v", ErrInvalidArgument, tag, err)
	}
	d.lang = t.String()
	return nil
}

// SetTotalPagesAlias makes every occurrence of alias in text drawn on the
// pages read as the final page count.
func (d *Document) SetTotalPagesAlias(alias string) error {
	if alias == "" {
		return fmt.Errorf("%w: empty alias", ErrInvalidArgument)
	}
	d.totalPagesAlias = alias
	return nil
}

// pdfInfo is the XMP pdf: namespace.
type pdfInfo struct {
	_        xmp.Namespace `xmp:"http://ns.adobe.com/pdf/1.3/"`
	_        xmp.Prefix    `xmp:"pdf"`
	Keywords xmp.Text
	Producer xmp.AgentName
}

// xmpPacket renders the document properties as an XMP packet.
func (d *Document) xmpPacket() ([]byte, error) {
	dc := &xmp.DublinCore{}
	if d.props.Title != "" {
		dc.Title.Set(language.MustParse("x-default"), d.props.Title)
	}
	if d.props.Subject != "" {
		dc.Description.Set(language.MustParse("x-default"), d.props.Subject)
	}
	if d.props.Author != "" {
		dc.Creator.Append(xmp.NewProperName(d.props.Author))
	}
	basic := &xmp.Basic{}
	basic.CreateDate = xmp.NewDate(d.creationDate)
	basic.ModifyDate = xmp.NewDate(d.creationDate)
	if d.props.Creator != "" {
		basic.CreatorTool = xmp.NewAgentName(d.props.Creator)
	}
	info := &pdfInfo{}
	if d.props.Keywords != "" {
		info.Keywords = xmp.NewText(d.props.Keywords)
	}
	info.Producer = xmp.NewAgentName(Producer)

	packet := xmp.NewPacket()
	packet.Set(dc, basic, info)
	var buf bytes.Buffer
	if err := packet.Write(&buf, &xmp.PacketOptions{Pretty: true}); err != nil {
		return nil, fmt.Errorf("xmp: %w", err)
	}
	return buf.Bytes(), nil
}
