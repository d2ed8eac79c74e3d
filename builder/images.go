package builder

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif" // Register decoders
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strconv"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/wudi/pdfgen/observability"
	"github.com/wudi/pdfgen/writer"
)

// imageEntry is one image XObject. Identical image data is stored once.
type imageEntry struct {
	key        string
	width      int
	height     int
	colorSpace string
	bpc        int
	filter     string
	decode     string
	data       []byte
	smask      []byte
	sum        [32]byte
}

// AddImage draws an encoded image (JPEG, PNG, GIF, BMP, TIFF or WebP) with
// its top left corner at (x, y). A zero width or height is derived from
// the other side's aspect ratio; with both zero the image is placed at
// 96 dpi.
func (d *Document) AddImage(data []byte, x, y, w, h float64) error {
	if err := validNumbers(x, y, w, h); err != nil {
		return err
	}
	sum := sha256.Sum256(data)
	img := d.findImage(sum)
	if img == nil {
		var err error
		img, err = decodeImage(data)
		if err != nil {
			return err
		}
		img.sum = sum
		d.storeImage(img)
	}
	return d.placeImage(img, x, y, w, h)
}

// AddImageFile reads and draws an image file.
func (d *Document) AddImageFile(path string, x, y, w, h float64) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return d.AddImage(data, x, y, w, h)
}

// DrawImage draws a decoded image.
func (d *Document) DrawImage(src image.Image, x, y, w, h float64) error {
	if err := validNumbers(x, y, w, h); err != nil {
		return err
	}
	if src == nil || src.Bounds().Empty() {
		return fmt.Errorf("%w: empty image", ErrInvalidArgument)
	}
	img := fromImage(src)
	d.storeImage(img)
	return d.placeImage(img, x, y, w, h)
}

func (d *Document) findImage(sum [32]byte) *imageEntry {
	for _, img := range d.images {
		if img.sum == sum {
			return img
		}
	}
	return nil
}

func (d *Document) storeImage(img *imageEntry) {
	img.key = "I" + strconv.Itoa(len(d.images)+1)
	d.images = append(d.images, img)
	d.log.Debug("image added",
		observability.String("key", img.key),
		observability.Int("width", img.width),
		observability.Int("height", img.height))
}

func (d *Document) placeImage(img *imageEntry, x, y, w, h float64) error {
	if w < 0 || h < 0 {
		return fmt.Errorf("%w: image size %vx%v", ErrInvalidArgument, w, h)
	}
	if img.width <= 0 || img.height <= 0 {
		return fmt.Errorf("%w: image has %dx%d pixels", ErrInvalidArgument, img.width, img.height)
	}
	switch {
	case w == 0 && h == 0:
		w = float64(img.width) * 72 / 96 / d.k
		h = float64(img.height) * 72 / 96 / d.k
	case w == 0:
		w = h * float64(img.width) / float64(img.height)
	case h == 0:
		h = w * float64(img.height) / float64(img.width)
	}
	d.out("q")
	d.out(writer.F2(w*d.k) + " 0 0 " + writer.F2(h*d.k) + " " + d.x(x) + " " + d.y(y+h) + " cm")
	d.out("/" + img.key + " Do")
	d.out("Q")
	return nil
}

// decodeImage keeps JPEG data as is and decodes everything else to pixels.
func decodeImage(data []byte) (*imageEntry, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: image: %v", ErrInvalidArgument, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: image has %dx%d pixels", ErrInvalidArgument, cfg.Width, cfg.Height)
	}
	if format == "jpeg" {
		img := &imageEntry{
			width:  cfg.Width,
			height: cfg.Height,
			bpc:    8,
			filter: "/DCTDecode",
			data:   data,
		}
		switch cfg.ColorModel {
		case color.GrayModel:
			img.colorSpace = "/DeviceGray"
		case color.CMYKModel:
			img.colorSpace = "/DeviceCMYK"
			img.decode = "/Decode [1 0 1 0 1 0 1 0]"
		default:
			img.colorSpace = "/DeviceRGB"
		}
		return img, nil
	}
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: image: %v", ErrInvalidArgument, err)
	}
	return fromImage(src), nil
}

// fromImage converts src to 8-bit RGB, or gray for gray sources, and
// carries transparency as a soft mask.
func fromImage(src image.Image) *imageEntry {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	img := &imageEntry{width: w, height: h, bpc: 8}

	if g, ok := src.(*image.Gray); ok {
		pix := make([]byte, 0, w*h)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			off := g.PixOffset(bounds.Min.X, y)
			pix = append(pix, g.Pix[off:off+w]...)
		}
		img.colorSpace = "/DeviceGray"
		img.data = pix
		return img
	}

	nrgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(nrgba, nrgba.Bounds(), src, bounds.Min, draw.Src)

	pixels := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	hasAlpha := false
	for i := 0; i < w*h; i++ {
		off := i * 4
		pixels = append(pixels, nrgba.Pix[off], nrgba.Pix[off+1], nrgba.Pix[off+2])
		a := nrgba.Pix[off+3]
		alpha = append(alpha, a)
		if a < 255 {
			hasAlpha = true
		}
	}
	img.colorSpace = "/DeviceRGB"
	img.data = pixels
	if hasAlpha {
		img.smask = alpha
	}
	return img
}

func (d *Document) putImage(img *imageEntry) (int, error) {
	smask := 0
	if img.smask != nil {
		smask = d.w.NewObjectDeferred()
	}
	n := d.w.NewObject()
	entries := []string{
		"/Type /XObject",
		"/Subtype /Image",
		"/Width " + strconv.Itoa(img.width),
		"/Height " + strconv.Itoa(img.height),
		"/ColorSpace " + img.colorSpace,
		"/BitsPerComponent " + strconv.Itoa(img.bpc),
	}
	if img.decode != "" {
		entries = append(entries, img.decode)
	}
	if smask > 0 {
		entries = append(entries, fmt.Sprintf("/SMask %d 0 R", smask))
	}
	if err := d.w.PutStream(writer.Stream{Entries: entries, Data: img.data, Filter: img.filter, Compress: true}); err != nil {
		return 0, err
	}
	d.w.EndObject()
	if smask > 0 {
		if err := d.w.BeginDeferred(smask); err != nil {
			return 0, err
		}
		err := d.w.PutStream(writer.Stream{
			Entries: []string{
				"/Type /XObject",
				"/Subtype /Image",
				"/Width " + strconv.Itoa(img.width),
				"/Height " + strconv.Itoa(img.height),
				"/ColorSpace /DeviceGray",
				"/BitsPerComponent 8",
			},
			Data:     img.smask,
			Compress: true,
		})
		if err != nil {
			return 0, err
		}
		d.w.EndObject()
	}
	return n, nil
}
