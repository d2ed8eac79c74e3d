package builder

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wudi/pdfgen/fonts"
	"github.com/wudi/pdfgen/observability"
	"github.com/wudi/pdfgen/security"
)

var (
	ErrInvalidUnit        = errors.New("builder: invalid unit")
	ErrInvalidFormat      = errors.New("builder: invalid page format")
	ErrInvalidOrientation = errors.New("builder: invalid orientation")
	ErrInvalidDisplayMode = errors.New("builder: invalid display mode")
	ErrInvalidArgument    = errors.New("builder: invalid argument")
	ErrPageOutOfRange     = errors.New("builder: page out of range")
	ErrFontData           = errors.New("builder: invalid font data")
)

// ErrUnknownFont is returned for a style that a known family does not have.
var ErrUnknownFont = fonts.ErrUnknownFont

// unitScale maps a unit name to points per unit.
var unitScale = map[string]float64{
	"pt": 1,
	"mm": 72 / 25.4,
	"cm": 72 / 2.54,
	"in": 72,
	"px": 96.0 / 72,
	"pc": 12,
	"em": 12,
	"ex": 6,
}

// pageFormats holds width and height in points, portrait.
var pageFormats = map[string][2]float64{
	"a0":  {2383.94, 3370.39},
	"a1":  {1683.78, 2383.94},
	"a2":  {1190.55, 1683.78},
	"a3":  {841.89, 1190.55},
	"a4":  {595.28, 841.89},
	"a5":  {419.53, 595.28},
	"a6":  {297.64, 419.53},
	"a7":  {209.76, 297.64},
	"a8":  {147.40, 209.76},
	"a9":  {104.88, 147.40},
	"a10": {73.70, 104.88},
	"b0":  {2834.65, 4008.19},
	"b1":  {2004.09, 2834.65},
	"b2":  {1417.32, 2004.09},
	"b3":  {1000.63, 1417.32},
	"b4":  {708.66, 1000.63},
	"b5":  {498.90, 708.66},
	"b6":  {354.33, 498.90},
	"b7":  {249.45, 354.33},
	"b8":  {175.75, 249.45},
	"b9":  {124.72, 175.75},
	"b10": {87.87, 124.72},
	"c0":  {2599.37, 3676.54},
	"c1":  {1836.85, 2599.37},
	"c2":  {1298.27, 1836.85},
	"c3":  {918.43, 1298.27},
	"c4":  {649.13, 918.43},
	"c5":  {459.21, 649.13},
	"c6":  {323.15, 459.21},
	"c7":  {229.61, 323.15},
	"c8":  {161.57, 229.61},
	"c9":  {113.39, 161.57},
	"c10": {79.37, 113.39},
	"dl":  {311.81, 623.62},

	"letter":            {612, 792},
	"government-letter": {576, 756},
	"legal":             {612, 1008},
	"junior-legal":      {576, 360},
	"ledger":            {1224, 792},
	"tabloid":           {792, 1224},
	"credit-card":       {153, 243},
}

// Option configures a Document at construction.
type Option func(*config) error

type config struct {
	unit        string
	format      string
	size        [2]float64 // user units, set by WithPageSize
	orientation string
	compress    bool
	precision   int
	metrics     fonts.MetricsTable
	logger      observability.Logger
	tracer      observability.Tracer
	hooks       []any

	creationDate     time.Time
	fileID           string
	putOnlyUsedFonts bool
	userUnit         float64
	encryption       *security.Config
	xmp              bool
}

func defaultConfig() config {
	return config{
		unit:        "mm",
		format:      "a4",
		orientation: "portrait",
		precision:   2,
		logger:      observability.NopLogger{},
		tracer:      observability.NopTracer(),
		userUnit:    1,
	}
}

// WithUnit sets the user unit: pt, mm, cm, in, px, pc, em or ex.
func WithUnit(unit string) Option {
	return func(c *config) error {
		u := strings.ToLower(unit)
		if _, ok := unitScale[u]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
		}
		c.unit = u
		return nil
	}
}

// WithFormat selects a named page format such as "a4" or "letter".
func WithFormat(name string) Option {
	return func(c *config) error {
		f := strings.ToLower(name)
		if _, ok := pageFormats[f]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidFormat, name)
		}
		c.format = f
		c.size = [2]float64{}
		return nil
	}
}

// WithPageSize sets a custom page size in user units.
func WithPageSize(width, height float64) Option {
	return func(c *config) error {
		if !(width > 0 && height > 0) || width > 14400 || height > 14400 {
			return fmt.Errorf("%w: size %vx%v", ErrInvalidFormat, width, height)
		}
		c.size = [2]float64{width, height}
		return nil
	}
}

// WithOrientation sets portrait ("p") or landscape ("l").
func WithOrientation(o string) Option {
	return func(c *config) error {
		n, err := normalizeOrientation(o)
		if err != nil {
			return err
		}
		c.orientation = n
		return nil
	}
}

func normalizeOrientation(o string) (string, error) {
	switch strings.ToLower(o) {
	case "p", "portrait":
		return "portrait", nil
	case "l", "landscape":
		return "landscape", nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrientation, o)
}

// WithCompression Flate compresses content and font streams.
func WithCompression(on bool) Option {
	return func(c *config) error { c.compress = on; return nil }
}

// WithPrecision sets the number of decimals used for free-form numbers.
func WithPrecision(p int) Option {
	return func(c *config) error {
		if p < 0 || p > 16 {
			return fmt.Errorf("%w: precision %d", ErrInvalidArgument, p)
		}
		c.precision = p
		return nil
	}
}

// WithStandardFonts replaces the metrics used for the 14 core fonts.
func WithStandardFonts(m fonts.MetricsTable) Option {
	return func(c *config) error { c.metrics = m; return nil }
}

func WithLogger(l observability.Logger) Option {
	return func(c *config) error {
		if l != nil {
			c.logger = l
		}
		return nil
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(c *config) error {
		if t != nil {
			c.tracer = t
		}
		return nil
	}
}

// WithHooks registers plugin hooks. Each value must implement at least
// one of the hook interfaces.
func WithHooks(hooks ...any) Option {
	return func(c *config) error {
		for _, h := range hooks {
			if !isHook(h) {
				return fmt.Errorf("%w: %T implements no hook", ErrInvalidArgument, h)
			}
		}
		c.hooks = append(c.hooks, hooks...)
		return nil
	}
}

// WithCreationDate fixes the creation date. The current time is used
// otherwise.
func WithCreationDate(t time.Time) Option {
	return func(c *config) error { c.creationDate = t; return nil }
}

// WithFileID fixes the 32 hex digit file identifier.
func WithFileID(id string) Option {
	return func(c *config) error {
		v, err := validFileID(id)
		if err != nil {
			return err
		}
		c.fileID = v
		return nil
	}
}

// WithPutOnlyUsedFonts drops fonts that no text used from the output.
func WithPutOnlyUsedFonts(on bool) Option {
	return func(c *config) error { c.putOnlyUsedFonts = on; return nil }
}

// WithUserUnit sets /UserUnit on every page.
func WithUserUnit(u float64) Option {
	return func(c *config) error {
		if !(u > 0) {
			return fmt.Errorf("%w: user unit %v", ErrInvalidArgument, u)
		}
		c.userUnit = u
		return nil
	}
}

// WithEncryption protects the output with the standard security handler.
func WithEncryption(cfg security.Config) Option {
	return func(c *config) error {
		c.encryption = &cfg
		return nil
	}
}

// WithXMPMetadata attaches an XMP packet mirroring the document properties.
func WithXMPMetadata(on bool) Option {
	return func(c *config) error { c.xmp = on; return nil }
}
