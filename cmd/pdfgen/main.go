// Command pdfgen renders plain text, Markdown or HTML into a PDF.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/term"

	"github.com/wudi/pdfgen/builder"
	"github.com/wudi/pdfgen/layout"
	"github.com/wudi/pdfgen/observability"
	"github.com/wudi/pdfgen/scripting"
	"github.com/wudi/pdfgen/security"
)

type options struct {
	input       string
	output      string
	format      string
	unit        string
	page        string
	orientation string
	margin      float64
	fontSize    float64
	fontPath    string
	goFont      bool
	compress    bool
	footer      bool
	xmp         bool
	lang        string
	props       builder.Properties

	encrypt       string
	userPassword  string
	ownerPassword string
	askPassword   bool
	permissions   string

	jsPath    string
	previewJS bool
	verbose   bool
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "pdfgen: %v\n", err)
		os.Exit(2)
	}
	if err := run(context.Background(), opts, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "pdfgen: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pdfgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pdfgen [flags] <input|->\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.output, "o", "", "Output file (default stdout)")
	fs.StringVar(&opts.format, "format", "auto", "Input format: auto, text, markdown or html")
	fs.StringVar(&opts.unit, "unit", "mm", "User unit: pt, mm, cm, in, px, pc, em or ex")
	fs.StringVar(&opts.page, "page", "a4", "Page format, e.g. a4, letter, legal")
	fs.StringVar(&opts.orientation, "orientation", "portrait", "portrait or landscape")
	fs.Float64Var(&opts.margin, "margin", 15, "Page margin in user units")
	fs.Float64Var(&opts.fontSize, "font-size", 11, "Body font size in points")
	fs.StringVar(&opts.fontPath, "font", "", "TrueType font file to embed for body text")
	fs.BoolVar(&opts.goFont, "gofont", false, "Embed the Go font family for body text")
	fs.BoolVar(&opts.compress, "compress", true, "Compress content streams")
	fs.BoolVar(&opts.footer, "footer", false, "Number pages as \"Page n of N\"")
	fs.BoolVar(&opts.xmp, "xmp", false, "Attach an XMP metadata packet")
	fs.StringVar(&opts.lang, "lang", "", "Document language (BCP 47)")
	fs.StringVar(&opts.props.Title, "title", "", "Document title")
	fs.StringVar(&opts.props.Author, "author", "", "Document author")
	fs.StringVar(&opts.props.Subject, "subject", "", "Document subject")
	fs.StringVar(&opts.props.Keywords, "keywords", "", "Document keywords")
	fs.StringVar(&opts.encrypt, "encrypt", "", "Encrypt with rc4 or aes256")
	fs.StringVar(&opts.userPassword, "user-password", "", "Password required to open the document")
	fs.StringVar(&opts.ownerPassword, "owner-password", "", "Password granting full access")
	fs.BoolVar(&opts.askPassword, "ask-password", false, "Prompt for the user password on the terminal")
	fs.StringVar(&opts.permissions, "permissions", "print", "Comma separated: print, modify, copy, annot-forms")
	fs.StringVar(&opts.jsPath, "js", "", "Document JavaScript file run when the PDF opens")
	fs.BoolVar(&opts.previewJS, "preview-js", false, "Run the -js script against a console viewer")
	fs.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return options{}, fmt.Errorf("expected one input, got %d", fs.NArg())
	}
	opts.input = fs.Arg(0)

	switch opts.format {
	case "auto", "text", "markdown", "html":
	default:
		return options{}, fmt.Errorf("unknown format %q", opts.format)
	}
	switch opts.encrypt {
	case "", "rc4", "aes256":
	default:
		return options{}, fmt.Errorf("unknown encryption %q", opts.encrypt)
	}
	if opts.encrypt == "" && (opts.userPassword != "" || opts.askPassword) {
		return options{}, errors.New("a password needs -encrypt")
	}
	if opts.askPassword && opts.input == "-" {
		return options{}, errors.New("-ask-password cannot be combined with input on stdin")
	}
	if opts.previewJS && opts.jsPath == "" {
		return options{}, errors.New("-preview-js needs -js")
	}
	if opts.fontPath != "" && opts.goFont {
		return options{}, errors.New("-font and -gofont are exclusive")
	}
	return opts, nil
}

func newLogger(w io.Writer, verbose bool) observability.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return observability.NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

func run(ctx context.Context, opts options, stdin io.Reader, stdout, stderr io.Writer) error {
	log := newLogger(stderr, opts.verbose)

	var out io.Writer = stdout
	if opts.output == "" {
		if f, ok := stdout.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
			return errors.New("refusing to write a PDF to a terminal; use -o or redirect")
		}
	}

	src, err := readInput(opts.input, stdin)
	if err != nil {
		return err
	}

	builderOpts := []builder.Option{
		builder.WithUnit(opts.unit),
		builder.WithFormat(opts.page),
		builder.WithOrientation(opts.orientation),
		builder.WithCompression(opts.compress),
		builder.WithXMPMetadata(opts.xmp),
		builder.WithPutOnlyUsedFonts(true),
		builder.WithLogger(log),
	}
	if opts.encrypt != "" {
		cfg, err := encryptionConfig(opts, stderr)
		if err != nil {
			return err
		}
		builderOpts = append(builderOpts, builder.WithEncryption(cfg))
	}
	doc, err := builder.New(builderOpts...)
	if err != nil {
		return err
	}
	doc.SetProperties(opts.props)
	if opts.lang != "" {
		if err := doc.SetLanguage(opts.lang); err != nil {
			return err
		}
	}

	family, err := bodyFont(doc, opts)
	if err != nil {
		return err
	}
	engine := layout.NewEngine(doc,
		layout.WithDefaultFont(family),
		layout.WithDefaultFontSize(opts.fontSize),
		layout.WithMargins(layout.Margins{Top: opts.margin, Bottom: opts.margin, Left: opts.margin, Right: opts.margin}),
		layout.WithLogger(log),
	)
	start := time.Now()
	switch detectFormat(opts.format, opts.input) {
	case "markdown":
		err = engine.RenderMarkdown(src)
	case "html":
		err = engine.RenderHTML(src)
	default:
		err = engine.RenderText(src)
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", opts.input, err)
	}
	log.Debug("layout done",
		observability.Duration("elapsed", time.Since(start)),
		observability.Int("pages", doc.NumberOfPages()))

	if opts.footer {
		if err := addFooters(doc, opts.margin); err != nil {
			return err
		}
	}
	if opts.jsPath != "" {
		if err := addScript(ctx, doc, opts, stderr); err != nil {
			return err
		}
	}

	pdf, err := doc.OutputContext(ctx)
	if err != nil {
		return err
	}
	if opts.output != "" {
		return os.WriteFile(opts.output, pdf, 0o644)
	}
	_, err = out.Write(pdf)
	return err
}

func readInput(path string, stdin io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return string(data), nil
}

func detectFormat(format, path string) string {
	if format != "auto" {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return "markdown"
	case ".html", ".htm", ".xhtml":
		return "html"
	}
	return "text"
}

// bodyFont registers the requested TrueType faces and returns the family
// the layout engine should use.
func bodyFont(doc *builder.Document, opts options) (string, error) {
	switch {
	case opts.goFont:
		faces := []struct {
			style string
			data  []byte
		}{
			{"normal", goregular.TTF},
			{"bold", gobold.TTF},
			{"italic", goitalic.TTF},
			{"bolditalic", gobolditalic.TTF},
		}
		for _, f := range faces {
			if _, err := doc.AddFont("", "go", f.style, f.data); err != nil {
				return "", fmt.Errorf("go font %s: %w", f.style, err)
			}
		}
		return "go", nil
	case opts.fontPath != "":
		data, err := os.ReadFile(opts.fontPath)
		if err != nil {
			return "", fmt.Errorf("read font: %w", err)
		}
		family := strings.TrimSuffix(filepath.Base(opts.fontPath), filepath.Ext(opts.fontPath))
		if _, err := doc.AddFont("", family, "normal", data); err != nil {
			return "", err
		}
		return strings.ToLower(family), nil
	}
	return "helvetica", nil
}

func encryptionConfig(opts options, stderr io.Writer) (security.Config, error) {
	perms, err := security.ParsePermissions(strings.Split(opts.permissions, ","))
	if err != nil {
		return security.Config{}, err
	}
	cfg := security.Config{
		UserPassword:  opts.userPassword,
		OwnerPassword: opts.ownerPassword,
		Permissions:   perms,
		Algorithm:     security.RC4,
	}
	if opts.encrypt == "aes256" {
		cfg.Algorithm = security.AES256
	}
	if opts.askPassword {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return security.Config{}, errors.New("-ask-password needs a terminal on stdin")
		}
		fmt.Fprint(stderr, "User password: ")
		pw, err := term.ReadPassword(fd)
		fmt.Fprintln(stderr)
		if err != nil {
			return security.Config{}, fmt.Errorf("read password: %w", err)
		}
		cfg.UserPassword = string(pw)
	}
	return cfg, nil
}

const totalAlias = "{total_pages}"

func addFooters(doc *builder.Document, margin float64) error {
	if err := doc.SetTotalPagesAlias(totalAlias); err != nil {
		return err
	}
	if err := doc.SetFont("helvetica", "normal"); err != nil {
		return err
	}
	if err := doc.SetFontSize(9); err != nil {
		return err
	}
	if err := doc.SetTextColor(96); err != nil {
		return err
	}
	for n := 1; n <= doc.NumberOfPages(); n++ {
		if err := doc.SetPage(n); err != nil {
			return err
		}
		w, h := doc.PageSize()
		text := fmt.Sprintf("Page %d of %s", n, totalAlias)
		if err := doc.Text(text, w/2, h-margin/2, builder.TextOptions{Align: builder.AlignCenter}); err != nil {
			return err
		}
	}
	return nil
}

// consoleViewer answers document scripts from the command line.
type consoleViewer struct {
	w     io.Writer
	pages int
}

func (v *consoleViewer) Alert(msg string) { fmt.Fprintf(v.w, "alert: %s\n", msg) }
func (v *consoleViewer) NumPages() int    { return v.pages }
func (v *consoleViewer) Print()           { fmt.Fprintln(v.w, "print requested") }

func addScript(ctx context.Context, doc *builder.Document, opts options, stderr io.Writer) error {
	src, err := os.ReadFile(opts.jsPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if err := doc.AddJavaScript(string(src)); err != nil {
		return err
	}
	if !opts.previewJS {
		return nil
	}
	engine, err := scripting.NewEngine(&consoleViewer{w: stderr, pages: doc.NumberOfPages()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := engine.Execute(ctx, string(src)); err != nil {
		return fmt.Errorf("preview script: %w", err)
	}
	return nil
}
