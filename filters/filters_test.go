package filters

import (
	"bytes"
	"compress/zlib"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestFilters_RoundTrip(t *testing.T) {
	input := bytes.Repeat([]byte("BT /F1 12 Tf (hello) Tj ET\n"), 20)
	input = append(input, 0, 0xFF, 'z')
	for _, f := range []Filter{Flate(zlib.BestCompression), ASCIIHex(), ASCII85()} {
		t.Run(f.Name(), func(t *testing.T) {
			enc, err := f.Encode(context.Background(), input)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			dec, err := f.Decode(context.Background(), enc)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !bytes.Equal(dec, input) {
				t.Fatalf("round trip differs")
			}
		})
	}
}

func TestASCIIHexDecode(t *testing.T) {
	out, err := ASCIIHex().Decode(context.Background(), []byte("48 65 6c\n6C 6f 7>ignored"))
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != "Hellop" {
		t.Fatalf("decoded %q", out)
	}
	if _, err := ASCIIHex().Decode(context.Background(), []byte("zz>")); err == nil {
		t.Fatal("invalid digits accepted")
	}
}

func TestPipeline(t *testing.T) {
	p := NewPipeline([]Filter{ASCII85(), Flate(zlib.DefaultCompression)}, Limits{})
	if got := p.Names(); got != "[/ASCII85Decode /FlateDecode]" {
		t.Fatalf("Names = %q", got)
	}
	input := []byte("stream data stream data stream data")
	enc, err := p.Encode(context.Background(), input)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasSuffix(enc, []byte("~>")) {
		t.Fatalf("outermost filter is not ASCII85: %q", enc)
	}
	dec, err := p.Decode(context.Background(), enc)
	if err != nil || !bytes.Equal(dec, input) {
		t.Fatalf("Decode = %q, %v", dec, err)
	}

	limited := NewPipeline([]Filter{Flate(zlib.DefaultCompression)}, Limits{MaxDecodedSize: 4})
	z, _ := Flate(zlib.DefaultCompression).Encode(context.Background(), input)
	if _, err := limited.Decode(context.Background(), z); !errors.Is(err, ErrLimit) {
		t.Fatalf("limit error = %v", err)
	}
	if got := NewPipeline(nil, Limits{}).Names(); got != "" {
		t.Errorf("empty pipeline names %q", got)
	}
}

func TestByName(t *testing.T) {
	for _, name := range []string{"/FlateDecode", "ASCIIHexDecode", "ASCII85Decode"} {
		f, err := ByName(name)
		if err != nil {
			t.Fatalf("ByName(%s): %v", name, err)
		}
		if f.Name() != strings.TrimPrefix(name, "/") {
			t.Errorf("ByName(%s) = %s", name, f.Name())
		}
	}
	if _, err := ByName("/JBIG2Decode"); !errors.Is(err, ErrUnknownFilter) {
		t.Errorf("unknown filter error = %v", err)
	}
}

func TestFlateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Flate(zlib.DefaultCompression).Encode(ctx, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
