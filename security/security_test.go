package security

import (
	"bytes"
	"crypto/aes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"
)

func TestParsePermissions(t *testing.T) {
	tests := []struct {
		names []string
		want  int32
	}{
		{nil, -64},
		{[]string{"print"}, -60},
		{[]string{"print", "modify", "copy", "annot-forms"}, -4},
		{[]string{"Copy", " annot-forms "}, -16},
	}
	for _, tc := range tests {
		p, err := ParsePermissions(tc.names)
		if err != nil {
			t.Fatalf("ParsePermissions(%v): %v", tc.names, err)
		}
		if got := p.Value(); got != tc.want {
			t.Errorf("ParsePermissions(%v).Value() = %d, want %d", tc.names, got, tc.want)
		}
	}
	if _, err := ParsePermissions([]string{"fly"}); !errors.Is(err, ErrUnknownPermission) {
		t.Fatalf("unknown permission error = %v", err)
	}
}

var fileID = []byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF, 0xFE, 0xDC, 0xBA, 0x98, 0x76, 0x54, 0x32, 0x10}

func TestRC4Handler(t *testing.T) {
	h, err := NewStandard(Config{UserPassword: "user", OwnerPassword: "owner", Permissions: Permissions{Print: true}}, fileID)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.o) != 32 || len(h.u) != 32 || len(h.key) != 5 {
		t.Fatalf("entry sizes O=%d U=%d key=%d", len(h.o), len(h.u), len(h.key))
	}
	for _, pwd := range []string{"user", "owner"} {
		key, err := h.Authenticate(pwd)
		if err != nil {
			t.Fatalf("Authenticate(%q): %v", pwd, err)
		}
		if !bytes.Equal(key, h.key) {
			t.Errorf("Authenticate(%q) key = %x, want %x", pwd, key, h.key)
		}
	}
	if _, err := h.Authenticate("nobody"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("wrong password error = %v", err)
	}

	plain := []byte("BT /F1 12 Tf (secret) Tj ET")
	enc := h.Encrypt(7, 0, plain)
	if bytes.Equal(enc, plain) {
		t.Fatalf("Encrypt returned plaintext")
	}
	if bytes.Equal(enc, h.Encrypt(8, 0, plain)) {
		t.Errorf("different objects share a key")
	}
	dec, err := h.Decrypt(7, 0, enc)
	if err != nil || !bytes.Equal(dec, plain) {
		t.Fatalf("Decrypt = %q, %v", dec, err)
	}

	dict := strings.Join(h.Dictionary(), "\n")
	for _, want := range []string{"/Filter /Standard", "/V 1", "/R 2", "/P -60"} {
		if !strings.Contains(dict, want) {
			t.Errorf("dictionary missing %q", want)
		}
	}
	if h.Version() != "1.3" {
		t.Errorf("Version = %s", h.Version())
	}
}

func TestRC4EmptyUserPassword(t *testing.T) {
	h, err := NewStandard(Config{OwnerPassword: "secret", Permissions: AllPermissions}, fileID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := h.Authenticate(""); err != nil {
		t.Fatalf("empty user password should open the document: %v", err)
	}
}

func TestAES256Handler(t *testing.T) {
	h, err := NewStandard(Config{
		UserPassword:  "café",
		OwnerPassword: "own\u00a0er",
		Algorithm:     AES256,
	}, fileID)
	if err != nil {
		t.Fatal(err)
	}
	if len(h.u) != 48 || len(h.o) != 48 || len(h.ue) != 32 || len(h.oe) != 32 || len(h.perms) != 16 {
		t.Fatalf("entry sizes U=%d O=%d UE=%d OE=%d Perms=%d", len(h.u), len(h.o), len(h.ue), len(h.oe), len(h.perms))
	}
	// SASLprep maps the no-break space to an ordinary space
	for _, pwd := range []string{"café", "own er", "own\u00a0er"} {
		key, err := h.Authenticate(pwd)
		if err != nil {
			t.Fatalf("Authenticate(%q): %v", pwd, err)
		}
		if !bytes.Equal(key, h.key) {
			t.Errorf("Authenticate(%q) recovered a different key", pwd)
		}
	}
	if _, err := h.Authenticate("cafe"); !errors.Is(err, ErrBadPassword) {
		t.Fatalf("wrong password error = %v", err)
	}

	block, err := aes.NewCipher(h.key)
	if err != nil {
		t.Fatal(err)
	}
	perms := make([]byte, 16)
	block.Decrypt(perms, h.perms)
	if got := int32(binary.LittleEndian.Uint32(perms)); got != h.Permissions() {
		t.Errorf("Perms P = %d, want %d", got, h.Permissions())
	}
	if string(perms[9:12]) != "adb" {
		t.Errorf("Perms marker = %q", perms[9:12])
	}

	for _, plain := range [][]byte{nil, []byte("x"), bytes.Repeat([]byte("0123456789abcdef"), 3)} {
		enc := h.Encrypt(3, 0, plain)
		if len(enc)%aes.BlockSize != 0 || len(enc) < 2*aes.BlockSize {
			t.Fatalf("ciphertext length %d", len(enc))
		}
		dec, err := h.Decrypt(3, 0, enc)
		if err != nil {
			t.Fatalf("Decrypt: %v", err)
		}
		if !bytes.Equal(dec, plain) {
			t.Errorf("round trip = %q, want %q", dec, plain)
		}
	}

	dict := strings.Join(h.Dictionary(), "\n")
	for _, want := range []string{"/V 5", "/R 6", "/CFM /AESV3", "/OE <", "/UE <", "/Perms <"} {
		if !strings.Contains(dict, want) {
			t.Errorf("dictionary missing %q", want)
		}
	}
	if h.Version() != "2.0" {
		t.Errorf("Version = %s", h.Version())
	}
}

func TestHash2BDeterministic(t *testing.T) {
	salt := []byte("12345678")
	a := hash2B([]byte("pw"), salt, nil)
	if len(a) != 32 {
		t.Fatalf("hash length %d", len(a))
	}
	if !bytes.Equal(a, hash2B([]byte("pw"), salt, nil)) {
		t.Errorf("hash2B is not deterministic")
	}
	if bytes.Equal(a, hash2B([]byte("pw"), salt, bytes.Repeat([]byte{1}, 48))) {
		t.Errorf("udata does not affect the hash")
	}
}
