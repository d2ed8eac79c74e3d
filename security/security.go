// Package security implements the Standard security handler used to
// password protect generated documents.
package security

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/xdg-go/stringprep"
)

var (
	// ErrUnknownPermission reports a permission name outside print, modify, copy and annot-forms.
	ErrUnknownPermission = errors.New("security: unknown permission")
	// ErrBadPassword reports a password that does not open the document.
	ErrBadPassword = errors.New("security: incorrect password")
)

// Algorithm selects the encryption revision.
type Algorithm int

const (
	// RC4 is 40-bit RC4, V1 R2, readable by every PDF 1.3 viewer.
	RC4 Algorithm = iota
	// AES256 is AES-256, V5 R6, which requires PDF 2.0.
	AES256
)

// Permissions lists the operations granted to users who open the document
// with the user password.
type Permissions struct {
	Print      bool
	Modify     bool
	Copy       bool
	AnnotForms bool
}

// AllPermissions grants everything.
var AllPermissions = Permissions{Print: true, Modify: true, Copy: true, AnnotForms: true}

// ParsePermissions converts permission names ("print", "modify", "copy",
// "annot-forms") into Permissions.
func ParsePermissions(names []string) (Permissions, error) {
	var p Permissions
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "print":
			p.Print = true
		case "modify":
			p.Modify = true
		case "copy":
			p.Copy = true
		case "annot-forms":
			p.AnnotForms = true
		case "":
		default:
			return Permissions{}, fmt.Errorf("%w: %q", ErrUnknownPermission, n)
		}
	}
	return p, nil
}

// Value returns the /P entry. Bits 1 and 2 are zero, bits 3 to 6 follow the
// permissions and every other bit is set.
func (p Permissions) Value() int32 {
	val := int32(-4)
	if !p.Print {
		val &^= 1 << 2
	}
	if !p.Modify {
		val &^= 1 << 3
	}
	if !p.Copy {
		val &^= 1 << 4
	}
	if !p.AnnotForms {
		val &^= 1 << 5
	}
	return val
}

// Config describes the protection applied to a document.
type Config struct {
	UserPassword  string
	OwnerPassword string
	Permissions   Permissions
	Algorithm     Algorithm
}

// Handler encrypts the strings and streams of one document.
type Handler struct {
	algo   Algorithm
	key    []byte
	p      int32
	fileID []byte

	o, u, oe, ue, perms []byte
}

// NewStandard derives the file key and the /O and /U entries. fileID is the
// first element of the trailer /ID.
func NewStandard(cfg Config, fileID []byte) (*Handler, error) {
	h := &Handler{algo: cfg.Algorithm, p: cfg.Permissions.Value()}
	switch cfg.Algorithm {
	case RC4:
		h.initRC4(cfg, fileID)
		return h, nil
	case AES256:
		if err := h.initAES256(cfg); err != nil {
			return nil, err
		}
		return h, nil
	}
	return nil, fmt.Errorf("security: unsupported algorithm %d", cfg.Algorithm)
}

var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

func padPassword(pwd []byte) []byte {
	padded := make([]byte, 32)
	n := copy(padded, pwd)
	copy(padded[n:], passwordPadding)
	return padded
}

func (h *Handler) initRC4(cfg Config, fileID []byte) {
	owner := cfg.OwnerPassword
	if owner == "" {
		owner = cfg.UserPassword
	}
	ownerKey := md5.Sum(padPassword([]byte(owner)))
	h.fileID = append([]byte{}, fileID...)
	h.o = rc4Crypt(ownerKey[:5], padPassword([]byte(cfg.UserPassword)))
	h.key = rc4FileKey([]byte(cfg.UserPassword), h.o, h.p, fileID)
	h.u = rc4Crypt(h.key, passwordPadding)
}

func rc4FileKey(pwd, o []byte, p int32, fileID []byte) []byte {
	data := make([]byte, 0, 32+len(o)+4+len(fileID))
	data = append(data, padPassword(pwd)...)
	data = append(data, o...)
	data = binary.LittleEndian.AppendUint32(data, uint32(p))
	data = append(data, fileID...)
	sum := md5.Sum(data)
	return sum[:5]
}

func rc4Crypt(key, data []byte) []byte {
	out := make([]byte, len(data))
	c, _ := rc4.NewCipher(key)
	c.XORKeyStream(out, data)
	return out
}

// objectKey extends the file key with the object and generation numbers.
func objectKey(fileKey []byte, objNum, gen int) []byte {
	key := append([]byte{}, fileKey...)
	key = append(key, byte(objNum), byte(objNum>>8), byte(objNum>>16), byte(gen), byte(gen>>8))
	sum := md5.Sum(key)
	return sum[:min(len(fileKey)+5, 16)]
}

// preparePassword applies SASLprep and truncates to 127 bytes.
func preparePassword(pwd string) ([]byte, error) {
	if pwd == "" {
		return nil, nil
	}
	p, err := stringprep.SASLprep.Prepare(pwd)
	if err != nil {
		return nil, fmt.Errorf("prepare password: %w", err)
	}
	b := []byte(p)
	if len(b) > 127 {
		b = b[:127]
	}
	return b, nil
}

func (h *Handler) initAES256(cfg Config) error {
	user, err := preparePassword(cfg.UserPassword)
	if err != nil {
		return err
	}
	owner := user
	if cfg.OwnerPassword != "" {
		if owner, err = preparePassword(cfg.OwnerPassword); err != nil {
			return err
		}
	}
	random := make([]byte, 32+16+16+4)
	rand.Read(random)
	h.key = random[:32]
	uSalts, oSalts := random[32:48], random[48:64]

	h.u = append(hash2B(user, uSalts[:8], nil), uSalts...)
	h.ue = aesNoPad(hash2B(user, uSalts[8:], nil), h.key)
	h.o = append(hash2B(owner, oSalts[:8], h.u), oSalts...)
	h.oe = aesNoPad(hash2B(owner, oSalts[8:], h.u), h.key)

	perms := make([]byte, 16)
	binary.LittleEndian.PutUint32(perms, uint32(h.p))
	copy(perms[4:], []byte{0xFF, 0xFF, 0xFF, 0xFF, 'T', 'a', 'd', 'b'})
	copy(perms[12:], random[64:])
	block, _ := aes.NewCipher(h.key)
	h.perms = make([]byte, 16)
	block.Encrypt(h.perms, perms)
	return nil
}

// hash2B is the iterated hash of ISO 32000-2 algorithm 2.B. udata is the
// 48-byte /U value when hashing the owner password, nil otherwise.
func hash2B(pwd, salt, udata []byte) []byte {
	if len(udata) > 48 {
		udata = udata[:48]
	}
	sum := sha256.Sum256(concat(pwd, salt, udata))
	k := sum[:]
	var e []byte
	for round := 0; round < 64 || int(e[len(e)-1]) > round-32; round++ {
		k1 := bytes.Repeat(concat(pwd, k, udata), 64)
		block, _ := aes.NewCipher(k[:16])
		e = make([]byte, len(k1))
		cipher.NewCBCEncrypter(block, k[16:32]).CryptBlocks(e, k1)

		var mod int
		for _, b := range e[:16] {
			mod += int(b)
		}
		switch mod % 3 {
		case 0:
			s := sha256.Sum256(e)
			k = s[:]
		case 1:
			s := sha512.Sum384(e)
			k = s[:]
		default:
			s := sha512.Sum512(e)
			k = s[:]
		}
	}
	return k[:32]
}

func concat(parts ...[]byte) []byte {
	var n int
	for _, p := range parts {
		n += len(p)
	}
	out := make([]byte, 0, n)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// aesNoPad encrypts a whole number of blocks with AES-256-CBC and a zero IV.
func aesNoPad(key, data []byte) []byte {
	block, _ := aes.NewCipher(key)
	out := make([]byte, len(data))
	cipher.NewCBCEncrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(out, data)
	return out
}

func aesNoPadDecrypt(key, data []byte) []byte {
	block, _ := aes.NewCipher(key)
	out := make([]byte, len(data))
	cipher.NewCBCDecrypter(block, make([]byte, aes.BlockSize)).CryptBlocks(out, data)
	return out
}

// Encrypt encrypts data belonging to object objNum.
func (h *Handler) Encrypt(objNum, gen int, data []byte) []byte {
	if h.algo == RC4 {
		return rc4Crypt(objectKey(h.key, objNum, gen), data)
	}
	block, _ := aes.NewCipher(h.key)
	pad := aes.BlockSize - len(data)%aes.BlockSize
	plain := append(append([]byte{}, data...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	out := make([]byte, aes.BlockSize+len(plain))
	rand.Read(out[:aes.BlockSize])
	cipher.NewCBCEncrypter(block, out[:aes.BlockSize]).CryptBlocks(out[aes.BlockSize:], plain)
	return out
}

// Decrypt reverses Encrypt.
func (h *Handler) Decrypt(objNum, gen int, data []byte) ([]byte, error) {
	if h.algo == RC4 {
		return rc4Crypt(objectKey(h.key, objNum, gen), data), nil
	}
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, errors.New("security: AES ciphertext has invalid length")
	}
	block, _ := aes.NewCipher(h.key)
	out := make([]byte, len(data)-aes.BlockSize)
	cipher.NewCBCDecrypter(block, data[:aes.BlockSize]).CryptBlocks(out, data[aes.BlockSize:])
	pad := int(out[len(out)-1])
	if pad == 0 || pad > aes.BlockSize {
		return nil, errors.New("security: invalid AES padding")
	}
	return out[:len(out)-pad], nil
}

// Authenticate checks pwd against the user and owner entries and returns
// the file key it unlocks.
func (h *Handler) Authenticate(pwd string) ([]byte, error) {
	if h.algo == RC4 {
		if key := rc4FileKey([]byte(pwd), h.o, h.p, h.fileID); bytes.Equal(rc4Crypt(key, passwordPadding), h.u) {
			return key, nil
		}
		// the owner password decrypts /O back to the padded user password
		ownerKey := md5.Sum(padPassword([]byte(pwd)))
		user := rc4Crypt(ownerKey[:5], h.o)
		if key := rc4FileKey(user, h.o, h.p, h.fileID); bytes.Equal(rc4Crypt(key, passwordPadding), h.u) {
			return key, nil
		}
		return nil, ErrBadPassword
	}
	p, err := preparePassword(pwd)
	if err != nil {
		return nil, err
	}
	switch {
	case bytes.Equal(hash2B(p, h.u[32:40], nil), h.u[:32]):
		return aesNoPadDecrypt(hash2B(p, h.u[40:48], nil), h.ue), nil
	case bytes.Equal(hash2B(p, h.o[32:40], h.u), h.o[:32]):
		return aesNoPadDecrypt(hash2B(p, h.o[40:48], h.u), h.oe), nil
	}
	return nil, ErrBadPassword
}

// Version is the lowest PDF version able to carry this encryption.
func (h *Handler) Version() string {
	if h.algo == AES256 {
		return "2.0"
	}
	return "1.3"
}

// Permissions returns the /P value.
func (h *Handler) Permissions() int32 { return h.p }

// Dictionary returns the entries of the /Encrypt dictionary.
func (h *Handler) Dictionary() []string {
	hexStr := func(b []byte) string { return "<" + strings.ToUpper(hex.EncodeToString(b)) + ">" }
	if h.algo == RC4 {
		return []string{
			"/Filter /Standard",
			"/V 1",
			"/R 2",
			"/O " + hexStr(h.o),
			"/U " + hexStr(h.u),
			fmt.Sprintf("/P %d", h.p),
		}
	}
	return []string{
		"/Filter /Standard",
		"/V 5",
		"/R 6",
		"/Length 256",
		"/CF << /StdCF << /AuthEvent /DocOpen /CFM /AESV3 /Length 32 >> >>",
		"/StmF /StdCF",
		"/StrF /StdCF",
		"/O " + hexStr(h.o),
		"/U " + hexStr(h.u),
		"/OE " + hexStr(h.oe),
		"/UE " + hexStr(h.ue),
		"/Perms " + hexStr(h.perms),
		fmt.Sprintf("/P %d", h.p),
	}
}
