package sha256

import "strings"

// Variant selects between the two digests sharing the SHA-256 compression
// function. They differ only in initial hash words and output length.
type Variant uint8

const (
	SHA256 Variant = iota + 1
	SHA224
)

// FIPS 180-4 section 5.3.3.
var iv256 = [8]uint32{
	0x6A09E667,
	0xBB67AE85,
	0x3C6EF372,
	0xA54FF53A,
	0x510E527F,
	0x9B05688C,
	0x1F83D9AB,
	0x5BE0CD19,
}

// FIPS 180-4 section 5.3.2.
var iv224 = [8]uint32{
	0xC1059ED8,
	0x367CD507,
	0x3070DD17,
	0xF70E5939,
	0xFFC00B31,
	0x68581511,
	0x64F98FA7,
	0xBEFA4FA4,
}

func (v Variant) Valid() bool {
	return v == SHA256 || v == SHA224
}

func (v Variant) String() string {
	switch v {
	case SHA256:
		return "sha256"
	case SHA224:
		return "sha224"
	default:
		return "invalid"
	}
}

// Size returns the digest length of the variant in bytes.
func (v Variant) Size() int {
	if v == SHA224 {
		return Size224
	}
	return Size
}

// IV returns the initial hash words of the variant.
func (v Variant) IV() [8]uint32 {
	if v == SHA224 {
		return iv224
	}
	return iv256
}

// ParseVariant accepts "sha256", "sha-256", "sha224" and "sha-224" in any case.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.Replace(s, "-", "", 1)) {
	case "sha256":
		return SHA256, nil
	case "sha224":
		return SHA224, nil
	default:
		return 0, ErrUnknownVariant
	}
}
