package massutil

import (
	"hash"

	"golang.org/x/crypto/ripemd160"
	"massnet.org/massdigest/crypto/sha256"
)

// Calculate the hash of hasher over buf.
func calcHash(buf []byte, hasher hash.Hash) []byte {
	hasher.Write(buf)
	return hasher.Sum(nil)
}

// Hash160 returns ripemd160(sha256(b)).
func Hash160(data []byte) []byte {
	return calcHash(Sha256(data), ripemd160.New())
}

// Hash256 returns sha256(sha256(data)), reusing one digest for both rounds.
func Hash256(data []byte) []byte {
	d := sha256.Init(sha256.SHA256)
	d.Update(data)
	first := d.Final()
	d.Reset()
	d.Update(first)
	return d.Final()
}

// Sha256 returns sha256(data)
func Sha256(data []byte) []byte {
	h := sha256.Sum256(data)
	return h[:]
}

// Sha224 returns sha224(data)
func Sha224(data []byte) []byte {
	h := sha256.Sum224(data)
	return h[:]
}

// Ripemd160 return ripemd16(data)
func Ripemd160(data []byte) []byte {
	return calcHash(data, ripemd160.New())
}
