// Package quickxorhash implements QuickXorHash, the content hash SharePoint
// and OneDrive for Business report for every file in an item's
// file.hashes facet.
//
// Each input byte is XORed into a 160-bit circular buffer at a bit offset
// that advances by 11 per byte. The digest is the buffer with the total
// input length XORed into its last eight bytes.
//
// Algorithm reference:
// https://learn.microsoft.com/en-us/onedrive/developer/code-snippets/quickxorhash
package quickxorhash

import (
	"encoding/base64"
	"encoding/binary"
	"hash"
)

const (
	// Size is the length, in bytes, of a QuickXorHash digest.
	Size = 20

	// BlockSize is the preferred input block size for the hash, in bytes.
	BlockSize = 64

	shift       = 11
	widthInBits = Size * 8
	lengthBytes = 8
)

type digest struct {
	// buf holds the 160-bit buffer, bit i at buf[i/8] bit i%8.
	buf    [Size]byte
	offset int
	length uint64
}

// New returns a hash.Hash computing QuickXorHash.
func New() hash.Hash {
	return &digest{}
}

// Sum64 returns the base64 digest of data, the form Graph uses in
// file.hashes.quickXorHash.
func Sum64(data []byte) string {
	h := New()
	h.Write(data)

	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// Write never fails.
func (d *digest) Write(p []byte) (int, error) {
	for _, b := range p {
		i, bit := d.offset/8, d.offset%8
		v := uint16(b) << bit

		d.buf[i] ^= byte(v)
		d.buf[(i+1)%Size] ^= byte(v >> 8)

		d.offset = (d.offset + shift) % widthInBits
	}

	d.length += uint64(len(p))

	return len(p), nil
}

// Sum appends the digest to b without changing the running state.
func (d *digest) Sum(b []byte) []byte {
	out := d.buf

	var n [lengthBytes]byte
	binary.LittleEndian.PutUint64(n[:], d.length)

	for i, v := range n {
		out[Size-lengthBytes+i] ^= v
	}

	return append(b, out[:]...)
}

func (d *digest) Reset() {
	*d = digest{}
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return BlockSize }
