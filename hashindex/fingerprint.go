// Package hashindex computes perceptual image fingerprints and finds
// near-duplicates of them among the images already stored for a server.
package hashindex

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // register GIF decoder
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"math/bits"

	"repost-bot/errs"

	_ "golang.org/x/image/bmp" // register BMP decoder
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	gridWidth  = 16
	gridHeight = 16

	// Size is the fingerprint length in bytes.
	Size = gridWidth * gridHeight / 8

	// MatchThreshold is the exclusive upper bound on the Hamming distance
	// of two fingerprints of the same image.
	MatchThreshold = 5

	blockKeys   = 5
	blockKeyLen = 8
)

// Fingerprint is a 256-bit gradient hash. Bit i is set when pixel i of the
// 17x16 grayscale thumbnail is darker than its right-hand neighbour.
type Fingerprint [Size]byte

// FromImage downsamples img and hashes the horizontal gradients.
func FromImage(img image.Image) Fingerprint {
	thumb := image.NewGray(image.Rect(0, 0, gridWidth+1, gridHeight))
	draw.CatmullRom.Scale(thumb, thumb.Bounds(), img, img.Bounds(), draw.Src, nil)

	var fp Fingerprint
	bit := 0
	for y := 0; y < gridHeight; y++ {
		for x := 0; x < gridWidth; x++ {
			if thumb.GrayAt(x, y).Y < thumb.GrayAt(x+1, y).Y {
				fp[bit/8] |= 1 << (7 - bit%8)
			}
			bit++
		}
	}
	return fp
}

// FromBytes decodes an encoded image and fingerprints it. Unsupported or
// corrupt data yields an errs.Decode error.
func FromBytes(data []byte) (Fingerprint, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Fingerprint{}, errs.E(errs.Decode, "decode image", err)
	}
	return FromImage(img), nil
}

// Parse reverses String.
func Parse(s string) (Fingerprint, error) {
	var fp Fingerprint
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fp, errs.E(errs.Decode, "parse fingerprint", err)
	}
	if len(raw) != Size {
		return fp, errs.E(errs.Decode, "parse fingerprint", fmt.Errorf("got %d bytes, want %d", len(raw), Size))
	}
	copy(fp[:], raw)
	return fp, nil
}

// String is the storage encoding: standard padded base64.
func (fp Fingerprint) String() string {
	return base64.StdEncoding.EncodeToString(fp[:])
}

// Distance is the Hamming distance between two fingerprints.
func (fp Fingerprint) Distance(other Fingerprint) int {
	d := 0
	for i := range fp {
		d += bits.OnesCount8(fp[i] ^ other[i])
	}
	return d
}

// Matches reports whether the two fingerprints are close enough to count as
// the same image.
func (fp Fingerprint) Matches(other Fingerprint) bool {
	return fp.Distance(other) < MatchThreshold
}

// BlockingKeys splits the encoded form into five consecutive slices. Two
// fingerprints within MatchThreshold of each other usually share at least
// four of them.
func (fp Fingerprint) BlockingKeys() [blockKeys]string {
	s := fp.String()
	var keys [blockKeys]string
	for i := range keys {
		keys[i] = s[i*blockKeyLen : (i+1)*blockKeyLen]
	}
	return keys
}
