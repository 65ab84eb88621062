package fingerprint

import (
	"fmt"
	"image"
	"strconv"

	"github.com/artyom/phash"
	"github.com/disintegration/imaging"
)

// MaxDistance is the hamming distance between a hash and its complement,
// and the sentinel distance for a missing or malformed hash.
const MaxDistance = 64

// FormatHash encodes a 64-bit hash as a fixed-length 16-char hex string.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

// ParseHash decodes a 16-char hex hash string.
func ParseHash(s string) (uint64, error) {
	return strconv.ParseUint(s, 16, 64)
}

// HammingDistance returns the number of differing bits between two hex hash
// strings. A missing or malformed hash on either side yields MaxDistance,
// never an error: such records simply cluster with nothing.
func HammingDistance(h1, h2 string) int {
	if h1 == "" || h2 == "" {
		return MaxDistance
	}
	a, err := ParseHash(h1)
	if err != nil {
		return MaxDistance
	}
	b, err := ParseHash(h2)
	if err != nil {
		return MaxDistance
	}
	return phash.Distance(a, b)
}

// differenceHash computes a 64-bit dHash: the image is shrunk to 9x8 and
// each bit records whether a pixel is brighter than its right neighbor.
func differenceHash(img image.Image) uint64 {
	small := imaging.Grayscale(imaging.Resize(img, 9, 8, imaging.Lanczos))

	var hash uint64
	bit := 63
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if luma(small, x, y) > luma(small, x+1, y) {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

// averageHash computes a 64-bit aHash: the image is shrunk to 8x8 and each
// bit records whether a pixel is brighter than the mean.
func averageHash(img image.Image) uint64 {
	small := imaging.Grayscale(imaging.Resize(img, 8, 8, imaging.Lanczos))

	var sum float64
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			sum += luma(small, x, y)
		}
	}
	mean := sum / 64

	var hash uint64
	bit := 63
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if luma(small, x, y) > mean {
				hash |= 1 << bit
			}
			bit--
		}
	}
	return hash
}

// luma returns the ITU-R BT.601 brightness of a pixel.
func luma(img image.Image, x, y int) float64 {
	r, g, b, _ := img.At(img.Bounds().Min.X+x, img.Bounds().Min.Y+y).RGBA()
	return 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
}
