package fingerprint

import (
	"crypto/md5"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/artyom/phash"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decode support

	"photo-dedup/internal/logging"
)

// Fingerprint is the extraction result for one image file.
type Fingerprint struct {
	// ContentHash is the MD5 digest of the raw file bytes, 32 hex chars.
	ContentHash string
	// PHash, DHash, and AHash are 64-bit perceptual hashes encoded as
	// 16 hex chars each.
	PHash string
	DHash string
	AHash string
	// DateTaken is the EXIF capture date, nil when the image carries none.
	DateTaken *time.Time
}

// Extractor computes fingerprints for image files. The scanner consumes it
// through this interface so tests can substitute a stub.
type Extractor interface {
	Extract(path string) (*Fingerprint, error)
}

// ImageExtractor is the production Extractor: it decodes the image (which
// doubles as validation that the file really is one), hashes the bytes and
// pixels, and reads the EXIF capture date.
type ImageExtractor struct{}

// NewExtractor returns a ready-to-use ImageExtractor.
func NewExtractor() *ImageExtractor {
	return &ImageExtractor{}
}

// Extract computes all fingerprints for the file at path. A file that
// cannot be decoded as an image is an error, never a panic; files with a
// valid image extension but bogus content land here.
func (e *ImageExtractor) Extract(path string) (*Fingerprint, error) {
	contentHash, err := hashFileContents(path)
	if err != nil {
		return nil, fmt.Errorf("content hash failed for %s: %w", path, err)
	}

	// AutoOrientation applies the EXIF rotation before hashing, so a
	// rotated copy of an image still hashes close to the original.
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("image decode failed for %s: %w", path, err)
	}

	pHash, err := phash.Get(img, func(img image.Image, w, h int) image.Image {
		return imaging.Resize(img, w, h, imaging.Lanczos)
	})
	if err != nil {
		return nil, fmt.Errorf("perceptual hash failed for %s: %w", path, err)
	}

	fp := &Fingerprint{
		ContentHash: contentHash,
		PHash:       FormatHash(pHash),
		DHash:       FormatHash(differenceHash(img)),
		AHash:       FormatHash(averageHash(img)),
		DateTaken:   captureDate(path),
	}

	return fp, nil
}

// hashFileContents streams the file through MD5 for byte-exact duplicate
// detection.
func hashFileContents(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}

// captureDate reads the EXIF capture date. Returns nil when the file has
// no usable EXIF data; callers fall back to the modification time if they
// need a date at all.
func captureDate(path string) *time.Time {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		logging.Debug("No EXIF data for %s: %v", path, err)
		return nil
	}

	// DateTime prefers DateTimeOriginal and falls back to DateTime
	tm, err := x.DateTime()
	if err != nil {
		logging.Debug("EXIF date missing for %s: %v", path, err)
		return nil
	}
	return &tm
}
