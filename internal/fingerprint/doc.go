// Package fingerprint computes content and perceptual fingerprints for
// image files: an MD5 content hash for byte-exact duplicates, a pHash /
// dHash / aHash triple for visual similarity, and the EXIF capture date.
package fingerprint
