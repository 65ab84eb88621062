// Package mediatypes defines the file extension policy for the scanner:
// which extensions are treated as images and which are explicitly ignored.
package mediatypes
