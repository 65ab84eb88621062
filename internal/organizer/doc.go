// Package organizer moves photos into a YEAR/MM-Month folder hierarchy
// based on their capture date, with a dry-run preview mode.
package organizer
