// Package workers provides CPU-aware sizing for the fingerprint extraction
// worker pool.
package workers
