// Package discover produces the deterministic, restartable sequence of
// candidate image paths that the scanner consumes. Resume correctness
// depends on the traversal order being stable across invocations.
package discover
