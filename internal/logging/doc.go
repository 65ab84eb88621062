// Package logging provides leveled logging on top of the standard log
// package. The level is taken from the LOG_LEVEL or DEBUG environment
// variables at first use.
package logging
