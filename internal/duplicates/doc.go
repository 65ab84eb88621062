// Package duplicates clusters visually similar media records into
// duplicate groups and applies the user's review actions to them.
package duplicates
