// Package handlers implements the HTTP API: scan lifecycle, duplicate
// review, media queries, date organization, and health endpoints.
package handlers
