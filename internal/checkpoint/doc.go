// Package checkpoint persists crawl progress: the index of the last listing
// page that was fully processed. The file holds a single decimal integer.
package checkpoint
