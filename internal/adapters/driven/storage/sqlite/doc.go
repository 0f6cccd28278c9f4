// Package sqlite provides durable document and chunk metadata storage
// backed by SQLite via the pure-Go modernc.org/sqlite driver.
//
// The store runs embedded SQL migrations at open and keeps chunk
// embeddings as little-endian float32 blobs alongside chunk text, which
// is what makes index rebuilds possible without re-chunking.
package sqlite
