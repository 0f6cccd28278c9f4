// Package domain defines the core business entities for Docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested document and its pipeline status
//   - Chunk: A retrieval unit cut from a document's normalized text
//   - VectorEntry: A chunk vector handed to the vector index
//   - RetrievalResult: Scored chunks returned by similarity search
//   - Session / Turn: Per-user conversation state
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
