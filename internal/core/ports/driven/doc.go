// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - DocumentStore: Document and chunk metadata persistence
//   - VectorIndex: Vector storage and similarity search
//   - EmbeddingService: Generates vector embeddings
//   - LLMService: One language-model backend (several are configured
//     and routed in priority order by the core)
//   - SessionStore: Conversation session persistence
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
