// Package domain defines the core business entities for Cuby.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A user-supplied knowledge source
//   - Chunk: An overlapping window of a document used for retrieval
//   - Config: The configuration surface read by the core
//   - SessionState / SessionEvent: Realtime session lifecycle and notifications
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
