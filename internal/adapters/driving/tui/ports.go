// Package tui provides an interactive chat terminal interface for
// docchat. It implements a driving adapter following hexagonal
// architecture principles.
package tui

import (
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the TUI.
type Ports struct {
	// Chat answers questions grounded in ingested documents.
	Chat driving.ChatService
}
