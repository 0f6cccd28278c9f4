package readers

import (
	"github.com/custodia-labs/docchat/internal/readers/docx"
	"github.com/custodia-labs/docchat/internal/readers/eml"
	"github.com/custodia-labs/docchat/internal/readers/htmltext"
	"github.com/custodia-labs/docchat/internal/readers/markdown"
	"github.com/custodia-labs/docchat/internal/readers/plaintext"
)

// Default returns a registry with all built-in readers. Unknown
// extensions fall back to plain text.
func Default() *Registry {
	registry := NewRegistry(plaintext.New())
	registry.Register(markdown.New())
	registry.Register(htmltext.New())
	registry.Register(docx.New())
	registry.Register(eml.New())
	return registry
}
